package catalog

import (
	"errors"
	"strings"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return errors.New("product code is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	if !p.Kind.Valid() {
		return errors.New("product kind must be RM, FG or PP")
	}
	if p.LandedCost < 0 {
		return errors.New("landed cost must not be negative")
	}
	return nil
}
