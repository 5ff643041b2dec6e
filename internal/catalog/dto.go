package catalog

// ProductForm carries create/update payloads.
type ProductForm struct {
	Code       string  `json:"code" validate:"required,max=64"`
	Name       string  `json:"name" validate:"required,max=255"`
	Kind       Kind    `json:"kind" validate:"required,oneof=RM FG PP"`
	LandedCost float64 `json:"landed_cost" validate:"gte=0"`
	IsActive   bool    `json:"is_active"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Kind     Kind
	Kinds    []Kind
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}
