package production

import (
	"context"
	"time"
)

// ApprovedItemEvent describes one item's applied quantities and cost.
type ApprovedItemEvent struct {
	ProductID int64
	Qty       float64
	UnitCost  float64
	TotalCost float64
}

// OrderApprovedEvent is emitted after an approval commits; stock has already
// been mutated when handlers run.
type OrderApprovedEvent struct {
	OrderID    int64
	DocNo      string
	ApprovedBy int64
	ApprovedAt time.Time
	Items      []ApprovedItemEvent
}

// IntegrationHandler receives production events, e.g. to refresh the
// producibility cache or notify downstream consumers.
type IntegrationHandler interface {
	HandleOrderApproved(ctx context.Context, evt OrderApprovedEvent) error
}
