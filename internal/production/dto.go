package production

// OrderItemForm is one requested line in order payloads.
type OrderItemForm struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
}

// OrderForm creates or replaces a production order.
type OrderForm struct {
	Title string          `json:"title" validate:"required"`
	Note  string          `json:"note"`
	Items []OrderItemForm `json:"items" validate:"required,min=1,dive"`
}

// RejectForm carries the mandatory rejection reason.
type RejectForm struct {
	Reason string `json:"reason" validate:"required"`
}

// ValidateForm asks whether a hypothetical batch would clear stock.
type ValidateForm struct {
	Items []OrderItemForm `json:"items" validate:"required,min=1,dive"`
}

// RecipeIncludeForm is one consumed component line.
type RecipeIncludeForm struct {
	ProductID  int64   `json:"product_id" validate:"required,gt=0"`
	QtyPerUnit float64 `json:"qty_per_unit" validate:"required,gt=0"`
}

// RecipeRemoveForm is one byproduct line with its fixed unit cost.
type RecipeRemoveForm struct {
	ProductID  int64   `json:"product_id" validate:"required,gt=0"`
	QtyPerUnit float64 `json:"qty_per_unit" validate:"required,gt=0"`
	UnitCost   float64 `json:"unit_cost" validate:"gte=0"`
}

// RecipeForm replaces a product's recipe wholesale.
type RecipeForm struct {
	Includes []RecipeIncludeForm `json:"includes" validate:"dive"`
	Removes  []RecipeRemoveForm  `json:"removes" validate:"dive"`
}

func (f OrderForm) items() []ItemInput {
	items := make([]ItemInput, 0, len(f.Items))
	for _, item := range f.Items {
		items = append(items, ItemInput{ProductID: item.ProductID, Qty: item.Qty})
	}
	return items
}

func (f ValidateForm) lines() []DemandLine {
	lines := make([]DemandLine, 0, len(f.Items))
	for _, item := range f.Items {
		lines = append(lines, DemandLine{ProductID: item.ProductID, Qty: item.Qty})
	}
	return lines
}

func (f RecipeForm) includes() []RecipeInclude {
	includes := make([]RecipeInclude, 0, len(f.Includes))
	for _, inc := range f.Includes {
		includes = append(includes, RecipeInclude{ProductID: inc.ProductID, QtyPerUnit: inc.QtyPerUnit})
	}
	return includes
}

func (f RecipeForm) removes() []RecipeRemove {
	removes := make([]RecipeRemove, 0, len(f.Removes))
	for _, rem := range f.Removes {
		removes = append(removes, RecipeRemove{ProductID: rem.ProductID, QtyPerUnit: rem.QtyPerUnit, UnitCost: rem.UnitCost})
	}
	return removes
}
