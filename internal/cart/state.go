package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printloom/storefront/pkg/types"
)

// Variant is the slice of the catalog the attribute-change ops consult:
// every purchasable (color, size) row of one product.
type Variant struct {
	Color              string          `json:"color"`
	Size               string          `json:"size"`
	Stock              int             `json:"stock"`
	MaxQty             int             `json:"max_qty"`
	Price              decimal.Decimal `json:"price"`
	PriceAfterDiscount decimal.Decimal `json:"price_after_discount"`
	ImageURL           string          `json:"image_url"`
}

// LineItem is one row of the cart. Variant items carry the chosen color and
// size; non-variant items leave both empty.
type LineItem struct {
	ProductID          uuid.UUID           `json:"product_id"`
	Title              string              `json:"title"`
	Color              string              `json:"color"`
	Size               string              `json:"size"`
	Amount             int                 `json:"amount"`
	MaxAmount          int                 `json:"max_amount"`
	Price              decimal.Decimal     `json:"price"`
	PriceAfterDiscount decimal.Decimal     `json:"price_after_discount"`
	ImageURL           string              `json:"image_url"`
	IsPrintOnDemand    bool                `json:"is_print_on_demand"`
	CustomDesign       *types.CustomDesign `json:"custom_design,omitempty"`
}

// Matches reports whether the line item has the given identity. Variant
// identity is the (productID, color, size) triple, compared case-insensitively;
// non-variant items match on product alone.
func (li LineItem) Matches(productID uuid.UUID, color, size string) bool {
	if li.ProductID != productID {
		return false
	}
	return normalizeAttr(li.Color) == normalizeAttr(color) &&
		normalizeAttr(li.Size) == normalizeAttr(size)
}

// Shipment is the carrier selection folded into the cart total.
type Shipment struct {
	OptionID uuid.UUID       `json:"option_id"`
	Carrier  string          `json:"carrier"`
	Price    decimal.Decimal `json:"price"`
}

// State is the complete cart document for one owner. TotalItems and
// TotalAmount are derived; they are recomputed after every mutation rather
// than adjusted incrementally.
type State struct {
	Items       []LineItem      `json:"items"`
	Shipment    *Shipment       `json:"shipment,omitempty"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Empty returns the zero cart.
func Empty() State {
	return State{Items: []LineItem{}, TotalAmount: decimal.Zero}
}

// IsEmpty reports whether the cart holds no line items.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// LineTotal returns amount × discounted unit price for one row.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.PriceAfterDiscount.Mul(decimal.NewFromInt(int64(li.Amount)))
}

// recompute derives the totals from scratch: item count is the quantity sum,
// amount is the discounted line-item sum plus any chosen carrier price.
func recompute(s State) State {
	total := decimal.Zero
	count := 0
	for _, item := range s.Items {
		count += item.Amount
		total = total.Add(item.LineTotal())
	}
	if s.Shipment != nil {
		total = total.Add(s.Shipment.Price)
	}
	s.TotalItems = count
	s.TotalAmount = total
	return s
}

// clone deep-copies the state so ops never mutate the caller's value.
func clone(s State) State {
	out := s
	out.Items = make([]LineItem, len(s.Items))
	copy(out.Items, s.Items)
	if s.Shipment != nil {
		shipment := *s.Shipment
		out.Shipment = &shipment
	}
	return out
}

func normalizeAttr(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// FindVariant locates the row matching the color and size, case-insensitively.
func FindVariant(variants []Variant, color, size string) (Variant, bool) {
	for _, v := range variants {
		if normalizeAttr(v.Color) == normalizeAttr(color) && normalizeAttr(v.Size) == normalizeAttr(size) {
			return v, true
		}
	}
	return Variant{}, false
}
