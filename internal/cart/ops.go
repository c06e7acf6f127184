package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/printloom/storefront/pkg/errors"
)

// Op is the closed set of cart transitions. Each implementation carries its
// own apply logic; the sealed marker keeps the union closed to this package.
type Op interface {
	apply(s State) (State, error)
}

// Apply runs one op against the state and returns the next state with totals
// recomputed. The input state is never mutated.
func Apply(s State, op Op) (State, error) {
	if op == nil {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "cart op is required")
	}
	next, err := op.apply(clone(s))
	if err != nil {
		return State{}, err
	}
	return recompute(next), nil
}

// AddItem merges the snapshot into an existing identity or appends it.
type AddItem struct {
	Item LineItem
}

func (op AddItem) apply(s State) (State, error) {
	item := op.Item
	if item.ProductID == uuid.Nil {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if item.Amount < 1 {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}
	if item.MaxAmount < 1 {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "max amount must be at least 1")
	}

	for i := range s.Items {
		if s.Items[i].Matches(item.ProductID, item.Color, item.Size) {
			merged := s.Items[i].Amount + item.Amount
			s.Items[i].Amount = clampAmount(merged, s.Items[i].MaxAmount)
			return s, nil
		}
	}

	item.Amount = clampAmount(item.Amount, item.MaxAmount)
	s.Items = append(s.Items, item)
	return s, nil
}

// RemoveItem drops every line matching the normalized identity triple.
type RemoveItem struct {
	ProductID uuid.UUID
	Color     string
	Size      string
}

func (op RemoveItem) apply(s State) (State, error) {
	kept := s.Items[:0:0]
	for _, item := range s.Items {
		if !item.Matches(op.ProductID, op.Color, op.Size) {
			kept = append(kept, item)
		}
	}
	s.Items = kept
	return s, nil
}

// IncrementQty raises the quantity of one line by one, clamped to its max.
type IncrementQty struct {
	ProductID uuid.UUID
	Color     string
	Size      string
}

func (op IncrementQty) apply(s State) (State, error) {
	idx, err := indexOf(s, op.ProductID, op.Color, op.Size)
	if err != nil {
		return State{}, err
	}
	s.Items[idx].Amount = clampAmount(s.Items[idx].Amount+1, s.Items[idx].MaxAmount)
	return s, nil
}

// DecrementQty lowers the quantity of one line by one, flooring at one.
// It never removes the line; that is RemoveItem's job.
type DecrementQty struct {
	ProductID uuid.UUID
	Color     string
	Size      string
}

func (op DecrementQty) apply(s State) (State, error) {
	idx, err := indexOf(s, op.ProductID, op.Color, op.Size)
	if err != nil {
		return State{}, err
	}
	s.Items[idx].Amount = clampAmount(s.Items[idx].Amount-1, s.Items[idx].MaxAmount)
	return s, nil
}

// ChangeColor re-points one line at the variant with the new color. Row
// selection uses the previous triple; max, price, and image come from the
// catalog slice resolved by the service, and quantity is re-clamped.
type ChangeColor struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	NewColor  string
	Variants  []Variant
}

func (op ChangeColor) apply(s State) (State, error) {
	idx, err := indexOf(s, op.ProductID, op.Color, op.Size)
	if err != nil {
		return State{}, err
	}
	variant, ok := FindVariant(op.Variants, op.NewColor, s.Items[idx].Size)
	if !ok {
		return State{}, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for requested color")
	}
	applyVariant(&s.Items[idx], variant)
	return s, nil
}

// ChangeSize re-points one line at the variant with the new size, mirroring
// ChangeColor.
type ChangeSize struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	NewSize   string
	Variants  []Variant
}

func (op ChangeSize) apply(s State) (State, error) {
	idx, err := indexOf(s, op.ProductID, op.Color, op.Size)
	if err != nil {
		return State{}, err
	}
	variant, ok := FindVariant(op.Variants, s.Items[idx].Color, op.NewSize)
	if !ok {
		return State{}, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for requested size")
	}
	applyVariant(&s.Items[idx], variant)
	return s, nil
}

// SetShipment records the chosen carrier; recompute folds its price into the
// total on top of the pure line-item sum.
type SetShipment struct {
	OptionID uuid.UUID
	Carrier  string
	Price    decimal.Decimal
}

func (op SetShipment) apply(s State) (State, error) {
	if op.OptionID == uuid.Nil {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping option id is required")
	}
	if op.Price.IsNegative() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping price cannot be negative")
	}
	s.Shipment = &Shipment{OptionID: op.OptionID, Carrier: op.Carrier, Price: op.Price}
	return s, nil
}

// Clear empties the cart entirely, shipment included.
type Clear struct{}

func (op Clear) apply(s State) (State, error) {
	s.Items = []LineItem{}
	s.Shipment = nil
	return s, nil
}

func indexOf(s State, productID uuid.UUID, color, size string) (int, error) {
	for i := range s.Items {
		if s.Items[i].Matches(productID, color, size) {
			return i, nil
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func applyVariant(item *LineItem, variant Variant) {
	item.Color = variant.Color
	item.Size = variant.Size
	item.MaxAmount = variant.MaxQty
	item.Price = variant.Price
	item.PriceAfterDiscount = variant.PriceAfterDiscount
	item.ImageURL = variant.ImageURL
	item.Amount = clampAmount(item.Amount, item.MaxAmount)
}

func clampAmount(amount, max int) int {
	if amount < 1 {
		return 1
	}
	if max > 0 && amount > max {
		return max
	}
	return amount
}
