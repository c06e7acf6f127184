package enums

import "fmt"

// ShippingKind classifies carrier options offered at checkout.
type ShippingKind string

const (
	ShippingKindStandard      ShippingKind = "standard"
	ShippingKindExpress       ShippingKind = "express"
	ShippingKindLocalPickup   ShippingKind = "local_pickup"
	ShippingKindLocalDelivery ShippingKind = "local_delivery"
)

var validShippingKinds = []ShippingKind{
	ShippingKindStandard,
	ShippingKindExpress,
	ShippingKindLocalPickup,
	ShippingKindLocalDelivery,
}

// String implements fmt.Stringer.
func (k ShippingKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known ShippingKind.
func (k ShippingKind) IsValid() bool {
	for _, candidate := range validShippingKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsLocal reports whether the option is a local pickup or delivery carrier.
func (k ShippingKind) IsLocal() bool {
	return k == ShippingKindLocalPickup || k == ShippingKindLocalDelivery
}

// ParseShippingKind converts raw input into a ShippingKind.
func ParseShippingKind(value string) (ShippingKind, error) {
	for _, candidate := range validShippingKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping kind %q", value)
}
