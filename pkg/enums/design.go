package enums

import "fmt"

// DesignElementKind is the discriminator for the text/image element union.
type DesignElementKind string

const (
	DesignElementKindText  DesignElementKind = "text"
	DesignElementKindImage DesignElementKind = "image"
)

var validDesignElementKinds = []DesignElementKind{
	DesignElementKindText,
	DesignElementKindImage,
}

// String implements fmt.Stringer.
func (k DesignElementKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known DesignElementKind.
func (k DesignElementKind) IsValid() bool {
	for _, candidate := range validDesignElementKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseDesignElementKind converts raw input into a DesignElementKind.
func ParseDesignElementKind(value string) (DesignElementKind, error) {
	for _, candidate := range validDesignElementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid design element kind %q", value)
}
