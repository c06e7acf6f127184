package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/printloom/storefront/pkg/enums"
)

// TextElementSpec carries the text half of the element union.
type TextElementSpec struct {
	Content  string  `json:"content"`
	Font     string  `json:"font"`
	Color    string  `json:"color"`
	FontSize float64 `json:"font_size"`
}

// ImageElementSpec carries the image half of the element union. The
// background-removed URL is derived from the original by the media service.
type ImageElementSpec struct {
	OriginalURL          string `json:"original_url"`
	BackgroundRemovedURL string `json:"background_removed_url"`
}

// DesignElementSpec is the serialized descriptor of one placed element.
// Exactly one of Text or Image is set, matching Kind.
type DesignElementSpec struct {
	Kind     enums.DesignElementKind `json:"kind"`
	X        float64                 `json:"x"`
	Y        float64                 `json:"y"`
	Width    float64                 `json:"width"`
	Height   float64                 `json:"height"`
	Rotation float64                 `json:"rotation"`
	Text     *TextElementSpec        `json:"text,omitempty"`
	Image    *ImageElementSpec       `json:"image,omitempty"`
}

// CustomDesign is the flattened design payload attached to a cart line item
// and snapshotted onto order line items. Stored as jsonb.
type CustomDesign struct {
	BareDesignURL string              `json:"bare_design_url"`
	CompositeURL  string              `json:"composite_url"`
	Color         string              `json:"color"`
	Size          string              `json:"size"`
	Elements      []DesignElementSpec `json:"elements"`
}

// Value marshals the design into jsonb.
func (d CustomDesign) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan decodes the jsonb column back into the struct.
func (d *CustomDesign) Scan(value interface{}) error {
	if value == nil {
		*d = CustomDesign{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("custom design: unsupported scan type %T", value)
	}
}
