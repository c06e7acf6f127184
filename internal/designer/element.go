package designer

import (
	"strings"

	"github.com/google/uuid"

	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/types"
)

// new elements take up this fraction of the print area's shorter span
const defaultElementScale = 0.5

const (
	minElementSpan  = 8.0
	defaultFontSize = 32.0
	defaultFont     = "Inter"
	defaultTextHue  = "#000000"
)

// PrintArea is the placeable region of the product blank, in product image
// coordinates.
type PrintArea struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one placed design element inside a session.
type Element struct {
	ID   uuid.UUID               `json:"id"`
	Spec types.DesignElementSpec `json:"spec"`
}

// Center returns the element's midpoint.
func (e Element) Center() Point {
	return Point{
		X: e.Spec.X + e.Spec.Width/2,
		Y: e.Spec.Y + e.Spec.Height/2,
	}
}

// TextInput creates a text element.
type TextInput struct {
	Content  string
	Font     string
	Color    string
	FontSize float64
}

// ImageInput creates an image element from an uploaded asset.
type ImageInput struct {
	OriginalURL          string
	BackgroundRemovedURL string
}

func newTextElement(area PrintArea, input TextInput) (Element, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return Element{}, pkgerrors.New(pkgerrors.CodeValidation, "text content is required")
	}

	spec := centeredSpec(area)
	spec.Kind = enums.DesignElementKindText
	spec.Text = &types.TextElementSpec{
		Content:  content,
		Font:     defaultString(input.Font, defaultFont),
		Color:    defaultString(input.Color, defaultTextHue),
		FontSize: defaultFloat(input.FontSize, defaultFontSize),
	}
	return Element{ID: uuid.New(), Spec: spec}, nil
}

func newImageElement(area PrintArea, input ImageInput) (Element, error) {
	if strings.TrimSpace(input.OriginalURL) == "" {
		return Element{}, pkgerrors.New(pkgerrors.CodeValidation, "image url is required")
	}

	spec := centeredSpec(area)
	spec.Kind = enums.DesignElementKindImage
	spec.Image = &types.ImageElementSpec{
		OriginalURL:          input.OriginalURL,
		BackgroundRemovedURL: input.BackgroundRemovedURL,
	}
	return Element{ID: uuid.New(), Spec: spec}, nil
}

// centeredSpec sizes a new element to half the print area's shorter span and
// drops it in the middle.
func centeredSpec(area PrintArea) types.DesignElementSpec {
	span := area.Width
	if area.Height < span {
		span = area.Height
	}
	size := span * defaultElementScale
	if size < minElementSpan {
		size = minElementSpan
	}
	return types.DesignElementSpec{
		X:      area.X + (area.Width-size)/2,
		Y:      area.Y + (area.Height-size)/2,
		Width:  size,
		Height: size,
	}
}

// moveElement repositions an element, clamped so it stays inside the print
// area.
func moveElement(area PrintArea, element Element, x, y float64) Element {
	element.Spec.X = clampFloat(x, area.X, area.X+area.Width-element.Spec.Width)
	element.Spec.Y = clampFloat(y, area.Y, area.Y+area.Height-element.Spec.Height)
	return element
}

// resizeElement rescales an element, bounded below by the minimum span and
// above by the print area; position is re-clamped afterwards.
func resizeElement(area PrintArea, element Element, width, height float64) Element {
	element.Spec.Width = clampFloat(width, minElementSpan, area.Width)
	element.Spec.Height = clampFloat(height, minElementSpan, area.Height)
	return moveElement(area, element, element.Spec.X, element.Spec.Y)
}

// rotateElement applies one drag frame of the rotation handle.
func rotateElement(element Element, startPtr, curPtr Point, startRotation float64) Element {
	element.Spec.Rotation = RotationDelta(element.Center(), startPtr, curPtr, startRotation)
	return element
}

func clampFloat(value, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func defaultFloat(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}
