package designer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printloom/storefront/pkg/enums"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
)

func testArea() PrintArea {
	return PrintArea{X: 100, Y: 50, Width: 300, Height: 200}
}

func TestNewTextElementCentered(t *testing.T) {
	element, err := newTextElement(testArea(), TextInput{Content: "hello"})
	require.NoError(t, err)

	// half the shorter span, dropped in the middle of the area
	assert.Equal(t, enums.DesignElementKindText, element.Spec.Kind)
	assert.Equal(t, 100.0, element.Spec.Width)
	assert.Equal(t, 100.0, element.Spec.Height)
	assert.Equal(t, 200.0, element.Spec.X)
	assert.Equal(t, 100.0, element.Spec.Y)

	require.NotNil(t, element.Spec.Text)
	assert.Equal(t, "hello", element.Spec.Text.Content)
	assert.Equal(t, defaultFont, element.Spec.Text.Font)
	assert.Equal(t, defaultTextHue, element.Spec.Text.Color)
	assert.Equal(t, defaultFontSize, element.Spec.Text.FontSize)
}

func TestNewTextElementRequiresContent(t *testing.T) {
	_, err := newTextElement(testArea(), TextInput{Content: "   "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestNewImageElement(t *testing.T) {
	element, err := newImageElement(testArea(), ImageInput{
		OriginalURL:          "https://cdn.example.com/a.png",
		BackgroundRemovedURL: "https://cdn.example.com/a-nobg.png",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DesignElementKindImage, element.Spec.Kind)
	require.NotNil(t, element.Spec.Image)
	assert.Equal(t, "https://cdn.example.com/a.png", element.Spec.Image.OriginalURL)
	assert.Equal(t, "https://cdn.example.com/a-nobg.png", element.Spec.Image.BackgroundRemovedURL)

	_, err = newImageElement(testArea(), ImageInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCenteredSpecFloorsTinyAreas(t *testing.T) {
	spec := centeredSpec(PrintArea{X: 0, Y: 0, Width: 10, Height: 10})
	assert.Equal(t, minElementSpan, spec.Width)
	assert.Equal(t, minElementSpan, spec.Height)
}

func TestMoveElementClampsToArea(t *testing.T) {
	area := testArea()
	element, err := newTextElement(area, TextInput{Content: "hi"})
	require.NoError(t, err)

	moved := moveElement(area, element, -500, -500)
	assert.Equal(t, area.X, moved.Spec.X)
	assert.Equal(t, area.Y, moved.Spec.Y)

	moved = moveElement(area, element, 9999, 9999)
	assert.Equal(t, area.X+area.Width-element.Spec.Width, moved.Spec.X)
	assert.Equal(t, area.Y+area.Height-element.Spec.Height, moved.Spec.Y)

	moved = moveElement(area, element, 150, 80)
	assert.Equal(t, 150.0, moved.Spec.X)
	assert.Equal(t, 80.0, moved.Spec.Y)
}

func TestResizeElementBounds(t *testing.T) {
	area := testArea()
	element, err := newTextElement(area, TextInput{Content: "hi"})
	require.NoError(t, err)

	resized := resizeElement(area, element, 1, 1)
	assert.Equal(t, minElementSpan, resized.Spec.Width)
	assert.Equal(t, minElementSpan, resized.Spec.Height)

	resized = resizeElement(area, element, 5000, 5000)
	assert.Equal(t, area.Width, resized.Spec.Width)
	assert.Equal(t, area.Height, resized.Spec.Height)
	// growing to the full area forces the element back to the origin corner
	assert.Equal(t, area.X, resized.Spec.X)
	assert.Equal(t, area.Y, resized.Spec.Y)
}

func TestRotateElementUsesCenter(t *testing.T) {
	element, err := newTextElement(testArea(), TextInput{Content: "hi"})
	require.NoError(t, err)

	center := element.Center()
	start := Point{X: center.X + 50, Y: center.Y}
	cur := Point{X: center.X, Y: center.Y + 50}

	rotated := rotateElement(element, start, cur, 0)
	assert.InDelta(t, 90, rotated.Spec.Rotation, 1e-9)
}
