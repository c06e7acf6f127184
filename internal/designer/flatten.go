package designer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"

	"github.com/printloom/storefront/internal/cart"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/raster"
	"github.com/printloom/storefront/pkg/types"
)

// Rasterizer renders a design session into print-ready PNGs. The bare render
// is the artwork alone on a transparent crop of the print area; the composite
// places it over the product photo.
type Rasterizer interface {
	RenderBare(ctx context.Context, spec raster.RenderSpec) ([]byte, error)
	RenderComposite(ctx context.Context, spec raster.RenderSpec) ([]byte, error)
}

type assetUploader interface {
	DefaultBucket() string
	Upload(ctx context.Context, bucket, object, contentType string, payload io.Reader) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

type cartAdder interface {
	AddDesignItem(ctx context.Context, ownerID string, item cart.LineItem) (*cart.State, error)
}

// FlattenInput finalizes a design session. Quantity defaults to one.
type FlattenInput struct {
	Qty int
}

// FlattenResult carries the updated cart after the design lands in it.
type FlattenResult struct {
	Item cart.LineItem `json:"item"`
	Cart *cart.State   `json:"cart"`
}

// Flatten renders the session, publishes both images, and adds the resulting
// line item to the owner's cart. On any failure past the uploads the published
// objects are removed again; the cart only ever sees a complete item.
func (s *service) Flatten(ctx context.Context, ownerID, sessionID string, input FlattenInput) (*FlattenResult, error) {
	session, err := s.sessions.Load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(session.Elements) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "design has no elements to flatten")
	}

	qty := input.Qty
	if qty <= 0 {
		qty = 1
	}

	product, variant, err := s.loadBlank(ctx, session.ProductID, session.Color, session.Size)
	if err != nil {
		return nil, err
	}
	if variant.MaxQty > 0 && qty > variant.MaxQty {
		qty = variant.MaxQty
	}

	spec := raster.RenderSpec{
		ProductImageURL: firstNonBlank(variant.ImageURL, product.ImageURL),
		Color:           session.Color,
		Size:            session.Size,
		PrintArea: raster.Rect{
			X:      session.PrintArea.X,
			Y:      session.PrintArea.Y,
			Width:  session.PrintArea.Width,
			Height: session.PrintArea.Height,
		},
		Elements: elementSpecs(session.Elements),
	}

	bare, err := s.raster.RenderBare(ctx, spec)
	if err != nil {
		return nil, err
	}
	composite, err := s.raster.RenderComposite(ctx, spec)
	if err != nil {
		return nil, err
	}

	bucket := s.storage.DefaultBucket()
	bareObject := flatObjectName(session.ID, "bare")
	compositeObject := flatObjectName(session.ID, "composite")

	bareURL, err := s.storage.Upload(ctx, bucket, bareObject, "image/png", bytes.NewReader(bare))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish bare design")
	}
	compositeURL, err := s.storage.Upload(ctx, bucket, compositeObject, "image/png", bytes.NewReader(composite))
	if err != nil {
		return nil, s.discardUploads(ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish composite design"), bucket, bareObject)
	}

	item := cart.LineItem{
		ProductID:          product.ID,
		Title:              product.Title,
		Color:              variant.Color,
		Size:               variant.Size,
		Amount:             qty,
		MaxAmount:          variant.MaxQty,
		Price:              variant.Price,
		PriceAfterDiscount: variant.PriceAfterDiscount,
		ImageURL:           compositeURL,
		IsPrintOnDemand:    true,
		CustomDesign: &types.CustomDesign{
			BareDesignURL: bareURL,
			CompositeURL:  compositeURL,
			Color:         variant.Color,
			Size:          variant.Size,
			Elements:      elementSpecs(session.Elements),
		},
	}

	state, err := s.carts.AddDesignItem(ctx, ownerID, item)
	if err != nil {
		return nil, s.discardUploads(ctx, err, bucket, bareObject, compositeObject)
	}

	ctx = s.logg.WithDesignSession(s.logg.WithCartOwner(ctx, ownerID), session.ID)
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "delete_error", err.Error()), "flattened design session not cleaned up")
	}

	s.metrics.IncDesignFlattened()
	s.logg.Info(ctx, "design flattened into cart")

	return &FlattenResult{Item: item, Cart: state}, nil
}

// discardUploads removes objects published earlier in a flatten that failed.
// Cleanup failures ride along on the returned error.
func (s *service) discardUploads(ctx context.Context, cause error, bucket string, objects ...string) error {
	err := cause
	for _, object := range objects {
		if delErr := s.storage.DeleteObject(ctx, bucket, object); delErr != nil {
			err = multierr.Append(err, fmt.Errorf("discard %s: %w", object, delErr))
		}
	}
	return err
}

func elementSpecs(elements []Element) []types.DesignElementSpec {
	specs := make([]types.DesignElementSpec, 0, len(elements))
	for _, element := range elements {
		specs = append(specs, element.Spec)
	}
	return specs
}

func flatObjectName(sessionID, kind string) string {
	return fmt.Sprintf("designs/flat/%s-%s.png", sessionID, kind)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
