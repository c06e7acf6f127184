package designer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printloom/storefront/pkg/config"
	"github.com/printloom/storefront/pkg/db/models"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/metrics"
)

type productCatalog interface {
	GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type bgDeriver interface {
	BackgroundRemovedURL(originalURL string) string
}

// StartInput opens a design session on one purchasable variant of a
// print-on-demand blank.
type StartInput struct {
	OwnerID   string
	ProductID uuid.UUID
	Color     string
	Size      string
}

// MoveInput repositions an element to the given top-left corner.
type MoveInput struct {
	X float64
	Y float64
}

// ResizeInput rescales an element.
type ResizeInput struct {
	Width  float64
	Height float64
}

// RotateInput is one frame of a rotation-handle drag: where the pointer went
// down, where it is now, and the rotation the element had at drag start.
type RotateInput struct {
	StartPointer   Point
	CurrentPointer Point
	StartRotation  float64
}

// Service drives the design customizer: sessions live in Redis until the
// shopper flattens the design into a cart line item.
type Service interface {
	StartSession(ctx context.Context, input StartInput) (*Session, error)
	GetSession(ctx context.Context, ownerID, sessionID string) (*Session, error)
	AddText(ctx context.Context, ownerID, sessionID string, input TextInput) (*Session, error)
	AddImage(ctx context.Context, ownerID, sessionID string, input ImageInput) (*Session, error)
	MoveElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID, input MoveInput) (*Session, error)
	ResizeElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID, input ResizeInput) (*Session, error)
	RotateElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID, input RotateInput) (*Session, error)
	RemoveElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID) (*Session, error)
	Flatten(ctx context.Context, ownerID, sessionID string, input FlattenInput) (*FlattenResult, error)
}

// Deps bundles the designer's collaborators.
type Deps struct {
	Sessions *SessionStore
	Products productCatalog
	Media    bgDeriver
	Raster   Rasterizer
	Storage  assetUploader
	Carts    cartAdder
	Config   config.DesignerConfig
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
}

type service struct {
	sessions *SessionStore
	products productCatalog
	media    bgDeriver
	raster   Rasterizer
	storage  assetUploader
	carts    cartAdder
	cfg      config.DesignerConfig
	metrics  *metrics.StorefrontMetrics
	logg     *logger.Logger
}

// NewService validates the collaborators and builds the customizer service.
func NewService(deps Deps) (Service, error) {
	for name, dep := range map[string]any{
		"session store":   deps.Sessions,
		"product catalog": deps.Products,
		"media service":   deps.Media,
		"rasterizer":      deps.Raster,
		"object storage":  deps.Storage,
		"cart service":    deps.Carts,
		"logger":          deps.Logger,
	} {
		if dep == nil || isNilValue(dep) {
			return nil, fmt.Errorf("designer %s required", name)
		}
	}
	return &service{
		sessions: deps.Sessions,
		products: deps.Products,
		media:    deps.Media,
		raster:   deps.Raster,
		storage:  deps.Storage,
		carts:    deps.Carts,
		cfg:      deps.Config,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
	}, nil
}

func (s *service) StartSession(ctx context.Context, input StartInput) (*Session, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}

	product, variant, err := s.loadBlank(ctx, input.ProductID, input.Color, input.Size)
	if err != nil {
		return nil, err
	}

	session := Session{
		ID:        uuid.NewString(),
		OwnerID:   input.OwnerID,
		ProductID: product.ID,
		Title:     product.Title,
		Color:     variant.Color,
		Size:      variant.Size,
		PrintArea: PrintArea{
			X:      product.PrintAreaX,
			Y:      product.PrintAreaY,
			Width:  product.PrintAreaWidth,
			Height: product.PrintAreaHeight,
		},
		Elements: []Element{},
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	ctx = s.logg.WithDesignSession(ctx, session.ID)
	s.logg.Info(ctx, "design session started")
	return &session, nil
}

func (s *service) GetSession(ctx context.Context, ownerID, sessionID string) (*Session, error) {
	session, err := s.sessions.Load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) AddText(ctx context.Context, ownerID, sessionID string, input TextInput) (*Session, error) {
	return s.mutate(ctx, ownerID, sessionID, func(session *Session) error {
		if err := s.checkCapacity(session); err != nil {
			return err
		}
		element, err := newTextElement(session.PrintArea, input)
		if err != nil {
			return err
		}
		session.Elements = append(session.Elements, element)
		return nil
	})
}

func (s *service) AddImage(ctx context.Context, ownerID, sessionID string, input ImageInput) (*Session, error) {
	return s.mutate(ctx, ownerID, sessionID, func(session *Session) error {
		if err := s.checkCapacity(session); err != nil {
			return err
		}
		if strings.TrimSpace(input.BackgroundRemovedURL) == "" {
			input.BackgroundRemovedURL = s.media.BackgroundRemovedURL(input.OriginalURL)
		}
		element, err := newImageElement(session.PrintArea, input)
		if err != nil {
			return err
		}
		session.Elements = append(session.Elements, element)
		return nil
	})
}

func (s *service) MoveElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID, input MoveInput) (*Session, error) {
	return s.mutateElement(ctx, ownerID, sessionID, elementID, func(session *Session, idx int) {
		session.Elements[idx] = moveElement(session.PrintArea, session.Elements[idx], input.X, input.Y)
	})
}

func (s *service) ResizeElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID, input ResizeInput) (*Session, error) {
	return s.mutateElement(ctx, ownerID, sessionID, elementID, func(session *Session, idx int) {
		session.Elements[idx] = resizeElement(session.PrintArea, session.Elements[idx], input.Width, input.Height)
	})
}

func (s *service) RotateElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID, input RotateInput) (*Session, error) {
	return s.mutateElement(ctx, ownerID, sessionID, elementID, func(session *Session, idx int) {
		session.Elements[idx] = rotateElement(session.Elements[idx], input.StartPointer, input.CurrentPointer, input.StartRotation)
	})
}

func (s *service) RemoveElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID) (*Session, error) {
	return s.mutate(ctx, ownerID, sessionID, func(session *Session) error {
		idx, ok := session.findElement(elementID)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "design element not found")
		}
		session.Elements = append(session.Elements[:idx], session.Elements[idx+1:]...)
		return nil
	})
}

func (s *service) mutate(ctx context.Context, ownerID, sessionID string, apply func(*Session) error) (*Session, error) {
	session, err := s.sessions.Load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := apply(&session); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) mutateElement(ctx context.Context, ownerID, sessionID string, elementID uuid.UUID, apply func(*Session, int)) (*Session, error) {
	return s.mutate(ctx, ownerID, sessionID, func(session *Session) error {
		idx, ok := session.findElement(elementID)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "design element not found")
		}
		apply(session, idx)
		return nil
	})
}

func (s *service) checkCapacity(session *Session) error {
	if s.cfg.MaxElements > 0 && len(session.Elements) >= s.cfg.MaxElements {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "design element limit reached").
			WithDetails(map[string]any{"max_elements": s.cfg.MaxElements})
	}
	return nil
}

// loadBlank resolves an active print-on-demand product and the chosen variant.
func (s *service) loadBlank(ctx context.Context, productID uuid.UUID, color, size string) (*models.Product, *models.ProductVariant, error) {
	if productID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.products.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, err
	}
	if !product.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !product.IsPrintOnDemand() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not customizable")
	}
	if product.PrintAreaWidth <= 0 || product.PrintAreaHeight <= 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product has no print area configured")
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		if strings.EqualFold(v.Color, strings.TrimSpace(color)) && strings.EqualFold(v.Size, strings.TrimSpace(size)) {
			return product, v, nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
}

func isNilValue(v any) bool {
	switch typed := v.(type) {
	case *SessionStore:
		return typed == nil
	case *logger.Logger:
		return typed == nil
	default:
		return false
	}
}
