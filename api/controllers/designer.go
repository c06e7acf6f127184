package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printloom/storefront/api/responses"
	"github.com/printloom/storefront/api/validators"
	"github.com/printloom/storefront/internal/designer"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
)

type startDesignRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color" validate:"required"`
	Size      string    `json:"size" validate:"required"`
}

type addTextRequest struct {
	Content  string  `json:"content" validate:"required"`
	Font     string  `json:"font"`
	Color    string  `json:"color"`
	FontSize float64 `json:"font_size"`
}

type addImageRequest struct {
	OriginalURL          string `json:"original_url" validate:"required,url"`
	BackgroundRemovedURL string `json:"background_removed_url,omitempty"`
}

type moveElementRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type resizeElementRequest struct {
	Width  float64 `json:"width" validate:"required,min=1"`
	Height float64 `json:"height" validate:"required,min=1"`
}

type rotateElementRequest struct {
	StartX        float64 `json:"start_x"`
	StartY        float64 `json:"start_y"`
	CurrentX      float64 `json:"current_x"`
	CurrentY      float64 `json:"current_y"`
	StartRotation float64 `json:"start_rotation"`
}

type flattenRequest struct {
	Qty int `json:"qty"`
}

func designSessionID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return id, nil
}

func StartDesignSession(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startDesignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.StartSession(r.Context(), designer.StartInput{
			OwnerID:   owner,
			ProductID: payload.ProductID,
			Color:     payload.Color,
			Size:      payload.Size,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

func GetDesignSession(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := designSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetSession(r.Context(), owner, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func AddDesignText(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := designSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addTextRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.AddText(r.Context(), owner, sessionID, designer.TextInput{
			Content:  payload.Content,
			Font:     payload.Font,
			Color:    payload.Color,
			FontSize: payload.FontSize,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func AddDesignImage(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := designSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addImageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.AddImage(r.Context(), owner, sessionID, designer.ImageInput{
			OriginalURL:          payload.OriginalURL,
			BackgroundRemovedURL: payload.BackgroundRemovedURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// designElementAction factors the shared owner/session/element plumbing of
// the per-element ops.
func designElementAction(logg *logger.Logger, apply func(*http.Request, string, string, uuid.UUID) (*designer.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := designSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		elementID, err := validators.URLParamUUID(r, "elementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := apply(r, owner, sessionID, elementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func MoveDesignElement(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return designElementAction(logg, func(r *http.Request, owner, sessionID string, elementID uuid.UUID) (*designer.Session, error) {
		var payload moveElementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.MoveElement(r.Context(), owner, sessionID, elementID, designer.MoveInput{
			X: payload.X,
			Y: payload.Y,
		})
	})
}

func ResizeDesignElement(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return designElementAction(logg, func(r *http.Request, owner, sessionID string, elementID uuid.UUID) (*designer.Session, error) {
		var payload resizeElementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.ResizeElement(r.Context(), owner, sessionID, elementID, designer.ResizeInput{
			Width:  payload.Width,
			Height: payload.Height,
		})
	})
}

func RotateDesignElement(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return designElementAction(logg, func(r *http.Request, owner, sessionID string, elementID uuid.UUID) (*designer.Session, error) {
		var payload rotateElementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.RotateElement(r.Context(), owner, sessionID, elementID, designer.RotateInput{
			StartPointer:   designer.Point{X: payload.StartX, Y: payload.StartY},
			CurrentPointer: designer.Point{X: payload.CurrentX, Y: payload.CurrentY},
			StartRotation:  payload.StartRotation,
		})
	})
}

func RemoveDesignElement(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return designElementAction(logg, func(r *http.Request, owner, sessionID string, elementID uuid.UUID) (*designer.Session, error) {
		return svc.RemoveElement(r.Context(), owner, sessionID, elementID)
	})
}

func FlattenDesign(svc designer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := requireCartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := designSessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload flattenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Flatten(r.Context(), owner, sessionID, designer.FlattenInput{Qty: payload.Qty})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
