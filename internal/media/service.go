package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/printloom/storefront/pkg/config"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
)

// background-removed renders live next to the original with a marker suffix
const bgRemovedSuffix = "-nobg"

const jpegQuality = 90

var extByMime = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// AssetDTO describes one stored design asset.
type AssetDTO struct {
	Object      string `json:"object"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// UploadInput carries one raw image destined for the design editor.
type UploadInput struct {
	OwnerID     string
	Filename    string
	ContentType string
	Data        []byte
}

// Service validates and stores customizer images.
type Service interface {
	UploadDesignAsset(ctx context.Context, input UploadInput) (*AssetDTO, error)
	DeleteAsset(ctx context.Context, object string) error
	PresignRead(object string, expires time.Duration) (string, error)
	BackgroundRemovedURL(originalURL string) string
}

type objectStorage interface {
	DefaultBucket() string
	Upload(ctx context.Context, bucket, object, contentType string, payload io.Reader) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

type service struct {
	storage objectStorage
	cfg     config.MediaConfig
	logger  *logger.Logger
}

// NewService constructs the media service.
func NewService(storage objectStorage, cfg config.MediaConfig, logg *logger.Logger) (Service, error) {
	if storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{storage: storage, cfg: cfg, logger: logg}, nil
}

func (s *service) UploadDesignAsset(ctx context.Context, input UploadInput) (*AssetDTO, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}
	if len(input.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if maxBytes := s.cfg.MaxUploadMB * 1024 * 1024; maxBytes > 0 && len(input.Data) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %dMB", s.cfg.MaxUploadMB)).
			WithDetails(map[string]any{"max_mb": s.cfg.MaxUploadMB})
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	ext, allowed := extByMime[contentType]
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only png, jpeg, and gif images are accepted").
			WithDetails(map[string]any{"content_type": contentType})
	}

	img, format, err := image.Decode(bytes.NewReader(input.Data))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is not a decodable image")
	}
	if declared := strings.TrimPrefix(contentType, "image/"); !formatMatches(format, declared) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file content does not match its declared type")
	}

	data := input.Data
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if edge := s.cfg.ImageMaxEdge; edge > 0 && (width > edge || height > edge) {
		scaled := downscale(img, edge)
		encoded, err := encodeImage(scaled, format)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-encode scaled image")
		}
		data = encoded
		width, height = scaled.Bounds().Dx(), scaled.Bounds().Dy()
	}

	object := designObjectName(input.OwnerID, ext)
	url, err := s.storage.Upload(ctx, s.storage.DefaultBucket(), object, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload design asset")
	}

	ctx = s.logger.WithField(ctx, "object", object)
	s.logger.Info(ctx, "design asset uploaded")

	return &AssetDTO{
		Object:      object,
		URL:         url,
		ContentType: contentType,
		Width:       width,
		Height:      height,
	}, nil
}

func (s *service) DeleteAsset(ctx context.Context, object string) error {
	if strings.TrimSpace(object) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "object name is required")
	}
	if err := s.storage.DeleteObject(ctx, s.storage.DefaultBucket(), object); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete design asset")
	}
	return nil
}

func (s *service) PresignRead(object string, expires time.Duration) (string, error) {
	if strings.TrimSpace(object) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "object name is required")
	}
	url, err := s.storage.SignedReadURL(s.storage.DefaultBucket(), object, expires)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign read url")
	}
	return url, nil
}

// BackgroundRemovedURL maps an original upload URL onto the URL where its
// background-removed companion is published.
func (s *service) BackgroundRemovedURL(originalURL string) string {
	trimmed := strings.TrimSpace(originalURL)
	if trimmed == "" {
		return ""
	}
	ext := path.Ext(trimmed)
	if ext == "" {
		return trimmed + bgRemovedSuffix
	}
	return strings.TrimSuffix(trimmed, ext) + bgRemovedSuffix + ext
}

// OwnsObject reports whether object lives in the owner's design namespace.
func OwnsObject(ownerID, object string) bool {
	if strings.TrimSpace(ownerID) == "" {
		return false
	}
	return strings.HasPrefix(object, "designs/"+ownerID+"/")
}

func designObjectName(ownerID, ext string) string {
	return fmt.Sprintf("designs/%s/%s%s", ownerID, uuid.NewString(), ext)
}

// downscale shrinks src so its longest edge fits maxEdge, preserving the
// aspect ratio.
func downscale(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}

	scale := float64(maxEdge) / float64(longest)
	dw := int(float64(w)*scale + 0.5)
	dh := int(float64(h)*scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func formatMatches(format, declared string) bool {
	if format == declared {
		return true
	}
	return format == "jpeg" && declared == "jpg"
}
