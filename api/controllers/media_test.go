package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/printloom/storefront/internal/media"
	"github.com/printloom/storefront/pkg/config"
)

type stubMediaService struct {
	lastObject  string
	lastExpires time.Duration
}

func (s *stubMediaService) UploadDesignAsset(ctx context.Context, input media.UploadInput) (*media.AssetDTO, error) {
	panic("unimplemented")
}

func (s *stubMediaService) DeleteAsset(ctx context.Context, object string) error {
	panic("unimplemented")
}

func (s *stubMediaService) PresignRead(object string, expires time.Duration) (string, error) {
	s.lastObject = object
	s.lastExpires = expires
	return "https://storage.example.com/" + object + "?Signature=abc", nil
}

func (s *stubMediaService) BackgroundRemovedURL(originalURL string) string {
	panic("unimplemented")
}

func TestDesignAssetURLSignsOwnedObject(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubMediaService{}
	cfg := config.MediaConfig{SignedURLTTL: 15 * time.Minute}
	handler := DesignAssetURL(svc, cfg, nil)

	object := "designs/" + owner + "/asset.png"
	req := withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/media/assets/url?object="+object, nil), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastObject != object {
		t.Fatalf("expected object %q signed, got %q", object, svc.lastObject)
	}
	if svc.lastExpires != cfg.SignedURLTTL {
		t.Fatalf("expected ttl %v, got %v", cfg.SignedURLTTL, svc.lastExpires)
	}

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["url"] == "" {
		t.Fatal("expected signed url in response")
	}
}

func TestDesignAssetURLRejectsForeignObject(t *testing.T) {
	owner := uuid.NewString()
	svc := &stubMediaService{}
	handler := DesignAssetURL(svc, config.MediaConfig{SignedURLTTL: time.Minute}, nil)

	req := withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/media/assets/url?object=designs/someone-else/asset.png", nil), owner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if svc.lastObject != "" {
		t.Fatalf("signing must not run for foreign objects, signed %q", svc.lastObject)
	}
}

func TestDesignAssetURLRequiresObject(t *testing.T) {
	handler := DesignAssetURL(&stubMediaService{}, config.MediaConfig{SignedURLTTL: time.Minute}, nil)

	req := withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/media/assets/url", nil), uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
