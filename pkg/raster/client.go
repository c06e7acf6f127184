package raster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/printloom/storefront/pkg/config"
	pkgerrors "github.com/printloom/storefront/pkg/errors"
	"github.com/printloom/storefront/pkg/logger"
	"github.com/printloom/storefront/pkg/types"
)

// Rect is an axis-aligned region in product image coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RenderSpec is the wire contract with the render service.
type RenderSpec struct {
	ProductImageURL string                    `json:"product_image_url"`
	Color           string                    `json:"color"`
	Size            string                    `json:"size"`
	PrintArea       Rect                      `json:"print_area"`
	Elements        []types.DesignElementSpec `json:"elements"`
}

// the render service refuses anything bigger anyway
const maxRenderBytes = 64 << 20

// Client talks to the render service that turns a design session into
// print-ready PNGs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient validates the render service configuration.
func NewClient(cfg config.RasterConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("raster service url is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("raster logger is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logg,
	}, nil
}

// RenderBare renders the design alone on a transparent crop of the print
// area.
func (c *Client) RenderBare(ctx context.Context, spec RenderSpec) ([]byte, error) {
	return c.render(ctx, "/render/bare", spec)
}

// RenderComposite renders the design over the product image.
func (c *Client) RenderComposite(ctx context.Context, spec RenderSpec) ([]byte, error) {
	return c.render(ctx, "/render/composite", spec)
}

func (c *Client) render(ctx context.Context, path string, spec RenderSpec) ([]byte, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode render spec")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build render request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "render request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn(c.logger.WithFields(ctx, map[string]any{
			"status": resp.StatusCode,
			"path":   path,
		}), "render service rejected request")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("render service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRenderBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read render response")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "render service returned an empty image")
	}
	return data, nil
}
