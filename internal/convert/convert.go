// Package convert upgrades OpenAPI v2 documents to v3.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/gantryhq/gantry/internal/errors"
)

// DefaultBaseURL is the public swagger converter service.
const DefaultBaseURL = "https://converter.swagger.io/api/convert"

// Converter upgrades a rendered v2 document to v3.
type Converter interface {
	ToV3(ctx context.Context, doc []byte) ([]byte, error)
}

// HTTPConverter converts through the swagger converter service.
type HTTPConverter struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPConverter returns a converter against the public service.
func NewHTTPConverter() *HTTPConverter {
	return &HTTPConverter{
		BaseURL: DefaultBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPConverter) ToV3(ctx context.Context, doc []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("error building convert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/yaml")
	req.Header.Set("Accept", "application/yaml")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, apperrors.RemoteAPI("openapi conversion request failed", err, true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.RemoteAPI("error reading conversion response", err, true)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.RemoteAPI(
			fmt.Sprintf("openapi conversion failed with status %d", resp.StatusCode),
			fmt.Errorf("%s", bytes.TrimSpace(body)), resp.StatusCode >= 500)
	}
	return body, nil
}
