package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the Cesium ion endpoint template; %s is the asset id.
const DefaultEndpoint = "https://api.cesium.com/v1/assets/%s/endpoint"

// maxDocument bounds fetched documents.
const maxDocument = 256 << 20

// HTTP resolves asset ids through an endpoint service and fetches over HTTP.
type HTTP struct {
	Endpoint string // fmt template with one %s for the asset id
	Token    string
	Client   *http.Client
}

// NewHTTP returns an HTTP resolver. An empty endpoint selects DefaultEndpoint.
func NewHTTP(endpoint, token string) *HTTP {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTP{
		Endpoint: endpoint,
		Token:    token,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Resolve returns direct URLs unchanged and asks the endpoint service for
// everything else.
func (h *HTTP) Resolve(ctx context.Context, ref string) (Resource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Resource{}, ErrInvalidRef
	}
	if IsURL(ref) {
		return Resource{URL: ref}, nil
	}

	body, err := h.get(ctx, fmt.Sprintf(h.Endpoint, ref), h.Token)
	if err != nil {
		return Resource{}, fmt.Errorf("resolving asset %s: %w", ref, err)
	}
	var res Resource
	if err := json.Unmarshal(body, &res); err != nil {
		return Resource{}, fmt.Errorf("decoding endpoint for asset %s: %w", ref, err)
	}
	if res.URL == "" {
		return Resource{}, fmt.Errorf("asset %s: %w", ref, ErrNotFound)
	}
	return res, nil
}

// Fetch downloads the resource, authorizing with its access token.
func (h *HTTP) Fetch(ctx context.Context, res Resource) ([]byte, error) {
	return h.get(ctx, res.URL, res.AccessToken)
}

func (h *HTTP) get(ctx context.Context, url, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", url, ErrNotFound)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocument))
}

var _ Resolver = (*HTTP)(nil)
