// Package asset resolves opaque asset references from the layer catalog to
// loadable resources and fetches their content.
package asset

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound   = errors.New("asset not found")
	ErrInvalidRef = errors.New("invalid asset reference")
)

// Resource is a resolved, loadable asset.
type Resource struct {
	URL         string `json:"url"`
	AccessToken string `json:"accessToken,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Resolver is the asset-resolution capability.
type Resolver interface {
	// Resolve maps a reference (asset id or URL) to a resource.
	Resolve(ctx context.Context, ref string) (Resource, error)
	// Fetch loads the content of a resource.
	Fetch(ctx context.Context, res Resource) ([]byte, error)
}

// IsURL reports whether ref is a direct http(s) URL rather than an asset id.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
