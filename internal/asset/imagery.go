package asset

import (
	"context"
	"fmt"
	"strings"
)

// DefaultImageryTemplate is the swisstopo WMTS tile template; {layer} is
// replaced by the layer name, the rest is left to the client.
const DefaultImageryTemplate = "https://wmts.geo.admin.ch/1.0.0/{layer}/default/current/3857/{z}/{x}/{y}.jpeg"

// ImageryProvider resolves named base-map layers to tile URL templates.
type ImageryProvider interface {
	Imagery(ctx context.Context, name string) (string, error)
}

// WMTS builds tile URL templates from a fixed pattern.
type WMTS struct {
	Template string
}

// NewWMTS returns a provider for template, or DefaultImageryTemplate.
func NewWMTS(template string) *WMTS {
	if template == "" {
		template = DefaultImageryTemplate
	}
	return &WMTS{Template: template}
}

func (w *WMTS) Imagery(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, "/?#{}") {
		return "", fmt.Errorf("%w: imagery layer %q", ErrInvalidRef, name)
	}
	if !strings.Contains(w.Template, "{layer}") {
		return "", fmt.Errorf("imagery template %q has no {layer} placeholder", w.Template)
	}
	return strings.ReplaceAll(w.Template, "{layer}", name), nil
}
