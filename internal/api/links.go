package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/permalink>; rel="permalink"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/layers": {
		`</api/v1/permalink>; rel="permalink"`,
		`</api/v1/assets>; rel="assets"`,
		`</api/v1/events>; rel="events"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/permalink": {
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/camera>; rel="camera"`,
	},
	"/api/v1/assets": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/quakes": {
		`</api/v1/layers>; rel="layers"`,
	},
}

// itemActions lists the sub-resources of a layer.
var itemActions = []string{"activate", "visibility", "opacity", "position", "tiles"}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link, layers their actions
		if strings.Contains(op.Path, "{") {
			self := ctx.URL().Path
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, self))
			if op.Path == "/api/v1/layers/{id}" {
				for _, action := range itemActions {
					ctx.AppendHeader("Link", fmt.Sprintf(`<%s/%s>; rel="%s"`, self, action, action))
				}
			}
		}

		return v, nil
	}
}
