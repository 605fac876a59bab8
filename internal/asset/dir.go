package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File describes an asset stored in a local directory.
type File struct {
	Name string `json:"name" doc:"File name" example:"faults.geojson"`
	Size string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	Type string `json:"type" doc:"Asset type" example:"GEOJSON"`
}

// extToType maps supported file extensions to asset types.
var extToType = map[string]string{
	".geojson": "GEOJSON",
	".json":    "3DTILES",
	".csv":     "CSV",
}

// extOrder is the lookup order for references given without extension.
var extOrder = []string{".geojson", ".json", ".csv"}

// Dir resolves asset references to files below a directory. A reference
// is either a file name or a file name without extension.
type Dir struct {
	root string
}

// NewDir returns a resolver rooted at dataDir/assets.
func NewDir(dataDir string) *Dir {
	return &Dir{root: filepath.Join(dataDir, "assets")}
}

// Root returns the assets directory.
func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) Resolve(ctx context.Context, ref string) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, err
	}
	if ref == "" || strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "..") {
		return Resource{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	candidates := []string{ref}
	if filepath.Ext(ref) == "" {
		for _, ext := range extOrder {
			candidates = append(candidates, ref+ext)
		}
	}
	for _, name := range candidates {
		path := filepath.Join(d.root, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return Resource{
			URL:  "file://" + filepath.ToSlash(path),
			Type: extToType[strings.ToLower(filepath.Ext(name))],
		}, nil
	}
	return Resource{}, fmt.Errorf("asset %s: %w", ref, ErrNotFound)
}

func (d *Dir) Fetch(ctx context.Context, res Resource) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := strings.CutPrefix(res.URL, "file://")
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a local file", ErrInvalidRef, res.URL)
	}
	data, err := os.ReadFile(filepath.FromSlash(path))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", res.URL, ErrNotFound)
	}
	return data, err
}

// List returns all supported asset files.
func (d *Dir) List() ([]File, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []File{}, nil
		}
		return nil, err
	}

	files := []File{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		typ, ok := extToType[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			Name: entry.Name(),
			Size: formatSize(info.Size()),
			Type: typ,
		})
	}
	return files, nil
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

var _ Resolver = (*Dir)(nil)
