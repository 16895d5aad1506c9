package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Summary describes a manifest for the connect pipeline and for doctor
// style checks.
type Summary struct {
	Path     string
	Project  string
	Services []string
	Networks []string
}

// HasService reports whether name is defined.
func (s Summary) HasService(name string) bool {
	for _, svc := range s.Services {
		if svc == name {
			return true
		}
	}
	return false
}

// DefaultNetwork is the first declared network.
func (s Summary) DefaultNetwork() (string, error) {
	if len(s.Networks) == 0 {
		return "", fmt.Errorf("%s: %w", s.Path, ErrNoNetworks)
	}
	return s.Networks[0], nil
}

// Inspect loads the manifest at path under the compose grammar and lists
// its services and networks in document order.
func Inspect(ctx context.Context, path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Summary{}, fmt.Errorf("%s: %w", path, ErrManifestNotFound)
		}
		return Summary{}, fmt.Errorf("reading manifest: %w", err)
	}
	project, err := ComposeVerifier{}.LoadFile(ctx, path)
	if err != nil {
		return Summary{}, err
	}
	doc, err := Parse(data)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Path:     path,
		Project:  project.Name,
		Services: doc.ServiceNames(),
		Networks: doc.Networks(),
	}, nil
}

// Resolve returns the absolute path of the file a manifest path names,
// following symlinks so writes land on the shared file and not on the
// link. A missing file resolves to its absolute path.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	target, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return abs, nil
		}
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return target, nil
}
