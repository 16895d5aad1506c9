// Package generate turns a service descriptor into the files needed to run
// it behind the local proxy: a Dockerfile, a .dockerignore and the compose
// service entry.
package generate

import (
	"github.com/natejswenson/traefik-local-cli/internal/model"
)

// Options carries the routing and placement settings that are not part of
// the descriptor.
type Options struct {
	DomainSuffix  string
	Network       string
	ProxyService  string
	Entrypoint    string // proxy entrypoint name
	TLS           bool
	ManifestDir   string
	Env           map[string]string // dependency overrides, already validated
	HealthCommand string
}

// DefaultOptions matches the stock local proxy setup.
func DefaultOptions() Options {
	return Options{
		DomainSuffix: "localhost",
		ProxyService: "traefik",
		Entrypoint:   "websecure",
		TLS:          true,
	}
}

// Artifacts is everything Generate produces.
type Artifacts struct {
	BuildFile  string
	IgnoreFile string
	Fragment   string
}

// Generate renders every artifact for d. The result depends only on its
// arguments.
func Generate(d model.ServiceDescriptor, opts Options) (Artifacts, error) {
	build, err := BuildFile(d)
	if err != nil {
		return Artifacts{}, err
	}
	fragment, err := FragmentText(d, opts)
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{
		BuildFile:  build,
		IgnoreFile: IgnoreFile(d.Language),
		Fragment:   fragment,
	}, nil
}
