package wizard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/natejswenson/traefik-local-cli/internal/config"
	"github.com/natejswenson/traefik-local-cli/internal/manifest"
	"github.com/natejswenson/traefik-local-cli/internal/util"
)

// ConfigPath is where init writes the config: the working directory, or
// the per-user directory config.Init also searches.
func ConfigPath(global bool, home string) string {
	name := config.FileName + ".yml"
	if !global {
		return name
	}
	return filepath.Join(home, ".config", config.FileName, name)
}

// Readiness is what init learned about the stack the new config points at.
type Readiness struct {
	Manifest  string
	Summary   manifest.Summary
	Problems  []string
	NextSteps []string
}

// Ready reports whether connect can run against the stack as it is.
func (r Readiness) Ready() bool {
	return len(r.Problems) == 0
}

// CheckStack inspects the manifest named in answers and works out what the
// user still has to do before the first connect.
func CheckStack(ctx context.Context, answers WizardAnswers) Readiness {
	r := Readiness{Manifest: util.ExpandPath(answers.Manifest)}
	if resolved, err := manifest.Resolve(r.Manifest); err == nil {
		r.Manifest = resolved
	}

	summary, err := manifest.Inspect(ctx, r.Manifest)
	switch {
	case errors.Is(err, manifest.ErrManifestNotFound):
		r.Problems = append(r.Problems, fmt.Sprintf("%s does not exist yet", r.Manifest))
		r.NextSteps = append(r.NextSteps, "create the stack with a "+answers.ProxyService+" service and a shared network")
	case err != nil:
		r.Problems = append(r.Problems, err.Error())
		r.NextSteps = append(r.NextSteps, "fix the compose file, then run traefik-local validate")
	default:
		r.Summary = summary
		if !summary.HasService(answers.ProxyService) {
			r.Problems = append(r.Problems, fmt.Sprintf("no %s service in %s", answers.ProxyService, filepath.Base(r.Manifest)))
			r.NextSteps = append(r.NextSteps, "add the "+answers.ProxyService+" service or set proxy_service")
		}
		if answers.Network != "" && !contains(summary.Networks, answers.Network) {
			r.Problems = append(r.Problems, fmt.Sprintf("network %s is not declared", answers.Network))
			r.NextSteps = append(r.NextSteps, "declare "+answers.Network+" under networks:")
		} else if len(summary.Networks) == 0 {
			r.Problems = append(r.Problems, "no networks declared")
			r.NextSteps = append(r.NextSteps, "declare the network the proxy and services share")
		}
	}

	if r.Ready() {
		r.NextSteps = append(r.NextSteps,
			"traefik-local connect ./path/to/service --dry-run",
			"traefik-local connect ./path/to/service")
	} else {
		r.NextSteps = append(r.NextSteps, "traefik-local validate")
	}
	return r
}

func contains(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
