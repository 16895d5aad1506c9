package validate

import (
	"errors"
	"sort"
)

// Request gathers every externally supplied string that ends up in a
// generated artifact or the manifest.
type Request struct {
	Name          string
	Domain        string
	Port          int
	SourcePath    string
	Env           map[string]string
	HealthCommand string // optional override
}

// Checked is the outcome of a passing gate.
type Checked struct {
	SourcePath string // canonical form
	Warnings   []string
}

// Check runs every validator over req and joins all failures.
// Nothing is written; the only I/O is resolving SourcePath.
func Check(req Request, roots Roots) (Checked, error) {
	var (
		out  Checked
		errs []error
	)

	if err := Name(req.Name); err != nil {
		errs = append(errs, err)
	}
	if err := Domain(req.Domain); err != nil {
		errs = append(errs, err)
	}
	warn, err := Port(req.Port)
	if err != nil {
		errs = append(errs, err)
	} else if warn != "" {
		out.Warnings = append(out.Warnings, warn)
	}

	canonical, err := Path(req.SourcePath, roots)
	if err != nil {
		errs = append(errs, err)
	}
	out.SourcePath = canonical

	keys := make([]string, 0, len(req.Env))
	for k := range req.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := EnvValue(k, req.Env[k]); err != nil {
			errs = append(errs, err)
		}
	}

	if req.HealthCommand != "" {
		if err := Command(req.HealthCommand); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return Checked{}, errors.Join(errs...)
	}
	return out, nil
}
