package detect

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// packageJSON is the subset of package.json detection reads.
type packageJSON struct {
	Name                 string            `json:"name"`
	Main                 string            `json:"main"`
	Scripts              map[string]string `json:"scripts"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

var (
	requirementName = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)
	installRequires = regexp.MustCompile(`(?s)install_requires\s*=\s*\[(.*?)\]`)
	quotedString    = regexp.MustCompile(`["']([^"']+)["']`)
)

// pythonManifests is the order in which python dependency manifests are
// preferred.
var pythonManifests = []string{"requirements.txt", "pyproject.toml", "Pipfile", "setup.py"}

// collectDeclared fills Declared from every root-level dependency manifest.
// Malformed manifests contribute nothing.
func (s *Signature) collectDeclared() {
	if content, ok := s.Contents["requirements.txt"]; ok {
		for _, name := range parseRequirements(content) {
			s.Declared[name] = true
		}
	}

	if content, ok := s.Contents["pyproject.toml"]; ok {
		var pp pyproject
		if err := toml.Unmarshal([]byte(content), &pp); err == nil {
			reqs := append([]string{}, pp.Project.Dependencies...)
			for _, extra := range sortedKeys(pp.Project.OptionalDependencies) {
				reqs = append(reqs, pp.Project.OptionalDependencies[extra]...)
			}
			for _, r := range reqs {
				if name, ok := requirementPackage(r); ok {
					s.Declared[name] = true
				}
			}
			for _, table := range []map[string]any{pp.Tool.Poetry.Dependencies, pp.Tool.Poetry.DevDependencies} {
				for name := range table {
					if name != "python" {
						s.Declared[normalizePackage(name)] = true
					}
				}
			}
		}
	}

	if content, ok := s.Contents["Pipfile"]; ok {
		var pf pipfile
		if err := toml.Unmarshal([]byte(content), &pf); err == nil {
			for _, table := range []map[string]any{pf.Packages, pf.DevPackages} {
				for name := range table {
					s.Declared[normalizePackage(name)] = true
				}
			}
		}
	}

	if content, ok := s.Contents["setup.py"]; ok {
		if m := installRequires.FindStringSubmatch(content); m != nil {
			for _, q := range quotedString.FindAllStringSubmatch(m[1], -1) {
				if name, ok := requirementPackage(q[1]); ok {
					s.Declared[name] = true
				}
			}
		}
	}

	if content, ok := s.Contents["package.json"]; ok {
		var pkg packageJSON
		if err := json.Unmarshal([]byte(content), &pkg); err == nil {
			s.PackageJSON = &pkg
			for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.PeerDependencies, pkg.OptionalDependencies} {
				for name := range deps {
					s.Declared[strings.ToLower(name)] = true
				}
			}
		}
	}
}

// parseRequirements extracts package names from a requirements.txt body.
// Options (-r, -e, --index-url) and comments are skipped.
func parseRequirements(content string) []string {
	var names []string
	for _, line := range strings.Split(content, "\n") {
		if i := strings.Index(line, "#"); i != -1 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if name, ok := requirementPackage(line); ok {
			names = append(names, name)
		}
	}
	return names
}

// requirementPackage returns the normalized project name of a PEP 508
// requirement such as "uvicorn[standard]>=0.30; python_version>'3.8'".
func requirementPackage(req string) (string, bool) {
	m := requirementName.FindStringSubmatch(strings.TrimSpace(req))
	if m == nil {
		return "", false
	}
	return normalizePackage(m[1]), true
}

func normalizePackage(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
