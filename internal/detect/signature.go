package detect

import (
	"io"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
)

const (
	maxWalkDepth   = 4
	maxFiles       = 5000
	maxSourceFiles = 400
	maxFileBytes   = 256 << 10
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"node_modules":  true,
	"vendor":        true,
	"venv":          true,
	"env":           true,
	"__pycache__":   true,
	"site-packages": true,
	"dist":          true,
	"build":         true,
	"coverage":      true,
}

// contentFiles are always read when present, wherever they sit in the walk.
var contentFiles = map[string]bool{
	"requirements.txt": true,
	"pyproject.toml":   true,
	"Pipfile":          true,
	"setup.py":         true,
	"package.json":     true,
	"Dockerfile":       true,
	"Procfile":         true,
	"manage.py":        true,
}

var pythonExts = map[string]bool{".py": true}

var nodeExts = map[string]bool{".js": true, ".mjs": true, ".cjs": true, ".ts": true, ".jsx": true, ".tsx": true}

var (
	pyImportFrom = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][\w.]*)\s+import\b`)
	pyImport     = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*(?:\s*,\s*[A-Za-z_][\w.]*)*)`)
	jsRequire    = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsImportFrom = regexp.MustCompile(`\bfrom\s+['"]([^'"]+)['"]`)
	jsImportBare = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
)

// Signature is the abstract view of a project that detection rules read:
// which files exist, the contents of the interesting ones, what the
// dependency manifests declare and which modules the sources import.
type Signature struct {
	Files      map[string]bool   // slash separated, relative to the root
	Contents   map[string]string // selected file contents keyed like Files
	Extensions map[string]int    // source extension counts

	Declared      map[string]bool // package names from dependency manifests
	PythonImports map[string]bool
	NodeImports   map[string]bool

	PackageJSON *packageJSON
}

// Has reports whether the relative path exists as a file.
func (s *Signature) Has(name string) bool {
	return s.Files[name]
}

// Content returns the contents of a read file, or "".
func (s *Signature) Content(name string) string {
	return s.Contents[name]
}

// Count returns how many files carry one of the extensions.
func (s *Signature) Count(exts map[string]bool) int {
	n := 0
	for ext := range exts {
		n += s.Extensions[ext]
	}
	return n
}

// Sources returns the read source files with one of the extensions, sorted.
func (s *Signature) Sources(exts map[string]bool) []string {
	var out []string
	for name := range s.Contents {
		if exts[path.Ext(name)] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Probe walks fsys (rooted at the project) and builds its Signature. It only
// fails when the root itself cannot be read.
func Probe(fsys fs.FS) (*Signature, error) {
	sig := &Signature{
		Files:         make(map[string]bool),
		Contents:      make(map[string]string),
		Extensions:    make(map[string]int),
		Declared:      make(map[string]bool),
		PythonImports: make(map[string]bool),
		NodeImports:   make(map[string]bool),
	}

	if _, err := fs.ReadDir(fsys, "."); err != nil {
		return nil, err
	}

	sources := 0
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == "." {
				return err
			}
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			if p == "." {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] || strings.Count(p, "/") >= maxWalkDepth {
				return fs.SkipDir
			}
			return nil
		}
		if len(sig.Files) >= maxFiles {
			return fs.SkipAll
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}

		sig.Files[p] = true
		ext := path.Ext(p)
		isSource := pythonExts[ext] || nodeExts[ext]
		if isSource {
			sig.Extensions[ext]++
		}

		if contentFiles[d.Name()] || (isSource && sources < maxSourceFiles) {
			if isSource {
				sources++
			}
			if content, ok := readLimited(fsys, p); ok {
				sig.Contents[p] = content
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sig.collectDeclared()
	sig.collectImports()
	return sig, nil
}

func readLimited(fsys fs.FS, name string) (string, bool) {
	f, err := fsys.Open(name)
	if err != nil {
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileBytes))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (s *Signature) collectImports() {
	for _, name := range s.Sources(pythonExts) {
		content := s.Contents[name]
		for _, m := range pyImportFrom.FindAllStringSubmatch(content, -1) {
			s.PythonImports[topLevelPython(m[1])] = true
		}
		for _, m := range pyImport.FindAllStringSubmatch(content, -1) {
			for _, mod := range strings.Split(m[1], ",") {
				s.PythonImports[topLevelPython(strings.TrimSpace(mod))] = true
			}
		}
	}

	for _, name := range s.Sources(nodeExts) {
		content := s.Contents[name]
		for _, re := range []*regexp.Regexp{jsRequire, jsImportFrom, jsImportBare} {
			for _, m := range re.FindAllStringSubmatch(content, -1) {
				if mod, ok := topLevelNode(m[1]); ok {
					s.NodeImports[mod] = true
				}
			}
		}
	}
}

func topLevelPython(mod string) string {
	if i := strings.Index(mod, "."); i != -1 {
		mod = mod[:i]
	}
	return strings.ToLower(mod)
}

// topLevelNode reduces an import specifier to its package name. Relative and
// node: builtin specifiers are not packages.
func topLevelNode(spec string) (string, bool) {
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") || strings.HasPrefix(spec, "node:") {
		return "", false
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1], true
	}
	return parts[0], true
}
