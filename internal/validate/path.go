package validate

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/util"
)

// Roots holds the directories a source path may and may not live under.
type Roots struct {
	Allow []string
	Deny  []string
}

// SystemDirs are never acceptable as service sources.
var SystemDirs = []string{
	"/bin", "/boot", "/dev", "/etc", "/lib", "/lib64", "/proc",
	"/sbin", "/sys", "/usr", "/var/lib", "/var/run", "/run",
}

// DefaultRoots allows the user's home, the temp directory and the current
// working directory.
func DefaultRoots() Roots {
	var allow []string
	if home, err := os.UserHomeDir(); err == nil {
		allow = append(allow, home)
	}
	allow = append(allow, os.TempDir())
	if wd, err := os.Getwd(); err == nil {
		allow = append(allow, wd)
	}
	return Roots{Allow: allow, Deny: SystemDirs}
}

// Path canonicalizes p (resolving ~, relative segments and symlinks) and checks
// it against roots. The path must exist. The canonical path is returned.
func Path(p string, roots Roots) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fail("path", p, "must not be empty")
	}
	if strings.ContainsRune(p, 0) {
		return "", fail("path", p, "contains a NUL byte")
	}

	abs, err := filepath.Abs(util.ExpandPath(p))
	if err != nil {
		return "", fail("path", p, err.Error())
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fail("path", p, "does not resolve to an existing location")
	}
	canonical = filepath.Clean(canonical)

	for _, seg := range strings.Split(filepath.ToSlash(canonical), "/") {
		if seg == ".." {
			return "", fail("path", p, "contains traversal sequences after canonicalization")
		}
	}

	for _, deny := range roots.Deny {
		if within(canonical, resolveRoot(deny)) {
			return "", fail("path", p, "resolves into system directory "+deny)
		}
	}
	for _, allow := range roots.Allow {
		root := resolveRoot(allow)
		if root == string(filepath.Separator) {
			continue
		}
		if within(canonical, root) {
			return canonical, nil
		}
	}
	return "", fail("path", p, "must be under your home, temp or current project directory")
}

func resolveRoot(root string) string {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		return filepath.Clean(resolved)
	}
	return filepath.Clean(root)
}

func within(path, root string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
