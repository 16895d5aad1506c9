package manifest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// Preview is a unified diff of a pending manifest change.
type Preview struct {
	Diff    string
	Added   int
	Removed int
}

// Empty reports whether the change is a no-op.
func (p Preview) Empty() bool {
	return p.Diff == ""
}

// NewPreview diffs before against after for display under the manifest's
// base name.
func NewPreview(manifestPath string, before, after []byte) (Preview, error) {
	if bytes.Equal(before, after) {
		return Preview{}, nil
	}

	base := filepath.Base(manifestPath)
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + base,
		ToFile:   "b/" + base,
		Context:  3,
	})
	if err != nil {
		return Preview{}, fmt.Errorf("building diff: %w", err)
	}

	fd, err := diff.ParseFileDiff([]byte(text))
	if err != nil {
		return Preview{}, fmt.Errorf("parsing diff: %w", err)
	}

	p := Preview{Diff: text}
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				p.Added++
			case strings.HasPrefix(line, "-"):
				p.Removed++
			}
		}
	}
	return p, nil
}
