package generate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/model"
)

// ErrUnsupported is returned for descriptors no template covers.
var ErrUnsupported = errors.New("no build template for language")

// BuildFile renders the Dockerfile for d. Stanzas are separated by a blank
// line.
func BuildFile(d model.ServiceDescriptor) (string, error) {
	tmpl, ok := Lookup(d.Language, d.Framework)
	if !ok {
		return "", fmt.Errorf("%s: %w", d.Language, ErrUnsupported)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Generated by traefik-local for %s (%s/%s)\n", d.Name, d.Language, d.Framework)
	for _, stanza := range tmpl.Stanzas {
		lines := stanza(d)
		if len(lines) == 0 {
			continue
		}
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
