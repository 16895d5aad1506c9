package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a compose file held as a yaml.v3 node tree, so edits keep the
// existing key order and comments.
type Document struct {
	root   *yaml.Node
	indent int

	inserted     string // service added by InsertService
	restructured bool   // services had to be created or rewritten
}

// Parse reads a compose document. The top level must be a mapping.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidManifest)
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrInvalidManifest)
	}
	return &Document{root: &root, indent: detectIndent(data)}, nil
}

func (d *Document) top() *yaml.Node {
	return d.root.Content[0]
}

// lookup returns the index of key's key node in a mapping, or -1.
func lookup(m *yaml.Node, key string) int {
	if m == nil || m.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func value(m *yaml.Node, key string) *yaml.Node {
	if i := lookup(m, key); i >= 0 {
		return m.Content[i+1]
	}
	return nil
}

func keys(m *yaml.Node) []string {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		out = append(out, m.Content[i].Value)
	}
	return out
}

// ServiceNames lists services in document order.
func (d *Document) ServiceNames() []string {
	return keys(value(d.top(), "services"))
}

// HasService reports whether name is already defined.
func (d *Document) HasService(name string) bool {
	return lookup(value(d.top(), "services"), name) >= 0
}

// Service returns the definition node for name, or nil.
func (d *Document) Service(name string) *yaml.Node {
	return value(value(d.top(), "services"), name)
}

// Networks lists top-level networks in document order.
func (d *Document) Networks() []string {
	return keys(value(d.top(), "networks"))
}

// InsertService appends a service to the services mapping. fragment is a
// one-key mapping {name: definition}, optionally wrapped in a document node.
// A missing services section is created ahead of networks.
func (d *Document) InsertService(fragment *yaml.Node) (string, error) {
	name, def, err := splitFragment(fragment)
	if err != nil {
		return "", err
	}
	if d.HasService(name) {
		return name, fmt.Errorf("%s: %w", name, ErrServiceExists)
	}

	top := d.top()
	services := value(top, "services")
	if services == nil || services.Kind != yaml.MappingNode || services.Style&yaml.FlowStyle != 0 || len(services.Content) == 0 {
		d.restructured = true
	}
	if services == nil {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "services"}
		services = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		at := len(top.Content)
		if i := lookup(top, "networks"); i >= 0 {
			at = i
		}
		top.Content = insertAt(top.Content, at, key, services)
	}
	if services.Kind == yaml.ScalarNode && (services.Tag == "!!null" || services.Value == "") {
		*services = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", HeadComment: services.HeadComment, LineComment: services.LineComment}
	}
	if services.Kind != yaml.MappingNode {
		return name, fmt.Errorf("%w: services is not a mapping", ErrInvalidManifest)
	}
	services.Style &^= yaml.FlowStyle

	services.Content = append(services.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, def)
	d.inserted = name
	return name, nil
}

// PruneDependsOn drops ordering hints of service name that point at
// services the document does not define, returning what was dropped.
func (d *Document) PruneDependsOn(name string) []string {
	svc := d.Service(name)
	idx := lookup(svc, "depends_on")
	if idx < 0 {
		return nil
	}
	deps := svc.Content[idx+1]
	if deps.Kind != yaml.SequenceNode {
		return nil
	}

	defined := make(map[string]bool)
	for _, s := range d.ServiceNames() {
		defined[s] = true
	}

	var kept []*yaml.Node
	var dropped []string
	for _, item := range deps.Content {
		if defined[item.Value] && item.Value != name {
			kept = append(kept, item)
		} else {
			dropped = append(dropped, item.Value)
		}
	}
	deps.Content = kept
	if len(kept) == 0 {
		svc.Content = append(svc.Content[:idx], svc.Content[idx+2:]...)
	}
	return dropped
}

// Encode writes the document back out using the indentation it was read
// with.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(d.indent)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Render returns the manifest after InsertService. The new service is
// spliced into original as text after the last line of the services
// block, so every other line stays byte for byte. When services had to
// be created or rewritten the whole tree is encoded instead.
func (d *Document) Render(original []byte) ([]byte, error) {
	top := d.top()
	if d.inserted == "" || d.restructured || top.Style&yaml.FlowStyle != 0 {
		return d.Encode()
	}
	at := lookup(top, "services")
	key, services := top.Content[at], top.Content[at+1]

	keyIndent := key.Column - 1
	childIndent := services.Content[0].Column - 1
	step := childIndent - keyIndent
	if step < 2 || step > 9 {
		step = d.indent
	}

	entry := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.inserted},
		d.Service(d.inserted),
	}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(step)
	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("encoding service: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding service: %w", err)
	}

	lines := strings.SplitAfter(string(original), "\n")
	end := blockEnd(lines, key.Line, keyIndent)
	prefix := strings.Repeat(" ", childIndent)

	var out strings.Builder
	for _, l := range lines[:end] {
		out.WriteString(l)
	}
	if end > 0 && !strings.HasSuffix(lines[end-1], "\n") {
		out.WriteString("\n")
	}
	for _, l := range strings.SplitAfter(buf.String(), "\n") {
		switch l {
		case "":
		case "\n":
			out.WriteString(l)
		default:
			out.WriteString(prefix + l)
		}
	}
	for _, l := range lines[end:] {
		out.WriteString(l)
	}
	return []byte(out.String()), nil
}

// blockEnd returns the index just past the last line that belongs to the
// block opened by the key on keyLine (1-based). Blank lines and comments
// no deeper than the key do not extend the block.
func blockEnd(lines []string, keyLine, keyIndent int) int {
	last := keyLine - 1
	for i := keyLine; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r\n")
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" {
			continue
		}
		if len(line)-len(trimmed) <= keyIndent {
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
			break
		}
		last = i
	}
	return last + 1
}

func splitFragment(fragment *yaml.Node) (string, *yaml.Node, error) {
	n := fragment
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n == nil || n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, ErrBadFragment
	}
	if n.Content[0].Kind != yaml.ScalarNode || n.Content[0].Value == "" || n.Content[1].Kind != yaml.MappingNode {
		return "", nil, ErrBadFragment
	}
	return n.Content[0].Value, n.Content[1], nil
}

// ParseFragment reads fragment text into a node and returns the service
// name it defines.
func ParseFragment(text string) (string, *yaml.Node, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadFragment, err)
	}
	name, _, err := splitFragment(&node)
	if err != nil {
		return "", nil, err
	}
	return name, &node, nil
}

func insertAt(nodes []*yaml.Node, at int, add ...*yaml.Node) []*yaml.Node {
	out := make([]*yaml.Node, 0, len(nodes)+len(add))
	out = append(out, nodes[:at]...)
	out = append(out, add...)
	return append(out, nodes[at:]...)
}

// detectIndent returns the width of the first indented content line,
// clamped to what the encoder accepts.
func detectIndent(data []byte) int {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || trimmed == line {
			continue
		}
		n := len(line) - len(trimmed)
		if strings.HasPrefix(trimmed, "- ") {
			// An indentless sequence tells us nothing.
			continue
		}
		if n < 2 || n > 9 {
			return 2
		}
		return n
	}
	return 2
}
