package generate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/model"
	"gopkg.in/yaml.v3"
)

// envDefault is one variable of a dependency block. The default is used
// unless the caller's environment overrides it.
type envDefault struct {
	key      string
	fallback func(d model.ServiceDescriptor) string
}

func constant(v string) func(model.ServiceDescriptor) string {
	return func(model.ServiceDescriptor) string { return v }
}

var dependencyEnv = map[model.Dependency][]envDefault{
	model.DependencyMongoDB: {
		{"MONGODB_URI", func(d model.ServiceDescriptor) string { return "mongodb://mongodb:27017/" + d.Name }},
	},
	model.DependencyPostgres: {
		{"POSTGRES_HOST", constant("postgres")},
		{"POSTGRES_USER", constant("postgres")},
		{"POSTGRES_PASSWORD", constant("postgres")},
		{"POSTGRES_DB", func(d model.ServiceDescriptor) string { return strings.ReplaceAll(d.Name, "-", "_") }},
	},
	model.DependencyRedis: {
		{"REDIS_URL", constant("redis://redis:6379")},
	},
}

// OverrideKeys lists the environment variables that can replace dependency
// defaults, in fragment order.
func OverrideKeys() []string {
	var keys []string
	for _, dep := range model.AllDependencies {
		for _, e := range dependencyEnv[dep] {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Fragment builds the manifest entry for d as a one-key mapping node
// {name: service}.
func Fragment(d model.ServiceDescriptor, opts Options) (*yaml.Node, error) {
	if !d.Known() {
		return nil, fmt.Errorf("%s: %w", d.Language, ErrUnsupported)
	}
	context := BuildContext(d.SourcePath, opts.ManifestDir)
	tmpl, _ := Lookup(d.Language, d.Framework)

	svc := mapping(
		"build", mapping(
			"context", str(context),
			"dockerfile", str("Dockerfile"),
		),
		"container_name", str(d.Name),
		"environment", seq(environment(d, opts)...),
	)
	if tmpl.Volumes != nil {
		svc.Content = append(svc.Content, str("volumes"), seq(tmpl.Volumes(context)...))
	}
	svc.Content = append(svc.Content, mapping(
		"labels", seq(labels(d, opts)...),
		"healthcheck", mapping(
			"test", seq("CMD-SHELL", healthCommand(d, opts)),
			"interval", str("30s"),
			"timeout", str("10s"),
			"retries", num(3),
		),
	).Content...)

	var order []string
	for _, dep := range d.Dependencies.List() {
		order = append(order, string(dep))
	}
	if opts.ProxyService != "" {
		order = append(order, opts.ProxyService)
	}
	if len(order) > 0 {
		svc.Content = append(svc.Content, str("depends_on"), seq(order...))
	}
	if opts.Network != "" {
		svc.Content = append(svc.Content, str("networks"), seq(opts.Network))
	}

	return mapping(d.Name, svc), nil
}

// FragmentText renders Fragment as YAML with two-space indentation.
func FragmentText(d model.ServiceDescriptor, opts Options) (string, error) {
	node, err := Fragment(d, opts)
	if err != nil {
		return "", err
	}
	return Encode(node)
}

// Encode serializes a node the way fragments are written.
func Encode(node *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", fmt.Errorf("encoding fragment: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding fragment: %w", err)
	}
	return buf.String(), nil
}

// BuildContext expresses sourcePath relative to the manifest directory,
// with forward slashes. Without a manifest directory the path stays absolute.
func BuildContext(sourcePath, manifestDir string) string {
	if manifestDir == "" {
		return filepath.ToSlash(sourcePath)
	}
	rel, err := filepath.Rel(manifestDir, sourcePath)
	if err != nil {
		return filepath.ToSlash(sourcePath)
	}
	rel = filepath.ToSlash(rel)
	if rel != "." && !strings.HasPrefix(rel, "../") && rel != ".." {
		rel = "./" + rel
	}
	return rel
}

func environment(d model.ServiceDescriptor, opts Options) []string {
	env := []string{"PORT=" + strconv.Itoa(d.Port)}
	for _, dep := range d.Dependencies.List() {
		for _, e := range dependencyEnv[dep] {
			value := e.fallback(d)
			if v, ok := opts.Env[e.key]; ok && v != "" {
				value = escapeInterpolation(v)
			}
			env = append(env, fmt.Sprintf("%s=${%s:-%s}", e.key, e.key, value))
		}
	}
	return env
}

func labels(d model.ServiceDescriptor, opts Options) []string {
	router := "traefik.http.routers." + d.Name
	return []string{
		"traefik.enable=true",
		fmt.Sprintf("%s.rule=%s", router, HostRule(d.Name, opts.DomainSuffix)),
		fmt.Sprintf("%s.entrypoints=%s", router, opts.Entrypoint),
		fmt.Sprintf("%s.tls=%t", router, opts.TLS),
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port=%d", d.Name, d.Port),
	}
}

// HostRule is the router rule label value for d.
func HostRule(name, domainSuffix string) string {
	return fmt.Sprintf("Host(`%s.%s`)", name, domainSuffix)
}

func healthCommand(d model.ServiceDescriptor, opts Options) string {
	if opts.HealthCommand != "" {
		return escapeInterpolation(opts.HealthCommand)
	}
	switch d.Language {
	case model.LanguageNode:
		return fmt.Sprintf(`node -e "require('net').connect(%d, 'localhost').on('connect', () => process.exit(0)).on('error', () => process.exit(1))"`, d.Port)
	default:
		return fmt.Sprintf(`python -c "__import__('socket').create_connection(('localhost', %d), 2)"`, d.Port)
	}
}

// escapeInterpolation keeps compose from expanding a literal "$".
func escapeInterpolation(v string) string {
	return strings.ReplaceAll(v, "$", "$$")
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func num(n int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}
}

// mapping builds a mapping from alternating keys and values. Keys are
// strings; values are strings or nodes.
func mapping(kv ...any) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Content = append(m.Content, str(kv[i].(string)))
		switch v := kv[i+1].(type) {
		case *yaml.Node:
			m.Content = append(m.Content, v)
		case string:
			m.Content = append(m.Content, str(v))
		}
	}
	return m
}

func seq(items ...string) *yaml.Node {
	s := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		s.Content = append(s.Content, str(item))
	}
	return s
}
