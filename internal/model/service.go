package model

// Language classifies the runtime of a service's source tree.
type Language string

const (
	LanguagePython  Language = "python"
	LanguageNode    Language = "node"
	LanguageUnknown Language = "unknown"
)

// Framework identifies the web framework within a language.
type Framework string

const (
	FrameworkFastAPI Framework = "fastapi"
	FrameworkFlask   Framework = "flask"
	FrameworkDjango  Framework = "django"
	FrameworkExpress Framework = "express"
	FrameworkNestJS  Framework = "nestjs"
	FrameworkNextJS  Framework = "nextjs"
	FrameworkKoa     Framework = "koa"
	FrameworkGeneric Framework = "generic"
)

// DefaultPort returns the port assumed when nothing in the source tree sets one.
func (l Language) DefaultPort() int {
	switch l {
	case LanguagePython:
		return 8000
	case LanguageNode:
		return 3000
	default:
		return 8080
	}
}

// ServiceDescriptor is the structured result of inspecting a source tree.
// It is a plain value: copies are independent and two descriptors built from
// the same tree compare equal with ==.
type ServiceDescriptor struct {
	Name                 string
	SourcePath           string
	Language             Language
	Framework            Framework
	Port                 int
	Entrypoint           string
	DependencyManifest   string // requirements.txt, pyproject.toml, Pipfile, package.json or ""
	Dependencies         DependencySet
	HasExistingBuildFile bool
}

// Known reports whether detection recognized the language.
func (d ServiceDescriptor) Known() bool {
	return d.Language != LanguageUnknown && d.Language != ""
}

// WithName returns a copy of d using name.
func (d ServiceDescriptor) WithName(name string) ServiceDescriptor {
	d.Name = name
	return d
}

// WithPort returns a copy of d using port.
func (d ServiceDescriptor) WithPort(port int) ServiceDescriptor {
	d.Port = port
	return d
}
