package model

import "strings"

// Dependency is an infrastructure service a project talks to.
type Dependency string

const (
	DependencyMongoDB  Dependency = "mongodb"
	DependencyPostgres Dependency = "postgres"
	DependencyRedis    Dependency = "redis"
)

// AllDependencies lists every dependency in its canonical order.
var AllDependencies = []Dependency{DependencyMongoDB, DependencyPostgres, DependencyRedis}

// DependencySet is a small bitset over AllDependencies.
type DependencySet uint8

func dependencyBit(d Dependency) DependencySet {
	for i, known := range AllDependencies {
		if known == d {
			return 1 << i
		}
	}
	return 0
}

// NewDependencySet builds a set from the given dependencies.
func NewDependencySet(deps ...Dependency) DependencySet {
	var s DependencySet
	for _, d := range deps {
		s = s.With(d)
	}
	return s
}

// With returns s plus d.
func (s DependencySet) With(d Dependency) DependencySet {
	return s | dependencyBit(d)
}

// Has reports whether d is in s.
func (s DependencySet) Has(d Dependency) bool {
	bit := dependencyBit(d)
	return bit != 0 && s&bit != 0
}

// List returns the members of s in canonical order.
func (s DependencySet) List() []Dependency {
	var out []Dependency
	for _, d := range AllDependencies {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// String renders the set as a comma separated list, or "none".
func (s DependencySet) String() string {
	list := s.List()
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, len(list))
	for i, d := range list {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

// dependencyPackages maps client library names (as declared in a dependency
// manifest or imported in source) to the infrastructure they talk to.
var dependencyPackages = map[string]Dependency{
	// MongoDB
	"pymongo":     DependencyMongoDB,
	"motor":       DependencyMongoDB,
	"mongoengine": DependencyMongoDB,
	"beanie":      DependencyMongoDB,
	"odmantic":    DependencyMongoDB,
	"mongodb":     DependencyMongoDB,
	"mongoose":    DependencyMongoDB,
	"mongo":       DependencyMongoDB,

	// Postgres
	"psycopg":         DependencyPostgres,
	"psycopg2":        DependencyPostgres,
	"psycopg2-binary": DependencyPostgres,
	"asyncpg":         DependencyPostgres,
	"pg":              DependencyPostgres,
	"pg-promise":      DependencyPostgres,
	"postgres":        DependencyPostgres,

	// Redis
	"redis":    DependencyRedis,
	"aioredis": DependencyRedis,
	"ioredis":  DependencyRedis,
	"rq":       DependencyRedis,
	"bullmq":   DependencyRedis,
	"bull":     DependencyRedis,
}

// connectionSchemes are URL prefixes that reveal a dependency when they
// appear anywhere in source or configuration text.
var connectionSchemes = []struct {
	prefix string
	dep    Dependency
}{
	{"mongodb://", DependencyMongoDB},
	{"mongodb+srv://", DependencyMongoDB},
	{"postgres://", DependencyPostgres},
	{"postgresql://", DependencyPostgres},
	{"redis://", DependencyRedis},
	{"rediss://", DependencyRedis},
}

// LookupDependency maps a package or module name to a dependency.
func LookupDependency(pkg string) (Dependency, bool) {
	d, ok := dependencyPackages[strings.ToLower(strings.TrimSpace(pkg))]
	return d, ok
}

// DependenciesInText scans free text for connection URL schemes.
func DependenciesInText(text string) DependencySet {
	var s DependencySet
	lower := strings.ToLower(text)
	for _, cs := range connectionSchemes {
		if strings.Contains(lower, cs.prefix) {
			s = s.With(cs.dep)
		}
	}
	return s
}
