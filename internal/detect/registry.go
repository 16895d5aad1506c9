package detect

import (
	"regexp"
	"sort"

	"github.com/natejswenson/traefik-local-cli/internal/model"
)

// Confidence grades how strongly a rule matched a Signature.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "none"
	}
}

// Profile describes one supported language: how to recognize it, where its
// dependency manifests and entry files live, and how it sets its port.
type Profile struct {
	Language model.Language
	Priority int // lower wins when confidences tie

	Match func(*Signature) Confidence

	Manifests   []string // dependency manifests in preference order
	Extensions  map[string]bool
	Imports     func(*Signature) map[string]bool
	Entrypoints []string // candidate entry files in priority order
	Fallback    string   // used when no candidate exists

	// Launcher returns a framework's canonical entry file when present.
	Launcher func(sig *Signature, fw model.Framework) (string, bool)

	PortPatterns          []*regexp.Regexp
	FrameworkPortPatterns map[model.Framework][]*regexp.Regexp
	ManifestPortPatterns  []*regexp.Regexp
}

// FrameworkRule recognizes one framework within a language.
type FrameworkRule struct {
	Language  model.Language
	Framework model.Framework
	Priority  int
	Match     func(*Signature) Confidence
}

var (
	profiles       []Profile
	frameworkRules []FrameworkRule
)

// RegisterProfile adds a language profile. Each language file calls this in
// its init(); selection order comes from Priority, not registration order.
func RegisterProfile(p Profile) {
	profiles = append(profiles, p)
}

// RegisterFramework adds a framework rule.
func RegisterFramework(r FrameworkRule) {
	frameworkRules = append(frameworkRules, r)
}

// Profiles returns the registered profiles in priority order.
func Profiles() []Profile {
	out := append([]Profile(nil), profiles...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// FrameworkRules returns the rules for lang in priority order.
func FrameworkRules(lang model.Language) []FrameworkRule {
	var out []FrameworkRule
	for _, r := range frameworkRules {
		if r.Language == lang {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// profileFor returns the profile registered for lang.
func profileFor(lang model.Language) (Profile, bool) {
	for _, p := range profiles {
		if p.Language == lang {
			return p, true
		}
	}
	return Profile{}, false
}

// ClassifyLanguage picks the highest-confidence profile, breaking ties by
// priority. ok is false when no profile matched at all.
func ClassifyLanguage(sig *Signature) (p Profile, conf Confidence, ok bool) {
	for _, candidate := range Profiles() {
		c := candidate.Match(sig)
		if c > conf {
			p, conf, ok = candidate, c, true
		}
	}
	return p, conf, ok
}

// ClassifyFramework picks the framework for lang the same way, falling back
// to generic.
func ClassifyFramework(sig *Signature, lang model.Language) model.Framework {
	best := model.FrameworkGeneric
	bestConf := ConfidenceNone
	for _, r := range FrameworkRules(lang) {
		if c := r.Match(sig); c > bestConf {
			best, bestConf = r.Framework, c
		}
	}
	return best
}

// declaredOrImported grades a package: declared in a manifest is high,
// imported from source is medium.
func declaredOrImported(pkg string, imports func(*Signature) map[string]bool) func(*Signature) Confidence {
	return func(sig *Signature) Confidence {
		if sig.Declared[pkg] {
			return ConfidenceHigh
		}
		if imports(sig)[pkg] {
			return ConfidenceMedium
		}
		return ConfidenceNone
	}
}
