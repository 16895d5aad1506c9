package detect

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/model"
	"github.com/natejswenson/traefik-local-cli/internal/util"
)

// ErrUnknownLanguage is returned by Require when no profile matched.
var ErrUnknownLanguage = errors.New("no supported language signature found")

// Port bounds for inferred ports. Lower numbers in source are usually
// something other than a listen port.
const (
	minInferredPort = 1024
	maxInferredPort = 65535
)

var exposeLine = regexp.MustCompile(`(?im)^\s*EXPOSE\s+(.+)$`)

// Result is a descriptor plus the evidence behind it, for reporting.
type Result struct {
	Descriptor model.ServiceDescriptor
	Confidence Confidence
	PortSource string // "entrypoint", "manifest", "Dockerfile" or "default"
}

// Detect inspects the project at sourcePath. Unrecognized projects are not
// an error: the descriptor comes back with Language unknown.
func Detect(sourcePath string) (model.ServiceDescriptor, error) {
	res, err := Inspect(sourcePath)
	return res.Descriptor, err
}

// Inspect is Detect with the evidence kept.
func Inspect(sourcePath string) (Result, error) {
	abs, err := filepath.Abs(util.ExpandPath(sourcePath))
	if err != nil {
		return Result{}, fmt.Errorf("resolving %s: %w", sourcePath, err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return Result{}, fmt.Errorf("resolving %s: %w", sourcePath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Result{}, err
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s is not a directory", sourcePath)
	}
	return InspectFS(os.DirFS(abs), abs)
}

// DetectFS runs detection against fsys. sourcePath is recorded in the
// descriptor and used to derive the default name.
func DetectFS(fsys fs.FS, sourcePath string) (model.ServiceDescriptor, error) {
	res, err := InspectFS(fsys, sourcePath)
	return res.Descriptor, err
}

// InspectFS is DetectFS with the evidence kept.
func InspectFS(fsys fs.FS, sourcePath string) (Result, error) {
	sig, err := Probe(fsys)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", sourcePath, err)
	}
	return Classify(sig, sourcePath), nil
}

// Classify turns a Signature into a descriptor.
func Classify(sig *Signature, sourcePath string) Result {
	d := model.ServiceDescriptor{
		Name:                 defaultName(sourcePath),
		SourcePath:           sourcePath,
		Language:             model.LanguageUnknown,
		Framework:            model.FrameworkGeneric,
		HasExistingBuildFile: sig.Has("Dockerfile"),
	}

	profile, conf, ok := ClassifyLanguage(sig)
	if !ok {
		d.Port = model.LanguageUnknown.DefaultPort()
		d.Dependencies = dependenciesFromText(sig)
		return Result{Descriptor: d, PortSource: "default"}
	}

	d.Language = profile.Language
	d.Framework = ClassifyFramework(sig, profile.Language)
	d.DependencyManifest = dependencyManifest(sig, profile)
	d.Entrypoint = resolveEntrypoint(sig, profile, d.Framework)

	port, source := inferPort(sig, profile, d)
	d.Port = port
	d.Dependencies = inferDependencies(sig, profile)

	return Result{Descriptor: d, Confidence: conf, PortSource: source}
}

// Require returns ErrUnknownLanguage for an unknown descriptor.
func Require(d model.ServiceDescriptor) error {
	if !d.Known() {
		return fmt.Errorf("%s: %w", d.SourcePath, ErrUnknownLanguage)
	}
	return nil
}

func defaultName(sourcePath string) string {
	if name := util.Slug(filepath.Base(sourcePath)); name != "" {
		return name
	}
	return "service"
}

func dependencyManifest(sig *Signature, p Profile) string {
	for _, m := range p.Manifests {
		if sig.Has(m) {
			return m
		}
	}
	return ""
}

func resolveEntrypoint(sig *Signature, p Profile, fw model.Framework) string {
	if p.Launcher != nil {
		if entry, ok := p.Launcher(sig, fw); ok {
			return entry
		}
	}
	for _, candidate := range p.Entrypoints {
		if sig.Has(candidate) {
			return candidate
		}
	}
	// First top-level source file, in name order.
	for _, name := range sig.Sources(p.Extensions) {
		if !strings.Contains(name, "/") {
			return name
		}
	}
	return p.Fallback
}

func inferPort(sig *Signature, p Profile, d model.ServiceDescriptor) (int, string) {
	patterns := append(append([]*regexp.Regexp{}, p.FrameworkPortPatterns[d.Framework]...), p.PortPatterns...)
	if port, ok := firstPort(sig.Content(d.Entrypoint), patterns); ok {
		return port, "entrypoint"
	}

	for _, name := range []string{d.DependencyManifest, "Procfile"} {
		if name == "" {
			continue
		}
		if port, ok := firstPort(sig.Content(name), p.ManifestPortPatterns); ok {
			return port, "manifest"
		}
	}

	if port, ok := exposedPort(sig.Content("Dockerfile")); ok {
		return port, "Dockerfile"
	}

	return d.Language.DefaultPort(), "default"
}

// firstPort returns the plausible port whose match starts earliest in text.
// Offsets tie-break on pattern order. Patterns are anchored to listen and
// run calls, so an earlier client configuration cannot win.
func firstPort(text string, patterns []*regexp.Regexp) (int, bool) {
	if text == "" {
		return 0, false
	}
	best, bestAt := 0, -1
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			port, err := strconv.Atoi(text[m[2]:m[3]])
			if err != nil || port < minInferredPort || port > maxInferredPort {
				continue
			}
			if bestAt == -1 || m[0] < bestAt {
				best, bestAt = port, m[0]
			}
			break
		}
	}
	return best, bestAt != -1
}

// exposedPort reads the first tcp port of the first usable EXPOSE line.
func exposedPort(dockerfile string) (int, bool) {
	for _, m := range exposeLine.FindAllStringSubmatch(dockerfile, -1) {
		scanner := bufio.NewScanner(strings.NewReader(m[1]))
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			ep, ok := model.ParseExposedPort(scanner.Text())
			if ok && ep.Protocol == "tcp" {
				return ep.Port, true
			}
		}
	}
	return 0, false
}

func inferDependencies(sig *Signature, p Profile) model.DependencySet {
	set := dependenciesFromText(sig)
	for _, pkg := range sortedKeys(sig.Declared) {
		if dep, ok := model.LookupDependency(pkg); ok {
			set = set.With(dep)
		}
	}
	if p.Imports != nil {
		for _, mod := range sortedKeys(p.Imports(sig)) {
			if dep, ok := model.LookupDependency(mod); ok {
				set = set.With(dep)
			}
		}
	}
	return set
}

func dependenciesFromText(sig *Signature) model.DependencySet {
	var set model.DependencySet
	names := sortedKeys(sig.Contents)
	for _, name := range names {
		set |= model.DependenciesInText(sig.Contents[name])
	}
	return set
}

func cleanRel(p string) string {
	return strings.TrimPrefix(path.Clean(strings.TrimPrefix(p, "./")), "/")
}

// Candidates lists the entry files a profile would try, for diagnostics.
func Candidates(lang model.Language) []string {
	p, ok := profileFor(lang)
	if !ok {
		return nil
	}
	return append([]string(nil), p.Entrypoints...)
}
