package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
	"github.com/natejswenson/traefik-local-cli/internal/util"
	"gopkg.in/yaml.v3"
)

// Verifier loads manifest content under the compose grammar.
type Verifier interface {
	Load(ctx context.Context, manifestPath string, content []byte) (*composetypes.Project, error)
}

// ComposeVerifier loads manifests with compose-go, without interpolating
// variables so unset placeholders do not fail the load.
type ComposeVerifier struct{}

// Load parses content as if it were the file at manifestPath.
func (ComposeVerifier) Load(ctx context.Context, manifestPath string, content []byte) (*composetypes.Project, error) {
	dir := filepath.Dir(manifestPath)
	details := composetypes.ConfigDetails{
		WorkingDir: dir,
		ConfigFiles: []composetypes.ConfigFile{
			{Filename: manifestPath, Content: content},
		},
		Environment: composetypes.Mapping{},
	}
	project, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		o.SetProjectName(ProjectName(manifestPath), true)
		o.SkipInterpolation = true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return project, nil
}

// LoadFile parses the manifest on disk.
func (ComposeVerifier) LoadFile(ctx context.Context, manifestPath string) (*composetypes.Project, error) {
	opts, err := cli.NewProjectOptions(
		[]string{manifestPath},
		cli.WithName(ProjectName(manifestPath)),
		cli.WithWorkingDirectory(filepath.Dir(manifestPath)),
		cli.WithInterpolation(false),
	)
	if err != nil {
		return nil, fmt.Errorf("project options: %w", err)
	}
	project, err := cli.ProjectFromOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return project, nil
}

// ProjectName derives a compose project name from the manifest directory.
func ProjectName(manifestPath string) string {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		abs = manifestPath
	}
	if name := util.Slug(filepath.Base(filepath.Dir(abs))); name != "" {
		return name
	}
	return "traefik-local"
}

// Expectation is what a merged manifest must contain for the inserted
// service.
type Expectation struct {
	Service       string
	ContainerName string
	BuildContext  string
	Labels        map[string]string
	HealthCheck   []string
	Networks      []string
}

type fragmentShape struct {
	ContainerName string `yaml:"container_name"`
	Build         struct {
		Context string `yaml:"context"`
	} `yaml:"build"`
	Labels      []string `yaml:"labels"`
	HealthCheck struct {
		Test []string `yaml:"test"`
	} `yaml:"healthcheck"`
	Networks []string `yaml:"networks"`
}

// ExpectationFor reads the fields verification checks out of a fragment.
func ExpectationFor(fragment *yaml.Node) (Expectation, error) {
	name, def, err := splitFragment(fragment)
	if err != nil {
		return Expectation{}, err
	}
	var shape fragmentShape
	if err := def.Decode(&shape); err != nil {
		return Expectation{}, fmt.Errorf("%w: %v", ErrBadFragment, err)
	}

	exp := Expectation{
		Service:       name,
		ContainerName: shape.ContainerName,
		BuildContext:  shape.Build.Context,
		HealthCheck:   shape.HealthCheck.Test,
		Networks:      shape.Networks,
		Labels:        make(map[string]string),
	}
	for _, label := range shape.Labels {
		k, v, _ := strings.Cut(label, "=")
		exp.Labels[k] = v
	}
	return exp, nil
}

// Check confirms project defines the expected service with the expected
// fields.
func (e Expectation) Check(project *composetypes.Project) error {
	svc, err := project.GetService(e.Service)
	if err != nil {
		return fmt.Errorf("%w: service %s missing after merge", ErrVerification, e.Service)
	}

	var problems []string
	if e.ContainerName != "" && svc.ContainerName != e.ContainerName {
		problems = append(problems, fmt.Sprintf("container_name is %q, want %q", svc.ContainerName, e.ContainerName))
	}
	if e.BuildContext != "" {
		switch {
		case svc.Build == nil:
			problems = append(problems, "build section missing")
		case !sameContext(svc.Build.Context, e.BuildContext, project.WorkingDir):
			problems = append(problems, fmt.Sprintf("build context is %q, want %q", svc.Build.Context, e.BuildContext))
		}
	}
	for k, want := range e.Labels {
		if got, ok := svc.Labels[k]; !ok || got != want {
			problems = append(problems, fmt.Sprintf("label %s is %q, want %q", k, got, want))
		}
	}
	if len(e.HealthCheck) > 0 {
		if svc.HealthCheck == nil || !slices.Equal([]string(svc.HealthCheck.Test), e.HealthCheck) {
			problems = append(problems, "healthcheck missing or different")
		}
	}
	for _, n := range e.Networks {
		if _, ok := svc.Networks[n]; !ok {
			problems = append(problems, fmt.Sprintf("not attached to network %s", n))
		}
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("%w: %s: %s", ErrVerification, e.Service, strings.Join(problems, "; "))
	}
	return nil
}

func sameContext(got, want, workingDir string) bool {
	if filepath.IsAbs(want) {
		return filepath.Clean(got) == filepath.Clean(want)
	}
	if filepath.IsAbs(got) {
		return filepath.Clean(got) == filepath.Join(workingDir, want)
	}
	return filepath.Clean(got) == filepath.Clean(want)
}
