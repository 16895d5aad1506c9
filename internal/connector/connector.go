// Package connector runs one connection attempt end to end: detect the
// service, validate everything that will be interpolated, generate its
// artifacts, merge it into the manifest and start it.
package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natejswenson/traefik-local-cli/internal/detect"
	"github.com/natejswenson/traefik-local-cli/internal/generate"
	"github.com/natejswenson/traefik-local-cli/internal/manifest"
	"github.com/natejswenson/traefik-local-cli/internal/model"
	"github.com/natejswenson/traefik-local-cli/internal/util"
	"github.com/natejswenson/traefik-local-cli/internal/validate"
)

// Activator builds and starts a service already present in the manifest.
type Activator interface {
	Activate(ctx context.Context, service string) error
	Remediation(service string) string
}

// ReviewFunc lets the caller confirm or change the detected name and
// domain before validation.
type ReviewFunc func(d model.ServiceDescriptor, domain string) (name, newDomain string, err error)

// Request is one connection attempt.
type Request struct {
	SourcePath   string
	ManifestPath string

	// Overrides. Zero values keep what detection and config produced.
	Name          string
	Port          int
	Domain        string
	HealthCommand string

	Env map[string]string // dependency overrides from the environment

	DryRun        bool
	NoBuild       bool
	KeepOnFailure bool
	Review        ReviewFunc
}

// Outcome describes what an attempt did.
type Outcome struct {
	Descriptor model.ServiceDescriptor
	Confidence detect.Confidence
	PortSource string
	Domain     string
	Artifacts  generate.Artifacts

	Exists     bool // service was already in the manifest; nothing changed
	Plan       *manifest.Plan
	Written    []string
	BackupPath string
	Activated  bool
	Warnings   []string
}

// Connector holds the settings shared by every attempt.
type Connector struct {
	Defaults  generate.Options
	Roots     validate.Roots
	Manager   *manifest.Manager
	Activator Activator
	Logger    *slog.Logger
}

func (c *Connector) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (c *Connector) manager() *manifest.Manager {
	if c.Manager != nil {
		return c.Manager
	}
	return &manifest.Manager{Logger: c.Logger}
}

// Describe runs detection and applies the request's overrides. Nothing is
// validated or written.
func (c *Connector) Describe(req Request) (Outcome, error) {
	res, err := detect.Inspect(req.SourcePath)
	if err != nil {
		return Outcome{}, failure(KindValidation, "cannot read source path "+req.SourcePath, err)
	}
	if err := detect.Require(res.Descriptor); err != nil {
		return Outcome{}, &Error{
			Kind:        KindDetection,
			Message:     "cannot tell what kind of service " + res.Descriptor.SourcePath + " is",
			Remediation: "add a requirements.txt, pyproject.toml or package.json to the project root",
			Err:         err,
		}
	}

	out := Outcome{
		Descriptor: res.Descriptor,
		Confidence: res.Confidence,
		PortSource: res.PortSource,
		Domain:     c.Defaults.DomainSuffix,
	}
	if req.Name != "" {
		out.Descriptor = out.Descriptor.WithName(req.Name)
	}
	if req.Port != 0 {
		out.Descriptor = out.Descriptor.WithPort(req.Port)
		out.PortSource = "flag"
	}
	if req.Domain != "" {
		out.Domain = req.Domain
	}
	if out.PortSource == "default" {
		out.Warnings = append(out.Warnings, fmt.Sprintf("no port found in source, assuming %d", out.Descriptor.Port))
	}
	return out, nil
}

// Connect runs the full pipeline. The returned error is always an *Error.
func (c *Connector) Connect(ctx context.Context, req Request) (Outcome, error) {
	out, err := c.Describe(req)
	if err != nil {
		return out, err
	}

	if req.Review != nil {
		name, domain, err := req.Review(out.Descriptor, out.Domain)
		if err != nil {
			return out, failure(KindValidation, "review cancelled", err)
		}
		out.Descriptor = out.Descriptor.WithName(name)
		out.Domain = domain
	}

	checked, err := validate.Check(validate.Request{
		Name:          out.Descriptor.Name,
		Domain:        out.Domain,
		Port:          out.Descriptor.Port,
		SourcePath:    out.Descriptor.SourcePath,
		Env:           req.Env,
		HealthCommand: req.HealthCommand,
	}, c.Roots)
	if err != nil {
		return out, failure(KindValidation, "rejected input", err)
	}
	out.Descriptor.SourcePath = checked.SourcePath
	out.Warnings = append(out.Warnings, checked.Warnings...)

	manifestPath, err := manifest.Resolve(util.ExpandPath(req.ManifestPath))
	if err != nil {
		return out, failure(KindManifest, "cannot resolve manifest path", err)
	}
	summary, err := manifest.Inspect(ctx, manifestPath)
	if err != nil {
		return out, failure(KindManifest, "cannot use manifest "+manifestPath, err)
	}
	if summary.HasService(out.Descriptor.Name) {
		out.Exists = true
		out.Warnings = append(out.Warnings, fmt.Sprintf("service %s already exists in %s, nothing to do", out.Descriptor.Name, manifestPath))
		return out, nil
	}

	opts := c.Defaults
	opts.DomainSuffix = out.Domain
	opts.ManifestDir = filepath.Dir(manifestPath)
	opts.Env = req.Env
	opts.HealthCommand = req.HealthCommand
	if opts.Network == "" {
		if opts.Network, err = summary.DefaultNetwork(); err != nil {
			return out, failure(KindManifest, "no network to attach to", err)
		}
	}

	out.Artifacts, err = generate.Generate(out.Descriptor, opts)
	if err != nil {
		return out, failure(KindDetection, "cannot generate artifacts", err)
	}

	tx, err := manifest.NewTransaction(manifestPath, out.Artifacts.Fragment)
	if err != nil {
		return out, failure(KindManifest, "generated fragment is unusable", err)
	}
	log := c.log().With("tx", tx.ID.String(), "service", tx.Service)
	m := c.manager()

	if req.DryRun {
		plan, err := m.Plan(ctx, tx)
		if err != nil {
			return out, failure(KindManifest, "dry run failed", err)
		}
		out.Plan = &plan
		out.Warnings = append(out.Warnings, plan.Warnings...)
		return out, nil
	}

	if !out.Descriptor.HasExistingBuildFile {
		if err := c.writeArtifacts(tx, out.Descriptor.SourcePath, out.Artifacts); err != nil {
			return out, &Error{Kind: KindManifest, Message: "cannot write build files", Restored: true, Err: errors.Join(err, m.Discard(tx))}
		}
		out.Written = append(out.Written, tx.Created...)
	}

	if err := m.Commit(ctx, tx); err != nil {
		out.Written = nil
		return out, &Error{
			Kind:       KindManifest,
			Message:    "manifest left unchanged",
			BackupPath: tx.BackupPath(),
			Restored:   true,
			Err:        errors.Join(err, m.Discard(tx)),
		}
	}
	out.BackupPath = tx.BackupPath()
	out.Warnings = append(out.Warnings, tx.Warnings...)

	if tx.State() == manifest.StateUnchanged {
		// Another invocation added the service since Inspect.
		out.Exists = true
		out.Written = nil
		if err := m.Discard(tx); err != nil {
			return out, failure(KindManifest, "cannot remove generated build files", err)
		}
		return out, nil
	}
	log.Debug("manifest updated", "backup", out.BackupPath)

	if req.NoBuild || c.Activator == nil {
		return out, nil
	}

	if err := c.Activator.Activate(ctx, out.Descriptor.Name); err != nil {
		return out, c.activationFailed(ctx, m, tx, req, err)
	}
	out.Activated = true
	return out, nil
}

func (c *Connector) activationFailed(ctx context.Context, m *manifest.Manager, tx *manifest.Transaction, req Request, cause error) *Error {
	e := &Error{
		Kind:        KindActivation,
		Message:     "service did not start",
		BackupPath:  tx.BackupPath(),
		Remediation: c.Activator.Remediation(tx.Service),
		Err:         cause,
	}
	if req.KeepOnFailure {
		e.Message += "; manifest keeps the new service"
		return e
	}

	// Rollback runs even if the caller's context was cancelled.
	if err := m.Rollback(context.WithoutCancel(ctx), tx); err != nil {
		e.Message += "; manifest NOT restored"
		e.Err = errors.Join(cause, err)
		e.Remediation = fmt.Sprintf("restore %s from %s by hand", tx.ManifestPath, tx.BackupPath())
		return e
	}
	e.Restored = true
	e.Message += "; manifest restored"
	e.Remediation = "fix the cause, then connect again. " + e.Remediation
	return e
}

// writeArtifacts creates the Dockerfile and, if absent, the .dockerignore.
// Each file created is tracked so rollback removes it.
func (c *Connector) writeArtifacts(tx *manifest.Transaction, dir string, arts generate.Artifacts) error {
	dockerfile := filepath.Join(dir, "Dockerfile")
	if err := writeNew(dockerfile, arts.BuildFile); err != nil {
		return err
	}
	tx.Track(dockerfile)

	ignore := filepath.Join(dir, ".dockerignore")
	err := writeNew(ignore, arts.IgnoreFile)
	switch {
	case err == nil:
		tx.Track(ignore)
	case errors.Is(err, os.ErrExist):
		c.log().Debug("keeping existing .dockerignore", "path", ignore)
	default:
		return err
	}
	return nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
