// Package activate builds and starts a connected service through the
// container engine's compose CLI.
package activate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Engines the driver knows how to call, in preference order.
var Engines = []string{"docker", "podman"}

// DefaultTimeout bounds a build plus start.
const DefaultTimeout = 10 * time.Minute

// ComposeDriver runs `<engine> compose -f <manifest> build|up` for one
// service.
type ComposeDriver struct {
	Engine       string
	ManifestPath string
	Runner       Runner
	Timeout      time.Duration
	Logger       *slog.Logger
}

func (d *ComposeDriver) runner() Runner {
	if d.Runner != nil {
		return d.Runner
	}
	return ExecRunner{}
}

func (d *ComposeDriver) engine() string {
	if d.Engine != "" {
		return d.Engine
	}
	return Engines[0]
}

func (d *ComposeDriver) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Check confirms the engine binary is on PATH.
func (d *ComposeDriver) Check() error {
	if _, err := d.runner().LookPath(d.engine()); err != nil {
		return fmt.Errorf("%s: %w", d.engine(), ErrEngineNotFound)
	}
	return nil
}

// Activate builds the service image and starts its container detached.
// The whole sequence shares one timeout.
func (d *ComposeDriver) Activate(ctx context.Context, service string) error {
	if err := d.Check(); err != nil {
		return err
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.compose(ctx, "build", service); err != nil {
		return err
	}
	return d.compose(ctx, "up", "-d", service)
}

func (d *ComposeDriver) compose(ctx context.Context, args ...string) error {
	full := append([]string{"compose", "-f", d.ManifestPath}, args...)
	command := d.engine() + " " + strings.Join(full, " ")

	start := time.Now()
	d.log().Debug("running engine", "command", command)
	_, stderr, code, err := d.runner().Run(ctx, filepath.Dir(d.ManifestPath), d.engine(), full...)
	d.log().Debug("engine finished", "command", command, "exit", code, "duration", time.Since(start))

	if err != nil || code != 0 {
		return &CommandError{Command: command, ExitCode: code, Stderr: strings.TrimSpace(stderr), Err: err}
	}
	return nil
}

// Remediation tells the operator how to investigate a failed activation
// and retry it without reconnecting.
func (d *ComposeDriver) Remediation(service string) string {
	base := fmt.Sprintf("%s compose -f %s", d.engine(), d.ManifestPath)
	return fmt.Sprintf("inspect the logs with `%s logs %s`, fix the cause, then retry with `%s up -d --build %s`",
		base, service, base, service)
}

// Detect returns the first engine from Engines found by lookPath.
func Detect(lookPath func(string) (string, error)) (string, bool) {
	for _, e := range Engines {
		if _, err := lookPath(e); err == nil {
			return e, true
		}
	}
	return "", false
}
