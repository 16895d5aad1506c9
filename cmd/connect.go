package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/activate"
	"github.com/natejswenson/traefik-local-cli/internal/config"
	"github.com/natejswenson/traefik-local-cli/internal/connector"
	"github.com/natejswenson/traefik-local-cli/internal/manifest"
	"github.com/natejswenson/traefik-local-cli/internal/ui"
	"github.com/natejswenson/traefik-local-cli/internal/util"
	"github.com/natejswenson/traefik-local-cli/internal/validate"
	"github.com/natejswenson/traefik-local-cli/internal/wizard"
	"github.com/spf13/cobra"
)

var (
	connectName          string
	connectPort          int
	connectDomain        string
	connectManifest      string
	connectHealthCommand string
	connectDryRun        bool
	connectNoBuild       bool
	connectKeep          bool
	connectInteractive   bool
)

var connectCmd = &cobra.Command{
	Use:   "connect PATH",
	Short: "Add a service to the shared compose stack and start it",
	Long: `Detect the language, framework, port and dependencies of the project at
PATH, write a Dockerfile and .dockerignore if it has none, insert a
service with traefik labels into the configured compose file, then build
and start it.

Exit codes: 0 connected, 1 rejected before anything was written,
2 the compose file could not be updated (it is unchanged),
3 the service failed to build or start.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().StringVarP(&connectName, "name", "n", "", "service name (default: derived from the directory name)")
	connectCmd.Flags().IntVarP(&connectPort, "port", "p", 0, "port the service listens on (default: detected)")
	connectCmd.Flags().StringVarP(&connectDomain, "domain", "d", "", "domain suffix (default: domain_suffix from config)")
	connectCmd.Flags().StringVarP(&connectManifest, "manifest", "m", "", "compose file to update (default: manifest from config)")
	connectCmd.Flags().StringVar(&connectHealthCommand, "health-cmd", "", "health check command run inside the container")
	connectCmd.Flags().BoolVar(&connectDryRun, "dry-run", false, "show the compose diff without writing anything")
	connectCmd.Flags().BoolVar(&connectNoBuild, "no-build", false, "update the compose file but do not build or start")
	connectCmd.Flags().BoolVar(&connectKeep, "keep-on-failure", false, "keep the compose change when build or start fails")
	connectCmd.Flags().BoolVarP(&connectInteractive, "interactive", "i", false, "confirm the name and domain before connecting")
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manifestPath := cfg.Manifest
	if connectManifest != "" {
		manifestPath = connectManifest
	}
	if manifestPath, err = manifest.Resolve(util.ExpandPath(manifestPath)); err != nil {
		return err
	}

	driver := &activate.ComposeDriver{
		Engine:       cfg.Engine,
		ManifestPath: manifestPath,
		Timeout:      cfg.ActivationTimeout,
		Logger:       logger,
	}
	conn := &connector.Connector{
		Defaults:  cfg.GenerateOptions(),
		Roots:     validate.DefaultRoots(),
		Manager:   &manifest.Manager{Snapshots: cfg.Snapshots(), Logger: logger},
		Activator: driver,
		Logger:    logger,
	}
	req := connector.Request{
		SourcePath:    args[0],
		ManifestPath:  manifestPath,
		Name:          connectName,
		Port:          connectPort,
		Domain:        connectDomain,
		HealthCommand: connectHealthCommand,
		Env:           config.DependencyEnv(os.LookupEnv),
		DryRun:        connectDryRun,
		NoBuild:       connectNoBuild,
		KeepOnFailure: connectKeep || !cfg.RollbackOnActivationFailure,
	}
	if connectInteractive {
		req.Review = wizard.Review
	}

	if !connectDryRun && !connectNoBuild {
		fmt.Println(ui.Hint("building and starting with " + cfg.Engine + " compose, this can take a while"))
	}
	out, err := conn.Connect(cmd.Context(), req)
	for _, w := range out.Warnings {
		ui.Warn(w)
	}
	if out.Descriptor.Known() {
		printDescriptor(out)
	}
	if err != nil {
		reportConnectError(err)
		return err
	}

	switch {
	case out.Exists:
		fmt.Printf("%s is already in %s\n", ui.Bold(out.Descriptor.Name), manifestPath)
	case out.Plan != nil:
		printPlan(out)
	default:
		printConnected(out, manifestPath, cfg)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, ui.FormatError("Failed to load config", err.Error(), "run 'traefik-local init' to create a config file"))
		return nil, errReported
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		fmt.Fprintln(os.Stderr, ui.Bold("Invalid configuration:"))
		for _, p := range problems {
			ui.ValidationErr(p.Field, p.Message, p.Suggestion)
		}
		return nil, errReported
	}
	return cfg, nil
}

func printDescriptor(out connector.Outcome) {
	d := out.Descriptor
	fmt.Println()
	ui.Field("service", ui.Bold(d.Name))
	ui.Field("language", fmt.Sprintf("%s (%s, %s confidence)", d.Language, d.Framework, out.Confidence))
	ui.Field("port", fmt.Sprintf("%d %s", d.Port, ui.Hint("from "+out.PortSource)))
	ui.Field("entrypoint", d.Entrypoint)
	ui.Field("dependencies", d.Dependencies.String())
	fmt.Println()
}

func printPlan(out connector.Outcome) {
	fmt.Println(ui.Bold("Dry run, nothing was written."))
	if !out.Descriptor.HasExistingBuildFile {
		fmt.Printf("Would create %s and %s in %s\n", ui.Bold("Dockerfile"), ui.Bold(".dockerignore"), out.Descriptor.SourcePath)
		if verbose {
			fmt.Println()
			fmt.Print(out.Artifacts.BuildFile)
		}
	}
	p := out.Plan.Preview
	fmt.Printf("\nCompose changes (+%d -%d):\n\n", p.Added, p.Removed)
	fmt.Print(ui.Diff(p.Diff))
}

func printConnected(out connector.Outcome, manifestPath string, cfg *config.Config) {
	for _, w := range out.Written {
		fmt.Printf("  %s %s\n", ui.Hint("created"), w)
	}
	fmt.Printf("  %s %s\n", ui.Hint("updated"), manifestPath)
	fmt.Printf("  %s %s\n", ui.Hint("backup "), out.BackupPath)
	fmt.Println()

	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}
	url := scheme + "://" + out.Descriptor.Name + "." + out.Domain
	if out.Activated {
		ui.Success(fmt.Sprintf("%s is running at %s", out.Descriptor.Name, url))
		return
	}
	ui.Success(fmt.Sprintf("%s added to %s", out.Descriptor.Name, filepath.Base(manifestPath)))
	fmt.Printf("Start it with: %s\n", ui.Bold(cfg.Engine+" compose -f "+manifestPath+" up -d --build "+out.Descriptor.Name))
	fmt.Printf("It will answer at %s\n", url)
}

func reportConnectError(err error) {
	var ce *connector.Error
	if !errors.As(err, &ce) {
		fmt.Fprint(os.Stderr, ui.FormatError("connect failed", err.Error(), ""))
		return
	}

	var detail []string
	if ce.Err != nil {
		detail = append(detail, strings.ReplaceAll(ce.Err.Error(), "\n", "\n  "))
	}
	if ce.BackupPath != "" {
		detail = append(detail, "backup: "+ce.BackupPath)
	}
	detail = append(detail, "exit code "+strconv.Itoa(ce.Kind.ExitCode()))

	title := ce.Kind.String() + " failed: " + ce.Message
	fmt.Fprint(os.Stderr, ui.FormatError(title, strings.Join(detail, "\n  "), ce.Remediation))
}
