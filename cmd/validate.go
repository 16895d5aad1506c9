package cmd

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/activate"
	"github.com/natejswenson/traefik-local-cli/internal/config"
	"github.com/natejswenson/traefik-local-cli/internal/manifest"
	"github.com/natejswenson/traefik-local-cli/internal/ui"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check your traefik-local configuration and compose stack",
	Long: `Check that the configuration is valid, the compose file exists and
parses, it defines the proxy service and a network, and the container
engine is installed.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Print(ui.FormatError("Failed to load config", err.Error(), "run 'traefik-local init' to create a config file"))
		return errReported
	}

	fmt.Println(ui.Bold("Validating traefik-local configuration..."))

	passed := 0
	failed := 0
	fail := func(field, message, suggestion string) {
		ui.ValidationErr(field, message, suggestion)
		failed++
	}
	ok := func(field, detail string) {
		ui.ValidationOK(field, detail)
		passed++
	}

	problems := cfg.Validate()
	for _, p := range problems {
		fail(p.Field, p.Message, p.Suggestion)
	}
	if len(problems) == 0 {
		ok("config", "settings valid")
	}

	manifestPath, err := manifest.Resolve(cfg.Manifest)
	if err != nil {
		manifestPath = cfg.Manifest
	}
	summary, err := manifest.Inspect(cmd.Context(), manifestPath)
	if err != nil {
		fail("manifest", err.Error(), "set manifest in traefik-local.yml or pass --config")
	} else {
		ok("manifest", fmt.Sprintf("%s (%d services)", manifestPath, len(summary.Services)))

		if summary.HasService(cfg.ProxyService) {
			ok("proxy_service", cfg.ProxyService+" defined")
		} else {
			fail("proxy_service", cfg.ProxyService+" is not defined in the manifest", "connected services would depend on a missing proxy")
		}

		switch {
		case cfg.Network != "" && contains(summary.Networks, cfg.Network):
			ok("network", cfg.Network)
		case cfg.Network != "":
			fail("network", cfg.Network+" is not declared in the manifest", "declared: "+strings.Join(summary.Networks, ", "))
		default:
			if network, err := summary.DefaultNetwork(); err != nil {
				fail("network", err.Error(), "add a networks: section shared with the proxy")
			} else {
				ok("network", network+" (first declared)")
			}
		}
	}

	driver := &activate.ComposeDriver{Engine: cfg.Engine}
	if err := driver.Check(); err != nil {
		suggestion := "install " + cfg.Engine + " or use connect --no-build"
		if other, found := activate.Detect(exec.LookPath); found {
			suggestion = "set engine: " + other + " in traefik-local.yml"
		}
		fail("engine", err.Error(), suggestion)
	} else {
		ok("engine", cfg.Engine+" found")
	}

	fmt.Println()
	if failed == 0 {
		ui.Success(fmt.Sprintf("%d checks passed, 0 errors", passed))
	} else {
		fmt.Printf("%d checks passed, %d errors\n", passed, failed)
	}

	if failed > 0 {
		return errReported
	}
	return nil
}

func contains(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
