package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/natejswenson/traefik-local-cli/internal/ui"
	"github.com/natejswenson/traefik-local-cli/internal/util"
	"github.com/natejswenson/traefik-local-cli/internal/wizard"
	"github.com/spf13/cobra"
)

var (
	initGlobal bool
	initForce  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Point traefik-local at your compose stack",
	Long: `Find docker or podman and any compose files nearby, ask which stack
services should join and how traefik routes them, then write
traefik-local.yml and check that the stack is ready for connect.

With --global the config goes to ~/.config/traefik-local and applies in
every directory.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initGlobal, "global", "g", false, "write the per-user config instead of ./traefik-local.yml")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "replace an existing config without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil && initGlobal {
		return fmt.Errorf("locating home directory: %w", err)
	}
	configPath := wizard.ConfigPath(initGlobal, home)

	if _, err := os.Stat(configPath); err == nil && !initForce {
		replace, err := wizard.ConfirmOverwrite(configPath)
		if err != nil {
			return fmt.Errorf("wizard: %w", err)
		}
		if !replace {
			fmt.Println(ui.Hint("kept " + configPath))
			return nil
		}
	}

	detection := wizard.Detect(nil)
	if len(detection.Engines) == 0 {
		ui.Warn("neither docker nor podman is on PATH; connect --no-build still works")
	}

	answers, err := wizard.Run(detection)
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	if initGlobal {
		// A relative manifest would resolve against wherever connect runs.
		if abs, err := filepath.Abs(util.ExpandPath(answers.Manifest)); err == nil {
			answers.Manifest = abs
		}
	}

	content, err := wizard.GenerateConfig(*answers)
	if err != nil {
		return fmt.Errorf("generating config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	ui.Success("Wrote " + configPath)

	stack := wizard.CheckStack(cmd.Context(), *answers)
	fmt.Println()
	ui.Field("stack", stack.Manifest)
	if stack.Summary.Path != "" {
		ui.Field("services", fmt.Sprintf("%d", len(stack.Summary.Services)))
		ui.Field("networks", fmt.Sprintf("%v", stack.Summary.Networks))
	}
	for _, p := range stack.Problems {
		ui.Warn(p)
	}

	fmt.Println()
	fmt.Println(ui.Bold("Next:"))
	for _, step := range stack.NextSteps {
		fmt.Printf("  %s\n", step)
	}
	return nil
}
