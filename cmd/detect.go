package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/natejswenson/traefik-local-cli/internal/connector"
	"github.com/natejswenson/traefik-local-cli/internal/ui"
	"github.com/spf13/cobra"
)

var detectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect PATH",
	Short: "Show what traefik-local detects for a project",
	Long: `Run detection only and print the language, framework, entrypoint, port
and dependencies found at PATH. Nothing is validated or written.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the descriptor as JSON")
}

// descriptorJSON is the --json shape.
type descriptorJSON struct {
	Name                 string   `json:"name"`
	SourcePath           string   `json:"source_path"`
	Language             string   `json:"language"`
	Framework            string   `json:"framework"`
	Port                 int      `json:"port"`
	PortSource           string   `json:"port_source"`
	Entrypoint           string   `json:"entrypoint"`
	DependencyManifest   string   `json:"dependency_manifest,omitempty"`
	Dependencies         []string `json:"dependencies"`
	HasExistingBuildFile bool     `json:"has_existing_build_file"`
	Confidence           string   `json:"confidence"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	conn := &connector.Connector{Logger: logger}
	out, err := conn.Describe(connector.Request{SourcePath: args[0]})
	if err != nil {
		reportConnectError(err)
		return err
	}

	if detectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSON(out))
	}

	printDescriptor(out)
	ui.Field("source", out.Descriptor.SourcePath)
	if out.Descriptor.HasExistingBuildFile {
		fmt.Println("  existing Dockerfile will be used as is")
	}
	return nil
}

func toJSON(out connector.Outcome) descriptorJSON {
	d := out.Descriptor
	deps := []string{}
	for _, dep := range d.Dependencies.List() {
		deps = append(deps, string(dep))
	}
	return descriptorJSON{
		Name:                 d.Name,
		SourcePath:           d.SourcePath,
		Language:             string(d.Language),
		Framework:            string(d.Framework),
		Port:                 d.Port,
		PortSource:           out.PortSource,
		Entrypoint:           d.Entrypoint,
		DependencyManifest:   d.DependencyManifest,
		Dependencies:         deps,
		HasExistingBuildFile: d.HasExistingBuildFile,
		Confidence:           out.Confidence.String(),
	}
}
