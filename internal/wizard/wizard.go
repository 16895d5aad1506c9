package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/natejswenson/traefik-local-cli/internal/config"
	"github.com/natejswenson/traefik-local-cli/internal/model"
	"github.com/natejswenson/traefik-local-cli/internal/validate"
)

// Run executes the interactive wizard and returns the user's answers.
func Run(detection DetectionResult) (*WizardAnswers, error) {
	answers := &WizardAnswers{
		DomainSuffix: "localhost",
		ProxyService: "traefik",
		Entrypoint:   "websecure",
		TLS:          true,
		Engine:       detection.DefaultEngine(),
		MaxBackups:   10,
	}

	// Build detection summary
	var hints []string
	if len(detection.Engines) > 0 {
		hints = append(hints, fmt.Sprintf("Container engines: %s", strings.Join(detection.Engines, ", ")))
	}
	if len(detection.ComposeFiles) > 0 {
		hints = append(hints, fmt.Sprintf("Compose files found: %s", strings.Join(detection.ComposeFiles, ", ")))
	}

	desc := "The shared docker-compose file your services are added to."
	if len(hints) > 0 {
		desc += "\n\nAuto-detected:\n  " + strings.Join(hints, "\n  ")
	}

	// Step 1: the manifest
	var manifestField huh.Field
	if len(detection.ComposeFiles) > 1 {
		answers.Manifest = detection.ComposeFiles[0]
		opts := make([]huh.Option[string], 0, len(detection.ComposeFiles))
		for _, f := range detection.ComposeFiles {
			opts = append(opts, huh.NewOption(f, f))
		}
		manifestField = huh.NewSelect[string]().
			Title("Which compose file is your stack?").
			Description(desc).
			Options(opts...).
			Value(&answers.Manifest)
	} else {
		if len(detection.ComposeFiles) == 1 {
			answers.Manifest = detection.ComposeFiles[0]
		}
		manifestField = huh.NewInput().
			Title("Path to your stack's compose file").
			Description(desc).
			Placeholder("~/traefik-local/docker-compose.yml").
			Validate(notEmpty("manifest path")).
			Value(&answers.Manifest)
	}

	// Step 2: routing
	maxBackups := strconv.Itoa(answers.MaxBackups)
	form := huh.NewForm(
		huh.NewGroup(manifestField),
		huh.NewGroup(
			huh.NewInput().
				Title("Domain suffix").
				Description("Services are reachable at <name>.<suffix>").
				Validate(validate.Domain).
				Value(&answers.DomainSuffix),
			huh.NewInput().
				Title("Proxy service name").
				Description("The traefik service in the compose file").
				Validate(proxyService).
				Value(&answers.ProxyService),
			huh.NewSelect[string]().
				Title("Traefik entrypoint").
				Options(
					huh.NewOption("websecure (HTTPS)", "websecure"),
					huh.NewOption("web (HTTP)", "web"),
				).
				Value(&answers.Entrypoint),
			huh.NewConfirm().
				Title("Enable TLS on generated routers?").
				Value(&answers.TLS),
		),
		// Step 3: engine and backups
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Container engine").
				Options(
					huh.NewOption("Docker", "docker"),
					huh.NewOption("Podman", "podman"),
				).
				Value(&answers.Engine),
			huh.NewInput().
				Title("Backups to keep per manifest").
				Description("0 keeps every backup").
				Validate(nonNegative).
				Value(&maxBackups),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}
	answers.MaxBackups, _ = strconv.Atoi(maxBackups)

	return answers, nil
}

// Review asks the user to confirm or change the detected service name and
// domain suffix before anything is written.
func Review(d model.ServiceDescriptor, domain string) (string, string, error) {
	name := d.Name
	confirmed := true

	summary := fmt.Sprintf("%s/%s on port %d, entrypoint %s", d.Language, d.Framework, d.Port, d.Entrypoint)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Service name").
				Description(summary).
				Validate(validate.Name).
				Value(&name),
			huh.NewInput().
				Title("Domain suffix").
				Validate(validate.Domain).
				Value(&domain),
			huh.NewConfirm().
				Title("Connect this service?").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", err
	}
	if !confirmed {
		return "", "", huh.ErrUserAborted
	}
	return name, domain, nil
}

// ConfirmOverwrite asks before an existing config at path is replaced.
func ConfirmOverwrite(path string) (bool, error) {
	overwrite := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(path + " already exists").
			Description("Replace it with the answers you are about to give?").
			Affirmative("Replace").
			Negative("Keep").
			Value(&overwrite),
	)).Run()
	return overwrite, err
}

func notEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func proxyService(s string) error {
	if !config.ValidProxyService(strings.TrimSpace(s)) {
		return fmt.Errorf("use a compose service name: letters, digits, '.', '_' and '-'")
	}
	return nil
}

func nonNegative(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number, 0 or more")
	}
	return nil
}
