package wizard

import (
	"bytes"
	"text/template"
)

// WizardAnswers holds all user responses from the wizard.
type WizardAnswers struct {
	Manifest     string
	DomainSuffix string
	Network      string // empty: first network in the manifest
	ProxyService string
	Entrypoint   string
	TLS          bool
	Engine       string
	MaxBackups   int
}

const configTemplate = `# traefik-local configuration
# Every key can also be set with a TRAEFIK_LOCAL_<KEY> environment variable.

manifest: {{ .Manifest }}
domain_suffix: {{ .DomainSuffix }}
{{- if .Network }}
network: {{ .Network }}
{{- end }}
proxy_service: {{ .ProxyService }}
entrypoint: {{ .Entrypoint }}
tls: {{ if .TLS }}true{{ else }}false{{ end }}

engine: {{ .Engine }}
activation_timeout: 10m
rollback_on_activation_failure: true

max_backups: {{ .MaxBackups }}
`

// GenerateConfig renders the YAML config from wizard answers.
func GenerateConfig(answers WizardAnswers) (string, error) {
	// Set defaults
	if answers.Manifest == "" {
		answers.Manifest = "docker-compose.yml"
	}
	if answers.DomainSuffix == "" {
		answers.DomainSuffix = "localhost"
	}
	if answers.ProxyService == "" {
		answers.ProxyService = "traefik"
	}
	if answers.Entrypoint == "" {
		answers.Entrypoint = "websecure"
	}
	if answers.Engine == "" {
		answers.Engine = "docker"
	}
	if answers.MaxBackups < 0 {
		answers.MaxBackups = 0
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, answers); err != nil {
		return "", err
	}

	return buf.String(), nil
}
