package generate

import (
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/model"
)

var commonIgnores = []string{
	".git",
	".gitignore",
	".dockerignore",
	"Dockerfile",
	"docker-compose*.yml",
	".env",
	".env.*",
	".DS_Store",
	".vscode",
	".idea",
	"*.log",
}

var languageIgnores = map[model.Language][]string{
	model.LanguagePython: {
		"__pycache__",
		"*.py[cod]",
		".pytest_cache",
		".mypy_cache",
		".ruff_cache",
		".venv",
		"venv",
		"env",
		"*.egg-info",
		"dist",
		"build",
		".coverage",
		"htmlcov",
	},
	model.LanguageNode: {
		"node_modules",
		"npm-debug.log*",
		"yarn-debug.log*",
		"yarn-error.log*",
		".npm",
		".next",
		"dist",
		"coverage",
		".nyc_output",
	},
}

// IgnoreFile renders the .dockerignore for lang.
func IgnoreFile(lang model.Language) string {
	var b strings.Builder
	b.WriteString("# Generated by traefik-local\n")
	for _, p := range commonIgnores {
		b.WriteString(p)
		b.WriteString("\n")
	}
	if extra, ok := languageIgnores[lang]; ok {
		b.WriteString("\n# ")
		b.WriteString(string(lang))
		b.WriteString("\n")
		for _, p := range extra {
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	return b.String()
}
