package detect

import (
	"regexp"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/model"
)

func init() {
	RegisterProfile(Profile{
		Language:   model.LanguagePython,
		Priority:   10,
		Manifests:  pythonManifests,
		Extensions: pythonExts,
		Imports:    func(s *Signature) map[string]bool { return s.PythonImports },
		Match: func(s *Signature) Confidence {
			for _, m := range pythonManifests {
				if s.Has(m) {
					return ConfidenceHigh
				}
			}
			if s.Count(pythonExts) > 0 {
				return ConfidenceLow
			}
			return ConfidenceNone
		},
		Entrypoints: []string{
			"main.py",
			"app.py",
			"server.py",
			"application.py",
			"app/main.py",
			"src/main.py",
			"src/app.py",
			"wsgi.py",
			"asgi.py",
			"run.py",
		},
		Fallback: "main.py",
		Launcher: func(s *Signature, fw model.Framework) (string, bool) {
			if fw == model.FrameworkDjango && s.Has("manage.py") {
				return "manage.py", true
			}
			return "", false
		},
		// Ports must sit in a run or serve call, or in a top level PORT
		// assignment. Client arguments such as Redis("localhost", 6379) do not
		// count.
		PortPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\.run\((?:[^()]|\([^()]*\))*?\bport\s*=\s*(\d{2,5})\b`),
			regexp.MustCompile(`(?m)^(?:PORT|port)\s*=\s*(\d{2,5})\b`),
			regexp.MustCompile(`--port[=\s]+(\d{2,5})\b`),
			regexp.MustCompile(`(?:environ\.get|getenv)\(\s*["']PORT["']\s*,\s*["']?(\d{2,5})`),
			regexp.MustCompile(`(?:\.run|make_server|serve|\.bind|HTTPServer)\(\s*\(?\s*["'](?:0\.0\.0\.0|127\.0\.0\.1|localhost)?["']\s*,\s*(\d{2,5})\b`),
		},
		FrameworkPortPatterns: map[model.Framework][]*regexp.Regexp{
			model.FrameworkDjango: {
				regexp.MustCompile(`runserver["',\s]+(?:[\w.]+:)?(\d{2,5})\b`),
			},
			model.FrameworkFlask: {
				regexp.MustCompile(`FLASK_RUN_PORT\s*=\s*["']?(\d{2,5})`),
			},
		},
		ManifestPortPatterns: []*regexp.Regexp{
			regexp.MustCompile(`--port[=\s]+(\d{2,5})\b`),
			regexp.MustCompile(`runserver\s+(?:[\w.]+:)?(\d{2,5})\b`),
			regexp.MustCompile(`\bPORT=(\d{2,5})\b`),
		},
	})

	pyImports := func(s *Signature) map[string]bool { return s.PythonImports }

	RegisterFramework(FrameworkRule{
		Language:  model.LanguagePython,
		Framework: model.FrameworkFastAPI,
		Priority:  10,
		Match:     declaredOrImported("fastapi", pyImports),
	})
	RegisterFramework(FrameworkRule{
		Language:  model.LanguagePython,
		Framework: model.FrameworkDjango,
		Priority:  20,
		Match: func(s *Signature) Confidence {
			if s.Has("manage.py") && strings.Contains(s.Content("manage.py"), "django") {
				return ConfidenceHigh
			}
			return declaredOrImported("django", pyImports)(s)
		},
	})
	RegisterFramework(FrameworkRule{
		Language:  model.LanguagePython,
		Framework: model.FrameworkFlask,
		Priority:  30,
		Match:     declaredOrImported("flask", pyImports),
	})
}
