package detect

import (
	"regexp"

	"github.com/natejswenson/traefik-local-cli/internal/model"
)

var nodeManifests = []string{"package.json"}

func init() {
	RegisterProfile(Profile{
		Language:   model.LanguageNode,
		Priority:   20,
		Manifests:  nodeManifests,
		Extensions: nodeExts,
		Imports:    func(s *Signature) map[string]bool { return s.NodeImports },
		Match: func(s *Signature) Confidence {
			if s.Has("package.json") {
				return ConfidenceHigh
			}
			if s.Count(nodeExts) > 0 {
				return ConfidenceLow
			}
			return ConfidenceNone
		},
		Entrypoints: []string{
			"server.js",
			"app.js",
			"main.js",
			"application.js",
			"src/server.js",
			"src/app.js",
			"src/main.js",
			"server.ts",
			"app.ts",
			"main.ts",
			"src/server.ts",
			"src/app.ts",
			"src/main.ts",
			"index.js",
			"src/index.js",
			"index.ts",
			"src/index.ts",
		},
		Fallback: "index.js",
		Launcher: func(s *Signature, fw model.Framework) (string, bool) {
			switch fw {
			case model.FrameworkNextJS:
				return "package.json", true
			case model.FrameworkNestJS:
				if s.Has("src/main.ts") {
					return "src/main.ts", true
				}
			}
			if s.PackageJSON != nil && s.PackageJSON.Main != "" && s.Has(cleanRel(s.PackageJSON.Main)) {
				return cleanRel(s.PackageJSON.Main), true
			}
			return "", false
		},
		// Only literals handed to listen or bound to the process port count;
		// client options such as { port: 5432 } do not.
		PortPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\.listen\(\s*(\d{2,5})\b`),
			regexp.MustCompile(`\.listen\(\s*\{[^}]*?\bport\s*:\s*(\d{2,5})\b`),
			regexp.MustCompile(`process\.env\.PORT\s*(?:\|\||\?\?)\s*["']?(\d{2,5})\b`),
			regexp.MustCompile(`\b(?:const|let|var)\s+(?:PORT|port)\s*=\s*(\d{2,5})\b`),
		},
		FrameworkPortPatterns: map[model.Framework][]*regexp.Regexp{
			model.FrameworkNextJS: {
				regexp.MustCompile(`next\s+(?:start|dev)\b[^"\n]*?(?:-p|--port)[=\s]+(\d{2,5})\b`),
			},
		},
		ManifestPortPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:-p|--port)[=\s]+(\d{2,5})\b`),
			regexp.MustCompile(`\bPORT=(\d{2,5})\b`),
		},
	})

	nodeImports := func(s *Signature) map[string]bool { return s.NodeImports }

	RegisterFramework(FrameworkRule{
		Language:  model.LanguageNode,
		Framework: model.FrameworkNextJS,
		Priority:  10,
		Match: func(s *Signature) Confidence {
			for _, cfg := range []string{"next.config.js", "next.config.mjs", "next.config.ts"} {
				if s.Has(cfg) {
					return ConfidenceHigh
				}
			}
			return declaredOrImported("next", nodeImports)(s)
		},
	})
	RegisterFramework(FrameworkRule{
		Language:  model.LanguageNode,
		Framework: model.FrameworkNestJS,
		Priority:  20,
		Match:     declaredOrImported("@nestjs/core", nodeImports),
	})
	RegisterFramework(FrameworkRule{
		Language:  model.LanguageNode,
		Framework: model.FrameworkExpress,
		Priority:  30,
		Match:     declaredOrImported("express", nodeImports),
	})
	RegisterFramework(FrameworkRule{
		Language:  model.LanguageNode,
		Framework: model.FrameworkKoa,
		Priority:  40,
		Match:     declaredOrImported("koa", nodeImports),
	})
}
