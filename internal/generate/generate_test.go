package generate

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/natejswenson/traefik-local-cli/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var update = flag.Bool("update", false, "rewrite golden files")

func golden(t *testing.T, name, got string) {
	t.Helper()
	path := filepath.Join("testdata", name+".golden")
	if *update {
		require.NoError(t, os.WriteFile(path, []byte(got), 0o644))
	}
	want, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(want), got)
}

func fastAPIService() (model.ServiceDescriptor, Options) {
	d := model.ServiceDescriptor{
		Name:               "orders",
		SourcePath:         "/work/services/orders",
		Language:           model.LanguagePython,
		Framework:          model.FrameworkFastAPI,
		Port:               8001,
		Entrypoint:         "main.py",
		DependencyManifest: "requirements.txt",
		Dependencies:       model.NewDependencySet(model.DependencyRedis, model.DependencyPostgres),
	}
	opts := DefaultOptions()
	opts.Network = "proxy"
	opts.ManifestDir = "/work/stack"
	return d, opts
}

func expressService() (model.ServiceDescriptor, Options) {
	d := model.ServiceDescriptor{
		Name:               "shop",
		SourcePath:         "/work/stack/shop",
		Language:           model.LanguageNode,
		Framework:          model.FrameworkExpress,
		Port:               3000,
		Entrypoint:         "index.js",
		DependencyManifest: "package.json",
		Dependencies:       model.NewDependencySet(model.DependencyMongoDB),
	}
	opts := Options{
		DomainSuffix: "localhost",
		Network:      "web",
		ProxyService: "traefik",
		Entrypoint:   "web",
		TLS:          false,
		ManifestDir:  "/work/stack",
		Env:          map[string]string{"MONGODB_URI": "mongodb://atlas.example:27017/shop"},
	}
	return d, opts
}

func TestGenerateGolden(t *testing.T) {
	tests := []struct {
		name  string
		build func() (model.ServiceDescriptor, Options)
	}{
		{"fastapi", fastAPIService},
		{"express", expressService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, opts := tt.build()
			art, err := Generate(d, opts)
			require.NoError(t, err)

			golden(t, tt.name+".Dockerfile", art.BuildFile)
			golden(t, tt.name+".fragment", art.Fragment)
		})
	}
}

func TestGenerateIsPure(t *testing.T) {
	d, opts := fastAPIService()
	first, err := Generate(d, opts)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := Generate(d, opts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildFileLaunchCommands(t *testing.T) {
	tests := []struct {
		name     string
		lang     model.Language
		fw       model.Framework
		entry    string
		manifest string
		want     []string
		absent   []string
	}{
		{
			name:     "python generic",
			lang:     model.LanguagePython,
			fw:       model.FrameworkGeneric,
			entry:    "server.py",
			manifest: "requirements.txt",
			want:     []string{`CMD ["python", "server.py"]`},
			absent:   []string{"uvicorn"},
		},
		{
			name:     "flask nested module",
			lang:     model.LanguagePython,
			fw:       model.FrameworkFlask,
			entry:    "app/main.py",
			manifest: "requirements.txt",
			want:     []string{`CMD ["flask", "--app", "app.main", "run", "--host", "0.0.0.0", "--port", "5000"]`},
		},
		{
			name:     "django",
			lang:     model.LanguagePython,
			fw:       model.FrameworkDjango,
			entry:    "manage.py",
			manifest: "requirements.txt",
			want:     []string{`CMD ["python", "manage.py", "runserver", "0.0.0.0:5000"]`},
		},
		{
			name:     "pyproject installs the project",
			lang:     model.LanguagePython,
			fw:       model.FrameworkGeneric,
			entry:    "main.py",
			manifest: "pyproject.toml",
			want:     []string{"COPY . .\nRUN pip install --no-cache-dir .\n"},
		},
		{
			name:     "pipfile",
			lang:     model.LanguagePython,
			fw:       model.FrameworkGeneric,
			entry:    "main.py",
			manifest: "Pipfile",
			want:     []string{"COPY Pipfile* ./", "pipenv install --system"},
		},
		{
			name:     "no manifest",
			lang:     model.LanguagePython,
			fw:       model.FrameworkGeneric,
			entry:    "main.py",
			want:     []string{"COPY . ."},
			absent:   []string{"pip install"},
		},
		{
			name:     "koa uses node template",
			lang:     model.LanguageNode,
			fw:       model.FrameworkKoa,
			entry:    "app.js",
			manifest: "package.json",
			want:     []string{`CMD ["node", "app.js"]`, "RUN npm install"},
			absent:   []string{"npm run build"},
		},
		{
			name:     "typescript entry",
			lang:     model.LanguageNode,
			fw:       model.FrameworkGeneric,
			entry:    "src/app.ts",
			manifest: "package.json",
			want:     []string{`CMD ["npx", "tsx", "src/app.ts"]`},
		},
		{
			name:     "nest builds first",
			lang:     model.LanguageNode,
			fw:       model.FrameworkNestJS,
			entry:    "src/main.ts",
			manifest: "package.json",
			want:     []string{"COPY . .\n\nRUN npm run build\n", `CMD ["node", "dist/main"]`},
		},
		{
			name:     "next",
			lang:     model.LanguageNode,
			fw:       model.FrameworkNextJS,
			entry:    "package.json",
			manifest: "package.json",
			want:     []string{"RUN npm run build", `CMD ["npm", "start", "--", "-p", "5000"]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := model.ServiceDescriptor{
				Name:               "svc",
				Language:           tt.lang,
				Framework:          tt.fw,
				Port:               5000,
				Entrypoint:         tt.entry,
				DependencyManifest: tt.manifest,
			}
			out, err := BuildFile(d)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(out, "# Generated by traefik-local for svc"))
			assert.Contains(t, out, "WORKDIR /app\n")
			assert.Contains(t, out, "EXPOSE 5000\n")
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, out, a)
			}
		})
	}
}

func TestLookupFallsBackToGeneric(t *testing.T) {
	tmpl, ok := Lookup(model.LanguagePython, model.Framework("tornado"))
	require.True(t, ok)
	assert.Equal(t, model.FrameworkGeneric, tmpl.Framework)

	_, ok = Lookup(model.LanguageUnknown, model.FrameworkGeneric)
	assert.False(t, ok)
}

func TestCatalogCoversKnownFrameworks(t *testing.T) {
	pairs := map[model.Language][]model.Framework{
		model.LanguagePython: {model.FrameworkFastAPI, model.FrameworkFlask, model.FrameworkDjango, model.FrameworkGeneric},
		model.LanguageNode:   {model.FrameworkExpress, model.FrameworkNestJS, model.FrameworkNextJS, model.FrameworkKoa, model.FrameworkGeneric},
	}
	for lang, fws := range pairs {
		for _, fw := range fws {
			tmpl, ok := Lookup(lang, fw)
			require.True(t, ok, "%s/%s", lang, fw)
			assert.Equal(t, fw, tmpl.Framework)
			assert.NotEmpty(t, tmpl.Stanzas)
		}
	}
}

func TestGenerateUnknownLanguage(t *testing.T) {
	d := model.ServiceDescriptor{Name: "x", Language: model.LanguageUnknown, Port: 8080}
	_, err := Generate(d, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFragmentOverridesAreEscaped(t *testing.T) {
	d, opts := fastAPIService()
	opts.Env = map[string]string{
		"POSTGRES_PASSWORD": "pa$word",
		"POSTGRES_HOST":     "",
		"UNRELATED":         "ignored",
	}

	out, err := FragmentText(d, opts)
	require.NoError(t, err)

	assert.Contains(t, out, "POSTGRES_PASSWORD=${POSTGRES_PASSWORD:-pa$$word}")
	assert.Contains(t, out, "POSTGRES_HOST=${POSTGRES_HOST:-postgres}")
	assert.NotContains(t, out, "UNRELATED")
}

func TestFragmentOptionalSections(t *testing.T) {
	d, opts := fastAPIService()
	d.Dependencies = 0
	opts.ProxyService = ""
	opts.Network = ""
	opts.HealthCommand = "curl -f http://localhost:8001/health"

	node, err := Fragment(d, opts)
	require.NoError(t, err)
	require.Len(t, node.Content, 2)
	assert.Equal(t, "orders", node.Content[0].Value)

	var parsed map[string]map[string]any
	out, err := Encode(node)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))

	svc := parsed["orders"]
	assert.NotContains(t, svc, "depends_on")
	assert.NotContains(t, svc, "networks")
	assert.Equal(t, []any{"PORT=8001"}, svc["environment"])
	health := svc["healthcheck"].(map[string]any)
	assert.Equal(t, []any{"CMD-SHELL", "curl -f http://localhost:8001/health"}, health["test"])
	assert.Equal(t, 3, health["retries"])
}

func TestFragmentVolumes(t *testing.T) {
	tests := []struct {
		name string
		lang model.Language
		fw   model.Framework
		want []any
	}{
		{"fastapi mounts source", model.LanguagePython, model.FrameworkFastAPI, []any{"./svc:/app"}},
		{"express keeps node_modules", model.LanguageNode, model.FrameworkExpress, []any{"./svc:/app", "/app/node_modules"}},
		{"generic node keeps node_modules", model.LanguageNode, model.FrameworkGeneric, []any{"./svc:/app", "/app/node_modules"}},
		{"nestjs runs as built", model.LanguageNode, model.FrameworkNestJS, nil},
		{"nextjs runs as built", model.LanguageNode, model.FrameworkNextJS, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := model.ServiceDescriptor{
				Name:               "svc",
				SourcePath:         "/work/stack/svc",
				Language:           tt.lang,
				Framework:          tt.fw,
				Port:               3000,
				Entrypoint:         "index.js",
				DependencyManifest: "package.json",
			}
			opts := DefaultOptions()
			opts.ManifestDir = "/work/stack"

			out, err := FragmentText(d, opts)
			require.NoError(t, err)
			var parsed map[string]map[string]any
			require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))

			vols, ok := parsed["svc"]["volumes"]
			if tt.want == nil {
				assert.False(t, ok, out)
				return
			}
			assert.Equal(t, tt.want, vols)
		})
	}
}

func TestBuildContext(t *testing.T) {
	tests := []struct {
		source, manifestDir, want string
	}{
		{"/work/stack/api", "/work/stack", "./api"},
		{"/work/stack", "/work/stack", "."},
		{"/work/services/api", "/work/stack", "../services/api"},
		{"/work/stack/apps/web", "/work/stack", "./apps/web"},
		{"/work/api", "", "/work/api"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildContext(tt.source, tt.manifestDir), tt.source)
	}
}

func TestIgnoreFile(t *testing.T) {
	py := IgnoreFile(model.LanguagePython)
	assert.Contains(t, py, "__pycache__\n")
	assert.Contains(t, py, ".venv\n")
	assert.Contains(t, py, ".git\n")
	assert.NotContains(t, py, "node_modules")

	js := IgnoreFile(model.LanguageNode)
	assert.Contains(t, js, "node_modules\n")
	assert.Contains(t, js, ".env\n")
	assert.NotContains(t, js, "__pycache__")
}

func TestOverrideKeys(t *testing.T) {
	assert.Equal(t, []string{
		"MONGODB_URI",
		"POSTGRES_HOST",
		"POSTGRES_USER",
		"POSTGRES_PASSWORD",
		"POSTGRES_DB",
		"REDIS_URL",
	}, OverrideKeys())
}
