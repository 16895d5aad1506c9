package generate

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/natejswenson/traefik-local-cli/internal/model"
)

// Stanza renders one section of a build file. A nil result omits the section.
type Stanza func(d model.ServiceDescriptor) []string

// Template is the build recipe for one (language, framework) pair.
type Template struct {
	Language  model.Language
	Framework model.Framework
	Stanzas   []Stanza

	// Volumes lists the compose volume entries for a service whose build
	// context is context. Nil runs the image as built, with no source mount.
	Volumes func(context string) []string
}

type templateKey struct {
	lang model.Language
	fw   model.Framework
}

var catalog = map[templateKey]Template{}

func register(t Template) {
	catalog[templateKey{t.Language, t.Framework}] = t
}

// Lookup returns the template for lang and fw. Frameworks without their own
// entry use the language's generic template.
func Lookup(lang model.Language, fw model.Framework) (Template, bool) {
	if t, ok := catalog[templateKey{lang, fw}]; ok {
		return t, true
	}
	t, ok := catalog[templateKey{lang, model.FrameworkGeneric}]
	return t, ok
}

const (
	pythonImage = "python:3.12-slim"
	nodeImage   = "node:20-alpine"
)

func init() {
	python := func(fw model.Framework, extra []Stanza, launch Stanza) {
		stanzas := []Stanza{from(pythonImage, "PYTHONUNBUFFERED=1"), workdir, pythonInstall}
		stanzas = append(stanzas, extra...)
		stanzas = append(stanzas, copySource, expose, launch)
		register(Template{Language: model.LanguagePython, Framework: fw, Stanzas: stanzas, Volumes: sourceMount})
	}
	python(model.FrameworkGeneric, nil, cmd(func(d model.ServiceDescriptor) []string {
		return []string{"python", d.Entrypoint}
	}))
	python(model.FrameworkFastAPI, []Stanza{run(`pip install --no-cache-dir "uvicorn[standard]"`)}, cmd(func(d model.ServiceDescriptor) []string {
		return []string{"uvicorn", pythonModule(d.Entrypoint) + ":app", "--host", "0.0.0.0", "--port", strconv.Itoa(d.Port)}
	}))
	python(model.FrameworkFlask, nil, cmd(func(d model.ServiceDescriptor) []string {
		return []string{"flask", "--app", pythonModule(d.Entrypoint), "run", "--host", "0.0.0.0", "--port", strconv.Itoa(d.Port)}
	}))
	python(model.FrameworkDjango, nil, cmd(func(d model.ServiceDescriptor) []string {
		return []string{"python", d.Entrypoint, "runserver", fmt.Sprintf("0.0.0.0:%d", d.Port)}
	}))

	node := func(fw model.Framework, build bool, launch Stanza) {
		stanzas := []Stanza{from(nodeImage), workdir, nodeInstall, copySource}
		// Built output lives only in the image, so a source mount would hide it.
		volumes := nodeMounts
		if build {
			stanzas = append(stanzas, run("npm run build"))
			volumes = nil
		}
		stanzas = append(stanzas, expose, launch)
		register(Template{Language: model.LanguageNode, Framework: fw, Stanzas: stanzas, Volumes: volumes})
	}
	nodeEntry := cmd(func(d model.ServiceDescriptor) []string {
		if ext := path.Ext(d.Entrypoint); ext == ".ts" || ext == ".tsx" {
			return []string{"npx", "tsx", d.Entrypoint}
		}
		return []string{"node", d.Entrypoint}
	})
	node(model.FrameworkGeneric, false, nodeEntry)
	node(model.FrameworkExpress, false, nodeEntry)
	node(model.FrameworkKoa, false, nodeEntry)
	node(model.FrameworkNestJS, true, cmd(func(d model.ServiceDescriptor) []string {
		return []string{"node", "dist/main"}
	}))
	node(model.FrameworkNextJS, true, cmd(func(d model.ServiceDescriptor) []string {
		return []string{"npm", "start", "--", "-p", strconv.Itoa(d.Port)}
	}))
}

// sourceMount bind-mounts the source over the image's copy.
func sourceMount(context string) []string {
	return []string{context + ":/app"}
}

// nodeMounts also keeps the image's node_modules visible under the mount.
func nodeMounts(context string) []string {
	return []string{context + ":/app", "/app/node_modules"}
}

func from(image string, env ...string) Stanza {
	return func(model.ServiceDescriptor) []string {
		lines := []string{"FROM " + image}
		for _, e := range env {
			lines = append(lines, "ENV "+e)
		}
		return lines
	}
}

func workdir(model.ServiceDescriptor) []string {
	return []string{"WORKDIR /app"}
}

func run(command string) Stanza {
	return func(model.ServiceDescriptor) []string {
		return []string{"RUN " + command}
	}
}

func pythonInstall(d model.ServiceDescriptor) []string {
	switch d.DependencyManifest {
	case "requirements.txt":
		return []string{
			"COPY requirements.txt .",
			"RUN pip install --no-cache-dir -r requirements.txt",
		}
	case "Pipfile":
		return []string{
			"COPY Pipfile* ./",
			"RUN pip install --no-cache-dir pipenv && pipenv install --system --skip-lock",
		}
	case "pyproject.toml", "setup.py":
		// Installing the project itself needs the whole tree.
		return []string{
			"COPY . .",
			"RUN pip install --no-cache-dir .",
		}
	}
	return nil
}

func nodeInstall(d model.ServiceDescriptor) []string {
	if d.DependencyManifest != "package.json" {
		return nil
	}
	return []string{
		"COPY package*.json ./",
		"RUN npm install",
	}
}

func copySource(d model.ServiceDescriptor) []string {
	if d.DependencyManifest == "pyproject.toml" || d.DependencyManifest == "setup.py" {
		return nil
	}
	return []string{"COPY . ."}
}

func expose(d model.ServiceDescriptor) []string {
	return []string{
		fmt.Sprintf("ENV PORT=%d", d.Port),
		fmt.Sprintf("EXPOSE %d", d.Port),
	}
}

// cmd renders an exec-form CMD line.
func cmd(args func(model.ServiceDescriptor) []string) Stanza {
	return func(d model.ServiceDescriptor) []string {
		argv := args(d)
		quoted := make([]string, len(argv))
		for i, a := range argv {
			quoted[i] = strconv.Quote(a)
		}
		return []string{"CMD [" + strings.Join(quoted, ", ") + "]"}
	}
}

// pythonModule converts "app/main.py" into "app.main".
func pythonModule(entry string) string {
	return strings.ReplaceAll(strings.TrimSuffix(entry, ".py"), "/", ".")
}
