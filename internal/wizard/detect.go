package wizard

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/natejswenson/traefik-local-cli/internal/activate"
)

// DetectionResult holds what was auto-detected on the system.
type DetectionResult struct {
	Engines      []string // container engines on PATH, preferred first
	ComposeFiles []string
}

// Detector abstracts filesystem and path lookups for testing.
type Detector interface {
	LookPath(name string) (string, error)
	Stat(path string) (os.FileInfo, error)
	UserHomeDir() (string, error)
}

// OSDetector uses the real OS for detection.
type OSDetector struct{}

func (OSDetector) LookPath(name string) (string, error)  { return exec.LookPath(name) }
func (OSDetector) Stat(path string) (os.FileInfo, error) { return os.Stat(path) }
func (OSDetector) UserHomeDir() (string, error)          { return os.UserHomeDir() }

// composeNames are the file names the compose CLI looks for.
var composeNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// homeStackDirs are places under $HOME where a shared stack usually lives.
var homeStackDirs = []string{"traefik-local", "docker", "traefik"}

// Detect scans the environment for container engines and compose files.
func Detect(d Detector) DetectionResult {
	if d == nil {
		d = OSDetector{}
	}

	result := DetectionResult{}

	for _, engine := range activate.Engines {
		if _, err := d.LookPath(engine); err == nil {
			result.Engines = append(result.Engines, engine)
		}
	}

	for _, name := range composeNames {
		if _, err := d.Stat(name); err == nil {
			result.ComposeFiles = append(result.ComposeFiles, name)
		}
	}

	if home, err := d.UserHomeDir(); err == nil {
		for _, dir := range homeStackDirs {
			stackDir := filepath.Join(home, dir)
			info, err := d.Stat(stackDir)
			if err != nil || !info.IsDir() {
				continue
			}
			for _, name := range composeNames {
				p := filepath.Join(stackDir, name)
				if _, err := d.Stat(p); err == nil {
					result.ComposeFiles = append(result.ComposeFiles, p)
				}
			}
		}
	}

	return result
}

// DefaultEngine is the first detected engine, or docker.
func (r DetectionResult) DefaultEngine() string {
	if len(r.Engines) > 0 {
		return r.Engines[0]
	}
	return activate.Engines[0]
}
