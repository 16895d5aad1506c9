package activate

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	paths  map[string]bool
	calls  []call
	fail   string // subcommand that fails
	stderr string
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.paths[name] {
		return "/usr/bin/" + name, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (string, string, int, error) {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	if f.fail != "" && len(args) > 3 && args[3] == f.fail {
		return "", f.stderr, 1, errors.New("exit status 1")
	}
	return "ok", "", 0, nil
}

func TestActivate(t *testing.T) {
	r := &fakeRunner{paths: map[string]bool{"docker": true}}
	d := &ComposeDriver{ManifestPath: "/stack/docker-compose.yml", Runner: r}

	require.NoError(t, d.Activate(context.Background(), "orders"))
	require.Len(t, r.calls, 2)
	assert.Equal(t, call{dir: "/stack", name: "docker", args: []string{"compose", "-f", "/stack/docker-compose.yml", "build", "orders"}}, r.calls[0])
	assert.Equal(t, call{dir: "/stack", name: "docker", args: []string{"compose", "-f", "/stack/docker-compose.yml", "up", "-d", "orders"}}, r.calls[1])
}

func TestActivatePodman(t *testing.T) {
	r := &fakeRunner{paths: map[string]bool{"podman": true}}
	d := &ComposeDriver{Engine: "podman", ManifestPath: "/stack/compose.yaml", Runner: r, Timeout: time.Minute}

	require.NoError(t, d.Activate(context.Background(), "web"))
	assert.Equal(t, "podman", r.calls[0].name)
}

func TestActivateEngineMissing(t *testing.T) {
	r := &fakeRunner{}
	d := &ComposeDriver{ManifestPath: "/stack/docker-compose.yml", Runner: r}

	err := d.Activate(context.Background(), "orders")
	assert.ErrorIs(t, err, ErrEngineNotFound)
	assert.Empty(t, r.calls)
}

func TestActivateFailures(t *testing.T) {
	tests := []struct {
		name      string
		fail      string
		wantCalls int
	}{
		{name: "build fails", fail: "build", wantCalls: 1},
		{name: "start fails", fail: "up", wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{paths: map[string]bool{"docker": true}, fail: tt.fail, stderr: "step 1\nstep 2\nfailed to solve: no such file\n"}
			d := &ComposeDriver{ManifestPath: "/stack/docker-compose.yml", Runner: r}

			err := d.Activate(context.Background(), "orders")
			var cmdErr *CommandError
			require.ErrorAs(t, err, &cmdErr)
			assert.Equal(t, 1, cmdErr.ExitCode)
			assert.Contains(t, cmdErr.Command, "docker compose -f /stack/docker-compose.yml "+tt.fail)
			assert.Contains(t, err.Error(), "failed to solve")
			assert.Len(t, r.calls, tt.wantCalls)
		})
	}
}

func TestCommandErrorTail(t *testing.T) {
	stderr := strings.Repeat("noise\n", 20) + "the real cause"
	err := &CommandError{Command: "docker compose build x", ExitCode: 2, Stderr: stderr}
	assert.Equal(t, "docker compose build x (exit 2): noise\nnoise\nnoise\nnoise\nthe real cause", err.Error())

	wrapped := &CommandError{Command: "c", ExitCode: -1, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.Equal(t, "c (exit -1): context deadline exceeded", wrapped.Error())
}

func TestRemediation(t *testing.T) {
	d := &ComposeDriver{Engine: "podman", ManifestPath: "/stack/docker-compose.yml"}
	got := d.Remediation("orders")
	assert.Contains(t, got, "podman compose -f /stack/docker-compose.yml logs orders")
	assert.Contains(t, got, "up -d --build orders")
}

func TestDetect(t *testing.T) {
	only := func(names ...string) func(string) (string, error) {
		return func(n string) (string, error) {
			for _, want := range names {
				if n == want {
					return "/bin/" + n, nil
				}
			}
			return "", exec.ErrNotFound
		}
	}

	engine, ok := Detect(only("docker", "podman"))
	assert.True(t, ok)
	assert.Equal(t, "docker", engine)

	engine, ok = Detect(only("podman"))
	assert.True(t, ok)
	assert.Equal(t, "podman", engine)

	_, ok = Detect(only())
	assert.False(t, ok)
}
