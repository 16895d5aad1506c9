package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, content string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traefik-local.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t, "")

	assert.Equal(t, "docker-compose.yml", cfg.Manifest)
	assert.Equal(t, "localhost", cfg.DomainSuffix)
	assert.Equal(t, "traefik", cfg.ProxyService)
	assert.Equal(t, "websecure", cfg.Entrypoint)
	assert.True(t, cfg.TLS)
	assert.Equal(t, "docker", cfg.Engine)
	assert.Equal(t, 10, cfg.MaxBackups)
	assert.True(t, cfg.RollbackOnActivationFailure)
	assert.Equal(t, 10*time.Minute, cfg.ActivationTimeout)
	assert.Empty(t, cfg.Validate())
}

func TestFileValues(t *testing.T) {
	cfg := load(t, `manifest: /srv/stack/docker-compose.yml
domain_suffix: dev.test
network: proxy
entrypoint: web
tls: false
engine: podman
backup_dir: /srv/backups
max_backups: 3
rollback_on_activation_failure: false
activation_timeout: 90s
`)

	assert.Equal(t, "/srv/stack/docker-compose.yml", cfg.Manifest)
	assert.Equal(t, "dev.test", cfg.DomainSuffix)
	assert.Equal(t, "proxy", cfg.Network)
	assert.False(t, cfg.TLS)
	assert.Equal(t, "podman", cfg.Engine)
	assert.False(t, cfg.RollbackOnActivationFailure)
	assert.Equal(t, 90*time.Second, cfg.ActivationTimeout)

	opts := cfg.GenerateOptions()
	assert.Equal(t, "dev.test", opts.DomainSuffix)
	assert.Equal(t, "proxy", opts.Network)
	assert.Equal(t, "web", opts.Entrypoint)
	assert.False(t, opts.TLS)

	store := cfg.Snapshots()
	assert.Equal(t, "/srv/backups", store.Dir)
	assert.Equal(t, 3, store.MaxBackups)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRAEFIK_LOCAL_DOMAIN_SUFFIX", "lan.test")
	t.Setenv("TRAEFIK_LOCAL_ENGINE", "podman")

	cfg := load(t, "domain_suffix: dev.test\n")
	assert.Equal(t, "lan.test", cfg.DomainSuffix)
	assert.Equal(t, "podman", cfg.Engine)
}

func TestMissingExplicitFile(t *testing.T) {
	v := viper.New()
	assert.Error(t, Init(v, filepath.Join(t.TempDir(), "nope.yml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty manifest", func(c *Config) { c.Manifest = "" }, "manifest"},
		{"bad domain", func(c *Config) { c.DomainSuffix = "-bad-" }, "domain_suffix"},
		{"bad network", func(c *Config) { c.Network = "my net" }, "network"},
		{"no proxy", func(c *Config) { c.ProxyService = "" }, "proxy_service"},
		{"no entrypoint", func(c *Config) { c.Entrypoint = "" }, "entrypoint"},
		{"label injection in entrypoint", func(c *Config) { c.Entrypoint = "web\n      - traefik.http.routers.x.rule=Host(`evil`)" }, "entrypoint"},
		{"entrypoint with dot", func(c *Config) { c.Entrypoint = "web.secure" }, "entrypoint"},
		{"proxy with spaces", func(c *Config) { c.ProxyService = "traefik proxy" }, "proxy_service"},
		{"proxy with interpolation", func(c *Config) { c.ProxyService = "${PROXY}" }, "proxy_service"},
		{"unknown engine", func(c *Config) { c.Engine = "containerd" }, "engine"},
		{"negative backups", func(c *Config) { c.MaxBackups = -1 }, "max_backups"},
		{"zero timeout", func(c *Config) { c.ActivationTimeout = 0 }, "activation_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := load(t, "")
			tt.mutate(cfg)
			problems := cfg.Validate()
			require.Len(t, problems, 1)
			assert.Equal(t, tt.field, problems[0].Field)
		})
	}
}

func TestDependencyEnv(t *testing.T) {
	env := map[string]string{
		"REDIS_URL":   "redis://cache:6379",
		"POSTGRES_DB": "",
		"UNRELATED":   "x",
		"MONGODB_URI": "mongodb://atlas:27017/app",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	assert.Equal(t, map[string]string{
		"REDIS_URL":   "redis://cache:6379",
		"MONGODB_URI": "mongodb://atlas:27017/app",
	}, DependencyEnv(lookup))
}
