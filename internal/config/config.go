package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/natejswenson/traefik-local-cli/internal/activate"
	"github.com/natejswenson/traefik-local-cli/internal/generate"
	"github.com/natejswenson/traefik-local-cli/internal/manifest"
	"github.com/natejswenson/traefik-local-cli/internal/util"
	"github.com/natejswenson/traefik-local-cli/internal/validate"
	"github.com/spf13/viper"
)

const (
	FileName  = "traefik-local"
	EnvPrefix = "TRAEFIK_LOCAL"
)

var (
	// networkName also covers compose service names.
	networkName    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
	entrypointName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

type Config struct {
	Manifest                    string        `mapstructure:"manifest"`
	DomainSuffix                string        `mapstructure:"domain_suffix"`
	Network                     string        `mapstructure:"network"`
	ProxyService                string        `mapstructure:"proxy_service"`
	Entrypoint                  string        `mapstructure:"entrypoint"`
	TLS                         bool          `mapstructure:"tls"`
	Engine                      string        `mapstructure:"engine"`
	BackupDir                   string        `mapstructure:"backup_dir"`
	MaxBackups                  int           `mapstructure:"max_backups"`
	RollbackOnActivationFailure bool          `mapstructure:"rollback_on_activation_failure"`
	ActivationTimeout           time.Duration `mapstructure:"activation_timeout"`
}

// ValidProxyService reports whether name can be used as the proxy's compose
// service name.
func ValidProxyService(name string) bool {
	return networkName.MatchString(name)
}

// SetDefaults registers every key so environment variables are seen by
// Unmarshal even when no config file sets them.
func SetDefaults(v *viper.Viper) {
	d := generate.DefaultOptions()
	v.SetDefault("manifest", "docker-compose.yml")
	v.SetDefault("domain_suffix", d.DomainSuffix)
	v.SetDefault("network", "")
	v.SetDefault("proxy_service", d.ProxyService)
	v.SetDefault("entrypoint", d.Entrypoint)
	v.SetDefault("tls", d.TLS)
	v.SetDefault("engine", activate.Engines[0])
	v.SetDefault("backup_dir", "")
	v.SetDefault("max_backups", 10)
	v.SetDefault("rollback_on_activation_failure", true)
	v.SetDefault("activation_timeout", activate.DefaultTimeout)
}

// Init points v at the config file (explicit, or traefik-local.yml in the
// working directory or ~/.config/traefik-local) and the environment. A
// missing file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(util.ExpandPath(cfgFile))
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// Load decodes the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Manifest = util.ExpandPath(cfg.Manifest)
	cfg.BackupDir = util.ExpandPath(cfg.BackupDir)
	return cfg, nil
}

// Problem is one invalid setting.
type Problem struct {
	Field      string
	Message    string
	Suggestion string
}

// Validate reports settings that would make every connection attempt fail.
func (c *Config) Validate() []Problem {
	var problems []Problem
	if c.Manifest == "" {
		problems = append(problems, Problem{"manifest", "is empty", "set manifest to the path of your docker-compose.yml"})
	}
	if err := validate.Domain(c.DomainSuffix); err != nil {
		problems = append(problems, Problem{"domain_suffix", err.Error(), "use something like localhost or dev.test"})
	}
	if c.Network != "" && !networkName.MatchString(c.Network) {
		problems = append(problems, Problem{"network", fmt.Sprintf("%q is not a valid network name", c.Network), ""})
	}
	switch {
	case c.ProxyService == "":
		problems = append(problems, Problem{"proxy_service", "is empty", "usually traefik"})
	case !networkName.MatchString(c.ProxyService):
		problems = append(problems, Problem{"proxy_service", fmt.Sprintf("%q is not a valid compose service name", c.ProxyService), "letters, digits, '.', '_' and '-' only"})
	}
	switch {
	case c.Entrypoint == "":
		problems = append(problems, Problem{"entrypoint", "is empty", "usually web or websecure"})
	case !entrypointName.MatchString(c.Entrypoint):
		problems = append(problems, Problem{"entrypoint", fmt.Sprintf("%q is not a valid traefik entrypoint name", c.Entrypoint), "letters, digits, '_' and '-' only"})
	}
	if !slices.Contains(activate.Engines, c.Engine) {
		problems = append(problems, Problem{"engine", fmt.Sprintf("%q is not supported", c.Engine), "use " + strings.Join(activate.Engines, " or ")})
	}
	if c.MaxBackups < 0 {
		problems = append(problems, Problem{"max_backups", "must not be negative", "0 keeps every backup"})
	}
	if c.ActivationTimeout <= 0 {
		problems = append(problems, Problem{"activation_timeout", "must be positive", "for example 10m"})
	}
	return problems
}

// GenerateOptions are the routing defaults for generated fragments.
func (c *Config) GenerateOptions() generate.Options {
	return generate.Options{
		DomainSuffix: c.DomainSuffix,
		Network:      c.Network,
		ProxyService: c.ProxyService,
		Entrypoint:   c.Entrypoint,
		TLS:          c.TLS,
	}
}

// Snapshots is the backup store for the configured manifest.
func (c *Config) Snapshots() manifest.SnapshotStore {
	return manifest.SnapshotStore{Dir: c.BackupDir, MaxBackups: c.MaxBackups}
}

// DependencyEnv collects the dependency overrides present in the
// environment. lookup is usually os.LookupEnv.
func DependencyEnv(lookup func(string) (string, bool)) map[string]string {
	env := make(map[string]string)
	for _, key := range generate.OverrideKeys() {
		if v, ok := lookup(key); ok && v != "" {
			env[key] = v
		}
	}
	return env
}
