package config

import (
	"fmt"
	"strings"

	"github.com/rh-ecosystem-edge/versionsync/pkg/store"
	"github.com/rh-ecosystem-edge/versionsync/pkg/syncerr"
	"github.com/rh-ecosystem-edge/versionsync/pkg/versions"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// DefaultReleaseStreamURL lists the accepted OpenShift release streams.
	DefaultReleaseStreamURL = "https://amd64.ocp.releases.ci.openshift.org/api/v1/releasestreams/accepted"
	// DefaultStream is the release stream whose versions are tracked.
	DefaultStream = "4-stable"
	// DefaultIgnoredVersionsRegex matches nothing.
	DefaultIgnoredVersionsRegex = "x^"

	DefaultAuthURL     = "https://ghcr.io/token"
	DefaultAuthScope   = "repository:nvidia/gpu-operator:pull"
	DefaultManifestURL = "https://ghcr.io/v2/nvidia/gpu-operator/gpu-operator-bundle/manifests/main-latest"
	DefaultDigestKey   = "gpu-main-latest"

	DefaultRequestTimeoutSeconds = 30
)

// OCPConfig configures the OpenShift release pipeline.
type OCPConfig struct {
	ReleaseStreamURL     string `mapstructure:"release_stream_url"`
	Stream               string `mapstructure:"stream"`
	IgnoredVersionsRegex string `mapstructure:"ignored_versions_regex"`
	KeyPrefix            string `mapstructure:"key_prefix"`
}

// BundleConfig configures the GPU operator bundle digest pipeline.
type BundleConfig struct {
	AuthURL     string `mapstructure:"auth_url"`
	AuthScope   string `mapstructure:"auth_scope"`
	ManifestURL string `mapstructure:"manifest_url"`
	Key         string `mapstructure:"key"`
	// AuthToken is never logged.
	AuthToken string `mapstructure:"auth_token"`
}

// TriggersConfig configures the CI test commands emitted after a change.
type TriggersConfig struct {
	GPUOperatorVersions []string `mapstructure:"gpu_operator_versions"`
}

type Config struct {
	VersionFilePath        string         `mapstructure:"version_file_path"`
	TestsToTriggerFilePath string         `mapstructure:"tests_to_trigger_file_path"`
	RequestTimeoutSeconds  int            `mapstructure:"request_timeout_seconds"`
	WriteMode              string         `mapstructure:"write_mode"`
	Debug                  bool           `mapstructure:"debug"`
	OCP                    OCPConfig      `mapstructure:"ocp"`
	Bundle                 BundleConfig   `mapstructure:"bundle"`
	Triggers               TriggersConfig `mapstructure:"triggers"`
}

// envBindings keeps the variable names used by the CI workflows.
var envBindings = map[string]string{
	"version_file_path":          "VERSION_FILE_PATH",
	"tests_to_trigger_file_path": "TEST_TO_TRIGGER_FILE_PATH",
	"request_timeout_seconds":    "REQUEST_TIMEOUT_SECONDS",
	"ocp.ignored_versions_regex": "OCP_IGNORED_VERSIONS_REGEX",
	"bundle.auth_token":          "AUTH_TOKEN",
}

var flagBindings = map[string]string{
	"version-file": "version_file_path",
	"tests-file":   "tests_to_trigger_file_path",
	"timeout":      "request_timeout_seconds",
	"write-mode":   "write_mode",
	"debug":        "debug",
}

// Load reads configuration from defaults, an optional YAML file, the environment
// and the given flags, in increasing order of precedence. It does not validate.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VERSIONSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", syncerr.ErrConfig, configPath, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", syncerr.ErrConfig, err)
	}
	config.OCP.IgnoredVersionsRegex = strings.TrimRight(config.OCP.IgnoredVersionsRegex, " \t\r\n")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version_file_path", "")
	v.SetDefault("tests_to_trigger_file_path", "")
	v.SetDefault("request_timeout_seconds", DefaultRequestTimeoutSeconds)
	v.SetDefault("write_mode", string(store.WriteAtomic))
	v.SetDefault("debug", false)
	v.SetDefault("ocp.release_stream_url", DefaultReleaseStreamURL)
	v.SetDefault("ocp.stream", DefaultStream)
	v.SetDefault("ocp.ignored_versions_regex", DefaultIgnoredVersionsRegex)
	v.SetDefault("ocp.key_prefix", "ocp-")
	v.SetDefault("bundle.auth_url", DefaultAuthURL)
	v.SetDefault("bundle.auth_scope", DefaultAuthScope)
	v.SetDefault("bundle.manifest_url", DefaultManifestURL)
	v.SetDefault("bundle.key", DefaultDigestKey)
	v.SetDefault("bundle.auth_token", "")
	v.SetDefault("triggers.gpu_operator_versions", []string{})
}

// Validate fails fast on values that would otherwise only break on first use.
func (c *Config) Validate() error {
	if c.VersionFilePath == "" {
		return fmt.Errorf("%w: VERSION_FILE_PATH must be specified", syncerr.ErrConfig)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: request timeout must be positive, got %d", syncerr.ErrConfig, c.RequestTimeoutSeconds)
	}
	if _, err := store.ParseWriteMode(c.WriteMode); err != nil {
		return err
	}
	if _, err := versions.NewIgnoreRule(c.OCP.IgnoredVersionsRegex); err != nil {
		return err
	}
	if c.OCP.Stream == "" {
		return fmt.Errorf("%w: release stream must be specified", syncerr.ErrConfig)
	}
	if c.Bundle.Key == "" {
		return fmt.Errorf("%w: bundle digest key must be specified", syncerr.ErrConfig)
	}
	return nil
}
