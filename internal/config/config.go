package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

const (
	// envPrefix is the prefix for runner-owned environment variables, e.g.
	// log_level is looked up as INVENTORY_RUNNER_LOG_LEVEL.
	envPrefix = "INVENTORY_RUNNER"

	// External harness variables keep their historical names and are bound
	// without the prefix.
	envVCenterHostname = "VCENTER_HOSTNAME"
	envVCenterUsername = "VCENTER_USERNAME"
	envVCenterPassword = "VCENTER_PASSWORD"
	envValidateCerts   = "VMWARE_VALIDATE_CERTS"
	envInterpreter     = "ANSIBLE_TEST_PYTHON_INTERPRETER"
)

// interpreterCandidates are tried in order when no interpreter override is
// configured.
var interpreterCandidates = []string{"python3", "python"}

type Configuration struct {
	Endpoint  Endpoint `mapstructure:"endpoint"`
	Ansible   Ansible  `mapstructure:"ansible"`
	Session   Session  `mapstructure:"session"`
	Journal   Journal  `mapstructure:"journal"`
	LogLevel  string   `mapstructure:"log_level" default:"info"`
	LogFormat string   `mapstructure:"log_format" default:"console"`
}

type Endpoint struct {
	Host          string        `mapstructure:"host"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	ValidateCerts bool          `mapstructure:"validate_certs" default:"false"`
	SkipPreflight bool          `mapstructure:"skip_preflight" default:"false"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" default:"2m"`
}

type Ansible struct {
	PlaybookBin   string `mapstructure:"playbook_bin" default:"ansible-playbook"`
	InventoryBin  string `mapstructure:"inventory_bin" default:"ansible-inventory"`
	PlaybooksDir  string `mapstructure:"playbooks_dir" default:"playbooks"`
	Interpreter   string `mapstructure:"interpreter"`
	EnabledPlugin string `mapstructure:"enabled_plugin" default:"community.vmware.vmware_vm_inventory"`
	CachePlugin   string `mapstructure:"cache_plugin" default:"jsonfile"`
}

type Session struct {
	WorkDir    string `mapstructure:"work_dir" default:"."`
	ScratchDir string `mapstructure:"scratch_dir" default:"scratch-inventory"`
	CacheDir   string `mapstructure:"cache_dir" default:"inventory_cache"`
	Strict     bool   `mapstructure:"strict" default:"true"`
}

type Journal struct {
	// Path is the journal database location. Empty disables the journal.
	Path string `mapstructure:"path"`
}

// externalBindings maps configuration keys to the environment variables the
// invoking harness has always used.
var externalBindings = map[string]string{
	"endpoint.host":           envVCenterHostname,
	"endpoint.username":       envVCenterUsername,
	"endpoint.password":       envVCenterPassword,
	"endpoint.validate_certs": envValidateCerts,
	"ansible.interpreter":     envInterpreter,
}

// prefixedKeys are the keys that may be overridden through
// INVENTORY_RUNNER_* variables or a config.yaml file.
var prefixedKeys = []string{
	"log_level",
	"log_format",
	"endpoint.skip_preflight",
	"endpoint.probe_timeout",
	"ansible.playbook_bin",
	"ansible.inventory_bin",
	"ansible.playbooks_dir",
	"ansible.enabled_plugin",
	"ansible.cache_plugin",
	"session.work_dir",
	"session.scratch_dir",
	"session.cache_dir",
	"session.strict",
	"journal.path",
}

// Load builds the configuration from defaults, an optional config.yaml and
// environment variables, with the environment taking precedence.
func Load() (*Configuration, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range externalBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	for _, key := range prefixedKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// Validate fails fast when strict mode is on and any of the externally
// supplied endpoint variables is unset.
func (c *Configuration) Validate() error {
	if !c.Session.Strict {
		return nil
	}
	if c.Endpoint.Host == "" {
		return fmt.Errorf("%s is not set", envVCenterHostname)
	}
	if c.Endpoint.Username == "" {
		return fmt.Errorf("%s is not set", envVCenterUsername)
	}
	if c.Endpoint.Password == "" {
		return fmt.Errorf("%s is not set", envVCenterPassword)
	}
	// The flag is a bool after unmarshaling, so unset and "false" look the
	// same; the variable itself is what strict mode requires.
	if _, ok := os.LookupEnv(envValidateCerts); !ok {
		return fmt.Errorf("%s is not set", envValidateCerts)
	}
	return nil
}

// ResolveInterpreter returns the configured interpreter override, or the
// first resolvable candidate on the search path.
func (a Ansible) ResolveInterpreter() (string, error) {
	if a.Interpreter != "" {
		return a.Interpreter, nil
	}
	for _, candidate := range interpreterCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no python interpreter found on PATH (tried %v)", interpreterCandidates)
}
