package session

import (
	"fmt"
	"os"
	"strconv"
)

// Credentials is the endpoint credential triple handed to every child
// process.
type Credentials struct {
	Host          string
	Username      string
	Password      string
	ValidateCerts bool
}

// Environment is the explicit session environment passed to each invocation
// step. It is built once from configuration and read-only thereafter, except
// for the active inventory selector which is rebound between steps (last
// writer wins).
type Environment struct {
	interpreter   string
	enabledPlugin string
	cachePlugin   string
	cacheDir      string
	credentials   Credentials
	inventory     string
	base          []string
}

// NewEnvironment builds the session environment on top of the parent process
// environment.
func NewEnvironment(interpreter, enabledPlugin, cachePlugin, cacheDir string, creds Credentials) *Environment {
	return &Environment{
		interpreter:   interpreter,
		enabledPlugin: enabledPlugin,
		cachePlugin:   cachePlugin,
		cacheDir:      cacheDir,
		credentials:   creds,
		base:          os.Environ(),
	}
}

// SetInventory rebinds the active inventory selector.
func (e *Environment) SetInventory(path string) {
	e.inventory = path
}

// Inventory returns the active inventory selector.
func (e *Environment) Inventory() string {
	return e.inventory
}

// Environ returns the complete variable set for a child process.
func (e *Environment) Environ() []string {
	env := append([]string(nil), e.base...)
	env = append(env,
		fmt.Sprintf("ANSIBLE_PYTHON_INTERPRETER=%s", e.interpreter),
		fmt.Sprintf("ANSIBLE_INVENTORY_ENABLED=%s", e.enabledPlugin),
		fmt.Sprintf("ANSIBLE_CACHE_PLUGIN=%s", e.cachePlugin),
		fmt.Sprintf("ANSIBLE_CACHE_PLUGIN_CONNECTION=%s", e.cacheDir),
		fmt.Sprintf("VMWARE_SERVER=%s", e.credentials.Host),
		fmt.Sprintf("VMWARE_USERNAME=%s", e.credentials.Username),
		fmt.Sprintf("VMWARE_PASSWORD=%s", e.credentials.Password),
		fmt.Sprintf("VMWARE_VALIDATE_CERTS=%s", strconv.FormatBool(e.credentials.ValidateCerts)),
	)
	if e.inventory != "" {
		env = append(env, fmt.Sprintf("ANSIBLE_INVENTORY=%s", e.inventory))
	}
	return env
}
