// Package ansible builds command specifications for the automation engine
// binaries the session invokes. The binaries themselves are opaque
// collaborators; the only contract is their exit code.
package ansible

import (
	"path/filepath"

	"github.com/kubev2v/vsphere-inventory-runner/pkg/command"
)

// Format selects the serialization mode of the inventory listing tool.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// CommandSet builds invocations for a fixed pair of ansible binaries and a
// playbook directory.
type CommandSet struct {
	PlaybookBin  string
	InventoryBin string
	PlaybooksDir string
}

// Playbook builds an ansible-playbook invocation for the named playbook,
// resolved inside the configured playbook directory.
func (c CommandSet) Playbook(name string, extraArgs ...string) command.Spec {
	args := []string{filepath.Join(c.PlaybooksDir, name)}
	args = append(args, extraArgs...)
	return command.Spec{
		Name: c.PlaybookBin,
		Args: args,
	}
}

// InventoryList builds an ansible-inventory listing invocation. JSON is the
// tool's native output and needs no flag; the alternate serializations are
// requested explicitly.
func (c CommandSet) InventoryList(format Format) command.Spec {
	args := []string{"--list"}
	switch format {
	case FormatYAML:
		args = append(args, "--yaml")
	case FormatTOML:
		args = append(args, "--toml")
	}
	return command.Spec{
		Name: c.InventoryBin,
		Args: args,
	}
}
