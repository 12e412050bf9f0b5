package session

import (
	"github.com/kubev2v/vsphere-inventory-runner/pkg/ansible"
	"github.com/kubev2v/vsphere-inventory-runner/pkg/command"
)

// Step is one entry of the fixed invocation sequence. When Inventory is
// non-empty, the active inventory selector is rebound to it before the
// step's commands run.
type Step struct {
	Name      string
	Inventory string
	Commands  []command.Spec
}

// Paths groups the staged filesystem locations the sequence depends on.
type Paths struct {
	Scratch      string
	Cache        string
	CachedSource string
	PlainSource  string
}

// buildSteps returns the fixed sequence. A failure at step i skips steps
// i+1..n and goes straight to cleanup.
func buildSteps(cmds ansible.CommandSet, paths Paths) []Step {
	return []Step{
		{
			Name:     "install-dependencies",
			Commands: []command.Spec{cmds.Playbook("install_dependencies.yml")},
		},
		{
			Name:     "prepare-environment",
			Commands: []command.Spec{cmds.Playbook("prepare_environment.yml")},
		},
		{
			Name:      "baseline-listing",
			Inventory: paths.CachedSource,
			Commands:  []command.Spec{cmds.InventoryList(ansible.FormatJSON)},
		},
		{
			Name:     "cache-validation",
			Commands: []command.Spec{cmds.Playbook("test_inventory_cache.yml")},
		},
		{
			Name: "format-negotiation",
			Commands: []command.Spec{
				cmds.InventoryList(ansible.FormatYAML),
				cmds.InventoryList(ansible.FormatTOML),
			},
		},
		{
			Name:      "functional-validation",
			Inventory: paths.PlainSource,
			Commands:  []command.Spec{cmds.Playbook("test_vm_inventory.yml")},
		},
		{
			Name:      "options-validation",
			Inventory: paths.Scratch,
			Commands:  []command.Spec{cmds.Playbook("test_options.yml")},
		},
	}
}
