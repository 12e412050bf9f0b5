// Package config defines the configuration structure for the
// vsphere-inventory-runner.
//
// Configuration is organized into logical sections (Endpoint, Ansible,
// Session, Journal). Defaults come from struct tags (creasty/defaults) and
// values are loaded through Viper from an optional config.yaml and the
// environment, with the environment taking precedence.
//
// # Endpoint Configuration
//
//	┌────────────────┬─────────┬──────────────────────────────────────────────┐
//	│ Field          │ Default │ Description                                  │
//	├────────────────┼─────────┼──────────────────────────────────────────────┤
//	│ Host           │ ""      │ vCenter hostname or SDK URL (required)       │
//	│ Username       │ ""      │ Endpoint user (required)                     │
//	│ Password       │ ""      │ Endpoint password (required)                 │
//	│ ValidateCerts  │ false   │ Verify the endpoint TLS cert (must be set)   │
//	│ SkipPreflight  │ false   │ Skip the reachability/login probe            │
//	│ ProbeTimeout   │ 2m      │ Max time to wait for the endpoint            │
//	└────────────────┴─────────┴──────────────────────────────────────────────┘
//
// # Ansible Configuration
//
//	┌───────────────┬───────────────────────────────────────┬──────────────────────────────┐
//	│ Field         │ Default                               │ Description                  │
//	├───────────────┼───────────────────────────────────────┼──────────────────────────────┤
//	│ PlaybookBin   │ "ansible-playbook"                    │ Playbook engine binary       │
//	│ InventoryBin  │ "ansible-inventory"                   │ Inventory listing binary     │
//	│ PlaybooksDir  │ "playbooks"                           │ Directory holding playbooks  │
//	│ Interpreter   │ ""                                    │ Python interpreter override  │
//	│ EnabledPlugin │ "community.vmware.vmware_vm_inventory"│ Inventory plugin to enable   │
//	│ CachePlugin   │ "jsonfile"                            │ Cache backend identifier     │
//	└───────────────┴───────────────────────────────────────┴──────────────────────────────┘
//
// # Session Configuration
//
//	┌────────────┬─────────────────────┬──────────────────────────────────────┐
//	│ Field      │ Default             │ Description                          │
//	├────────────┼─────────────────────┼──────────────────────────────────────┤
//	│ WorkDir    │ "."                 │ Base directory for staged artifacts  │
//	│ ScratchDir │ "scratch-inventory" │ Scratch inventory directory name     │
//	│ CacheDir   │ "inventory_cache"   │ Cache connection directory name      │
//	│ Strict     │ true                │ Fail fast on missing credentials     │
//	└────────────┴─────────────────────┴──────────────────────────────────────┘
//
// # Environment Bindings
//
// The externally supplied harness variables keep their historical names:
//
//	VCENTER_HOSTNAME                → endpoint.host
//	VCENTER_USERNAME                → endpoint.username
//	VCENTER_PASSWORD                → endpoint.password
//	VMWARE_VALIDATE_CERTS           → endpoint.validate_certs
//	ANSIBLE_TEST_PYTHON_INTERPRETER → ansible.interpreter
//
// Everything else is overridable through INVENTORY_RUNNER_* variables, e.g.
// INVENTORY_RUNNER_SESSION_CACHE_DIR or INVENTORY_RUNNER_LOG_LEVEL.
//
// # Interpreter Resolution
//
// When no interpreter override is set, ResolveInterpreter falls back to the
// first of python3, python resolvable on the search path.
package config
