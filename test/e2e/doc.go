/*
Package main provides end-to-end testing infrastructure for the
inventory-runner binary.

# Package Structure

	test/e2e/
	├── main.go          Entry point: flags, config, harness setup, Ginkgo runner
	├── tests.go         Ginkgo test specs (clean run, failure propagation, cleanup)
	├── doc.go           This file
	└── infra/
	    └── infra.go     Harness: in-process vcsim endpoint + stub ansible tools

# Harness

The Harness replaces the two external dependencies of a real session:

  - the virtualization endpoint, served by an in-process vcsim VPX
    inventory, and
  - the ansible toolchain, replaced by stub executables written into a
    directory that is prepended to PATH for the runner process.

Stub exit codes are controlled per spec through WriteStubs, which is how the
failure-propagation specs force a mid-sequence failure without a real
ansible installation.

# Running

	go build -o bin/inventory-runner ./cmd/inventory-runner
	go run ./test/e2e -runner-bin bin/inventory-runner

Pass -keep-scratch to keep per-spec work directories around for debugging.
*/
package main
