package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmware/govmomi/simulator"
)

// Harness owns the infrastructure a runner e2e session needs: an in-process
// vcsim endpoint and a directory of stub ansible executables placed on PATH.
type Harness struct {
	model  *simulator.Model
	server *simulator.Server

	// StubDir holds the stub ansible-playbook, ansible-inventory and
	// python3 executables.
	StubDir string
}

// NewHarness boots a vcsim VPX inventory and writes succeeding stubs into
// stubDir.
func NewHarness(stubDir string) (*Harness, error) {
	model := simulator.VPX()
	if err := model.Create(); err != nil {
		return nil, fmt.Errorf("failed to create simulator inventory: %w", err)
	}

	h := &Harness{
		model:   model,
		server:  model.Service.NewServer(),
		StubDir: stubDir,
	}
	if err := h.WriteStubs(0, 0); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// Endpoint returns the simulator URL and its login credentials.
func (h *Harness) Endpoint() (host, username, password string) {
	u := h.server.URL
	password, _ = u.User.Password()
	return u.String(), u.User.Username(), password
}

// WriteStubs (re)writes the stub executables. Non-zero exit codes turn the
// corresponding tool into a failing one, which the runner must propagate.
func (h *Harness) WriteStubs(playbookExit, inventoryExit int) error {
	stubs := map[string]int{
		"ansible-playbook":  playbookExit,
		"ansible-inventory": inventoryExit,
		"python3":           0,
	}
	for name, code := range stubs {
		script := fmt.Sprintf("#!/bin/sh\nexit %d\n", code)
		path := filepath.Join(h.StubDir, name)
		if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
			return fmt.Errorf("failed to write stub %s: %w", name, err)
		}
	}
	return nil
}

func (h *Harness) Close() {
	if h.server != nil {
		h.server.Close()
	}
	if h.model != nil {
		h.model.Remove()
	}
}
