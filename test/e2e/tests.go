package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// runSession executes the runner binary against the harness endpoint and
// returns its exit code.
func runSession(workDir string, extraArgs ...string) int {
	host, username, password := harness.Endpoint()

	args := append([]string{"run", "--work-dir", workDir}, extraArgs...)
	cmd := exec.Command(cfg.RunnerBin, args...)
	cmd.Env = append(os.Environ(),
		"PATH="+harness.StubDir+string(os.PathListSeparator)+os.Getenv("PATH"),
		"VCENTER_HOSTNAME="+host,
		"VCENTER_USERNAME="+username,
		"VCENTER_PASSWORD="+password,
		"VMWARE_VALIDATE_CERTS=false",
		"INVENTORY_RUNNER_ENDPOINT_PROBE_TIMEOUT=15s",
	)
	cmd.Stdout = GinkgoWriter
	cmd.Stderr = GinkgoWriter

	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	Expect(errors.As(err, &exitErr)).To(BeTrue(), "runner did not report an exit code: %v", err)
	return exitErr.ExitCode()
}

func newWorkDir() string {
	dir, err := os.MkdirTemp("", "inventory-runner-e2e-")
	Expect(err).NotTo(HaveOccurred())
	if !cfg.KeepScratch {
		DeferCleanup(func() { os.RemoveAll(dir) })
	}
	return dir
}

var _ = Describe("inventory-runner", Ordered, func() {
	AfterEach(func() {
		// restore succeeding stubs for the next spec
		Expect(harness.WriteStubs(0, 0)).To(Succeed())
	})

	Context("with a reachable endpoint and succeeding tools", func() {
		It("should run the full sequence and exit zero", func() {
			workDir := newWorkDir()

			Expect(runSession(workDir)).To(Equal(0))
		})

		It("should remove all staged artifacts on success", func() {
			workDir := newWorkDir()

			Expect(runSession(workDir)).To(Equal(0))

			for _, staged := range []string{
				"scratch-inventory",
				"inventory_cache",
				"test-cache.vmware.yml",
				"test-config.vmware.yml",
			} {
				_, err := os.Stat(filepath.Join(workDir, staged))
				Expect(os.IsNotExist(err)).To(BeTrue(), "expected %s to be removed", staged)
			}
		})

		It("should record the session in the journal when one is configured", func() {
			workDir := newWorkDir()
			journal := filepath.Join(workDir, "..", filepath.Base(workDir)+".db")
			DeferCleanup(func() { os.Remove(journal) })

			Expect(runSession(workDir, "--journal", journal)).To(Equal(0))

			info, err := os.Stat(journal)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size()).NotTo(BeZero())
		})
	})

	Context("with failing tools", func() {
		It("should propagate a playbook failure code unchanged", func() {
			Expect(harness.WriteStubs(3, 0)).To(Succeed())
			workDir := newWorkDir()

			Expect(runSession(workDir)).To(Equal(3))
		})

		It("should propagate an inventory listing failure code unchanged", func() {
			Expect(harness.WriteStubs(0, 7)).To(Succeed())
			workDir := newWorkDir()

			Expect(runSession(workDir)).To(Equal(7))
		})

		It("should still remove staged artifacts after a failure", func() {
			Expect(harness.WriteStubs(4, 0)).To(Succeed())
			workDir := newWorkDir()

			Expect(runSession(workDir)).To(Equal(4))

			_, err := os.Stat(filepath.Join(workDir, "scratch-inventory"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("with missing credentials", func() {
		It("should fail fast before invoking anything", func() {
			workDir := newWorkDir()

			cmd := exec.Command(cfg.RunnerBin, "run", "--work-dir", workDir)
			cmd.Env = append(os.Environ(),
				"PATH="+harness.StubDir+string(os.PathListSeparator)+os.Getenv("PATH"),
				"VCENTER_HOSTNAME=", "VCENTER_USERNAME=", "VCENTER_PASSWORD=",
			)
			cmd.Stdout = GinkgoWriter
			cmd.Stderr = GinkgoWriter

			err := cmd.Run()
			var exitErr *exec.ExitError
			Expect(errors.As(err, &exitErr)).To(BeTrue())
			Expect(exitErr.ExitCode()).To(Equal(1))

			_, statErr := os.Stat(filepath.Join(workDir, "scratch-inventory"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})
	})
})
