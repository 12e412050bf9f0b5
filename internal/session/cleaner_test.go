package session_test

import (
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/vsphere-inventory-runner/internal/session"
)

var _ = Describe("Cleaner", func() {
	var (
		dir    string
		target string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		target = filepath.Join(dir, "inventory_cache")
		Expect(os.MkdirAll(target, 0o755)).To(Succeed())
	})

	It("should remove registered paths", func() {
		c := session.NewCleaner(target)

		c.Run()

		Expect(target).NotTo(BeAnExistingFile())
	})

	It("should ignore paths that do not exist", func() {
		c := session.NewCleaner(filepath.Join(dir, "never-created"), target)

		c.Run()

		Expect(target).NotTo(BeAnExistingFile())
	})

	// Given a cleaner that already ran
	// When Run is called again
	// Then nothing is removed a second time
	It("should run at most once", func() {
		c := session.NewCleaner(target)
		c.Run()

		Expect(os.MkdirAll(target, 0o755)).To(Succeed())
		c.Run()

		Expect(target).To(BeADirectory())
	})

	It("should be safe under concurrent invocation", func() {
		c := session.NewCleaner(target)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Run()
			}()
		}
		wg.Wait()

		Expect(target).NotTo(BeAnExistingFile())
	})
})
