package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/vsphere-inventory-runner/internal/config"
	"github.com/kubev2v/vsphere-inventory-runner/internal/models"
	"github.com/kubev2v/vsphere-inventory-runner/internal/session"
	"github.com/kubev2v/vsphere-inventory-runner/pkg/command"
)

type execCall struct {
	spec command.Spec
	env  []string
}

// mockExecutor records every invocation and can be told to fail at a given
// 1-based invocation index, or to block until released.
type mockExecutor struct {
	mu     sync.Mutex
	calls  []execCall
	failAt int
	code   int
	onCall func(spec command.Spec)
	block  chan struct{}
}

func (m *mockExecutor) Run(ctx context.Context, spec command.Spec, env []string) error {
	m.mu.Lock()
	m.calls = append(m.calls, execCall{spec: spec, env: env})
	n := len(m.calls)
	m.mu.Unlock()

	if m.onCall != nil {
		m.onCall(spec)
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.failAt != 0 && n == m.failAt {
		return &command.ExitError{Cmd: spec.String(), Code: m.code}
	}
	return nil
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockExecutor) call(i int) execCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i-1]
}

var _ command.Executor = (*mockExecutor)(nil)

type finishCall struct {
	status   models.SessionStatus
	exitCode int
}

type mockJournal struct {
	mu       sync.Mutex
	created  []*models.Session
	steps    []*models.StepResult
	finished []finishCall
}

func (m *mockJournal) Create(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, s)
	return nil
}

func (m *mockJournal) RecordStep(ctx context.Context, r *models.StepResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, r)
	return nil
}

func (m *mockJournal) Finish(ctx context.Context, id uuid.UUID, status models.SessionStatus, exitCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, finishCall{status: status, exitCode: exitCode})
	return nil
}

var _ session.Journal = (*mockJournal)(nil)

// envValue extracts a variable from a child environment; the last
// occurrence wins, matching what the OS hands to the child.
func envValue(env []string, key string) (string, bool) {
	value := ""
	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			value = strings.TrimPrefix(kv, key+"=")
			found = true
		}
	}
	return value, found
}

func testConfig(workDir string) *config.Configuration {
	return &config.Configuration{
		Endpoint: config.Endpoint{
			Host:          "vcenter.test",
			Username:      "administrator@vsphere.local",
			Password:      "secret",
			SkipPreflight: true,
		},
		Ansible: config.Ansible{
			PlaybookBin:   "ansible-playbook",
			InventoryBin:  "ansible-inventory",
			PlaybooksDir:  "playbooks",
			Interpreter:   "/usr/bin/python3",
			EnabledPlugin: "community.vmware.vmware_vm_inventory",
			CachePlugin:   "jsonfile",
		},
		Session: config.Session{
			WorkDir:    workDir,
			ScratchDir: "scratch-inventory",
			CacheDir:   "inventory_cache",
			Strict:     true,
		},
	}
}

var _ = Describe("Runner", func() {
	var (
		ctx     context.Context
		workDir string
		cfg     *config.Configuration
		exec    *mockExecutor
	)

	scratchDir := func() string { return filepath.Join(workDir, "scratch-inventory") }
	cacheDir := func() string { return filepath.Join(workDir, "inventory_cache") }

	BeforeEach(func() {
		ctx = context.Background()
		workDir = GinkgoT().TempDir()
		cfg = testConfig(workDir)
		exec = &mockExecutor{}
	})

	Describe("Run", func() {
		// Given a session where every external invocation succeeds
		// When the session runs
		// Then all 7 steps (8 invocations, the format step lists twice) execute
		// and the exit code is 0
		It("should run the full sequence and exit clean", func() {
			r := session.New(cfg, exec)

			err := r.Run(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(session.ExitCode(err)).To(Equal(0))
			Expect(exec.callCount()).To(Equal(8))
		})

		// Given a running session
		// When each invocation executes
		// Then the scratch and cache directories exist for its full duration
		It("should keep scratch and cache directories alive for every invocation", func() {
			alive := true
			exec.onCall = func(command.Spec) {
				if _, err := os.Stat(scratchDir()); err != nil {
					alive = false
				}
				if _, err := os.Stat(cacheDir()); err != nil {
					alive = false
				}
			}
			r := session.New(cfg, exec)

			Expect(r.Run(ctx)).To(Succeed())
			Expect(alive).To(BeTrue())
		})

		// Given a completed session, successful or not
		// Then the staged directories are absent
		It("should remove staged resources after a clean run", func() {
			r := session.New(cfg, exec)

			Expect(r.Run(ctx)).To(Succeed())

			Expect(scratchDir()).NotTo(BeAnExistingFile())
			Expect(cacheDir()).NotTo(BeAnExistingFile())
			Expect(filepath.Join(workDir, "test-cache.vmware.yml")).NotTo(BeAnExistingFile())
			Expect(filepath.Join(workDir, "test-config.vmware.yml")).NotTo(BeAnExistingFile())
		})

		// Given a stubbed dependency-install step returning exit code 1
		// When the session runs
		// Then no later step is invoked, the directories are removed and the
		// session exit code is 1
		It("should short-circuit when the first step fails", func() {
			exec.failAt = 1
			exec.code = 1
			r := session.New(cfg, exec)

			err := r.Run(ctx)

			Expect(err).To(HaveOccurred())
			Expect(exec.callCount()).To(Equal(1))
			Expect(session.ExitCode(err)).To(Equal(1))
			Expect(scratchDir()).NotTo(BeAnExistingFile())
			Expect(cacheDir()).NotTo(BeAnExistingFile())
		})

		// Given a mid-sequence failure
		// Then the failing child's exit code propagates unchanged
		It("should propagate a mid-sequence failure code unchanged", func() {
			exec.failAt = 4 // cache-validation playbook
			exec.code = 5
			r := session.New(cfg, exec)

			err := r.Run(ctx)

			var stepErr *session.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal("cache-validation"))
			Expect(stepErr.Code).To(Equal(5))
			Expect(session.ExitCode(err)).To(Equal(5))
			Expect(exec.callCount()).To(Equal(4))
		})

		// Given the full sequence
		// Then the selector is unset for the first two steps, points at the
		// cached source for steps 3-5, the plain source for step 6 and the
		// scratch directory for step 7
		It("should rebind the inventory selector between steps", func() {
			r := session.New(cfg, exec)
			Expect(r.Run(ctx)).To(Succeed())

			_, found := envValue(exec.call(1).env, "ANSIBLE_INVENTORY")
			Expect(found).To(BeFalse())
			_, found = envValue(exec.call(2).env, "ANSIBLE_INVENTORY")
			Expect(found).To(BeFalse())

			cached, _ := envValue(exec.call(3).env, "ANSIBLE_INVENTORY")
			Expect(cached).To(Equal(filepath.Join(workDir, "test-cache.vmware.yml")))

			// steps 4 and 5 (invocations 4-6) inherit the cached selector
			for i := 4; i <= 6; i++ {
				value, _ := envValue(exec.call(i).env, "ANSIBLE_INVENTORY")
				Expect(value).To(Equal(cached))
			}

			plain, _ := envValue(exec.call(7).env, "ANSIBLE_INVENTORY")
			Expect(plain).To(Equal(filepath.Join(workDir, "test-config.vmware.yml")))

			scratch, _ := envValue(exec.call(8).env, "ANSIBLE_INVENTORY")
			Expect(scratch).To(Equal(scratchDir()))

			Expect(cached).NotTo(Equal(plain))
			Expect(plain).NotTo(Equal(scratch))
		})

		// Given the session environment
		// Then every invocation sees the plugin, cache and credential bindings
		It("should expose the session environment to children", func() {
			r := session.New(cfg, exec)
			Expect(r.Run(ctx)).To(Succeed())

			env := exec.call(3).env
			expectations := map[string]string{
				"ANSIBLE_PYTHON_INTERPRETER":      "/usr/bin/python3",
				"ANSIBLE_INVENTORY_ENABLED":       "community.vmware.vmware_vm_inventory",
				"ANSIBLE_CACHE_PLUGIN":            "jsonfile",
				"ANSIBLE_CACHE_PLUGIN_CONNECTION": cacheDir(),
				"VMWARE_SERVER":                   "vcenter.test",
				"VMWARE_USERNAME":                 "administrator@vsphere.local",
				"VMWARE_PASSWORD":                 "secret",
				"VMWARE_VALIDATE_CERTS":           "false",
			}
			for key, expected := range expectations {
				value, found := envValue(env, key)
				Expect(found).To(BeTrue(), "missing %s", key)
				Expect(value).To(Equal(expected), "unexpected %s", key)
			}
		})

		// Given the staged scratch directory
		// Then it contains exactly the empty placeholder configuration
		It("should stage the empty placeholder inside the scratch directory", func() {
			var placeholder os.FileInfo
			exec.onCall = func(command.Spec) {
				if placeholder == nil {
					placeholder, _ = os.Stat(filepath.Join(scratchDir(), "empty.vmware.yml"))
				}
			}
			r := session.New(cfg, exec)

			Expect(r.Run(ctx)).To(Succeed())
			Expect(placeholder).NotTo(BeNil())
			Expect(placeholder.Size()).To(BeZero())
		})

		// Given a scratch directory left behind by a previous session
		// Then staging is idempotent and the session still runs
		It("should tolerate an already existing scratch directory", func() {
			Expect(os.MkdirAll(scratchDir(), 0o755)).To(Succeed())
			r := session.New(cfg, exec)

			Expect(r.Run(ctx)).To(Succeed())
			Expect(exec.callCount()).To(Equal(8))
		})
	})

	Describe("Signal handling", func() {
		// Given a session blocked in an external invocation
		// When two termination signals arrive
		// Then cleanup runs exactly once and the exit code is 128+signal
		It("should clean up exactly once under double-signal delivery", func() {
			exec.block = make(chan struct{})
			signals := make(chan os.Signal, 2)
			exitCodes := make(chan int, 2)

			r := session.New(cfg, exec,
				session.WithSignals(signals),
				session.WithExitFunc(func(code int) { exitCodes <- code }),
			)

			done := make(chan error, 1)
			go func() { done <- r.Run(ctx) }()

			// wait for the first invocation to block
			Eventually(exec.callCount, 2*time.Second).Should(Equal(1))

			signals <- syscall.SIGTERM
			Eventually(exitCodes, 2*time.Second).Should(Receive(Equal(128 + int(syscall.SIGTERM))))
			Eventually(scratchDir, 2*time.Second).ShouldNot(BeAnExistingFile())

			// recreate the scratch dir; a second signal must not remove it again
			Expect(os.MkdirAll(scratchDir(), 0o755)).To(Succeed())
			signals <- syscall.SIGINT
			Eventually(exitCodes, 2*time.Second).Should(Receive(Equal(128 + int(syscall.SIGINT))))
			Expect(scratchDir()).To(BeADirectory())

			close(exec.block)
			Eventually(done, 2*time.Second).Should(Receive())
			// the deferred cleanup is the same once-guarded cleaner
			Expect(scratchDir()).To(BeADirectory())
		})

		// Given a session that already returned
		// When a signal arrives afterwards
		// Then the retired watcher neither exits the process nor removes
		// anything
		It("should retire the signal watcher when the session ends", func() {
			signals := make(chan os.Signal, 2)
			exitCodes := make(chan int, 2)
			r := session.New(cfg, exec,
				session.WithSignals(signals),
				session.WithExitFunc(func(code int) { exitCodes <- code }),
			)

			Expect(r.Run(ctx)).To(Succeed())

			Expect(os.MkdirAll(scratchDir(), 0o755)).To(Succeed())
			signals <- syscall.SIGTERM

			Consistently(exitCodes, 300*time.Millisecond).ShouldNot(Receive())
			Expect(scratchDir()).To(BeADirectory())
		})
	})

	Describe("Journal", func() {
		// Given a journaled session that fails at step 4
		// Then four step outcomes are recorded and the session finishes
		// failed with the step's exit code
		It("should record step outcomes and the terminal status", func() {
			exec.failAt = 4
			exec.code = 2
			journal := &mockJournal{}
			r := session.New(cfg, exec, session.WithJournal(journal))

			err := r.Run(ctx)
			Expect(err).To(HaveOccurred())

			Expect(journal.created).To(HaveLen(1))
			Expect(journal.created[0].ID).To(Equal(r.ID()))
			Expect(journal.steps).To(HaveLen(4))
			Expect(journal.steps[3].Status).To(Equal(models.StepStatusFailed))
			Expect(journal.steps[3].ExitCode).To(Equal(2))
			Expect(journal.finished).To(HaveLen(1))
			Expect(journal.finished[0].status).To(Equal(models.SessionStatusFailed))
			Expect(journal.finished[0].exitCode).To(Equal(2))
		})

		// Given a journaled session that passes
		// Then all 7 steps are recorded passed and the session finishes passed
		It("should record a passing session", func() {
			journal := &mockJournal{}
			r := session.New(cfg, exec, session.WithJournal(journal))

			Expect(r.Run(ctx)).To(Succeed())

			Expect(journal.steps).To(HaveLen(7))
			for _, step := range journal.steps {
				Expect(step.Status).To(Equal(models.StepStatusPassed))
			}
			Expect(journal.finished).To(Equal([]finishCall{{status: models.SessionStatusPassed, exitCode: 0}}))
		})
	})
})
