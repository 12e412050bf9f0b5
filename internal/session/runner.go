package session

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubev2v/vsphere-inventory-runner/internal/config"
	"github.com/kubev2v/vsphere-inventory-runner/internal/models"
	"github.com/kubev2v/vsphere-inventory-runner/pkg/ansible"
	"github.com/kubev2v/vsphere-inventory-runner/pkg/command"
	"github.com/kubev2v/vsphere-inventory-runner/pkg/inventory"
	"github.com/kubev2v/vsphere-inventory-runner/pkg/vsphere"
)

const (
	cachedSourceName = "test-cache.vmware.yml"
	plainSourceName  = "test-config.vmware.yml"
)

// Journal records session and step outcomes. Implemented by
// store.SessionStore; nil disables journaling.
type Journal interface {
	Create(ctx context.Context, s *models.Session) error
	RecordStep(ctx context.Context, r *models.StepResult) error
	Finish(ctx context.Context, id uuid.UUID, status models.SessionStatus, exitCode int) error
}

type Option func(*Runner)

// WithJournal enables persistence of session and step outcomes.
func WithJournal(j Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// WithSignals overrides the channel used to receive termination signals.
func WithSignals(ch chan os.Signal) Option {
	return func(r *Runner) { r.signals = ch }
}

// WithExitFunc overrides os.Exit on the signal path.
func WithExitFunc(f func(int)) Option {
	return func(r *Runner) { r.exit = f }
}

// Runner drives one test session: stage scratch resources, probe the
// endpoint, execute the fixed invocation sequence, and reclaim the staged
// resources on every exit path.
type Runner struct {
	cfg      *config.Configuration
	executor command.Executor
	journal  Journal
	cleaner  *Cleaner
	signals  chan os.Signal
	exit     func(int)
	id       uuid.UUID
	banner   *color.Color
}

func New(cfg *config.Configuration, executor command.Executor, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		executor: executor,
		signals:  make(chan os.Signal, 2),
		exit:     os.Exit,
		id:       uuid.New(),
		banner:   color.New(color.FgCyan, color.Bold),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the session identity.
func (r *Runner) ID() uuid.UUID {
	return r.id
}

// Run executes the session. The returned error is nil only when all steps
// exited 0; map it to a process exit code with ExitCode.
func (r *Runner) Run(ctx context.Context) error {
	log := zap.S().Named("session")
	log.Infow("starting test session", "id", r.id.String())

	env, paths, err := r.stage()
	if err != nil {
		return err
	}

	r.cleaner = NewCleaner(paths.Cache, paths.Scratch, paths.CachedSource, paths.PlainSource)
	defer r.cleaner.Run()

	stop := r.watchSignals()
	defer stop()

	if !r.cfg.Endpoint.SkipPreflight {
		about, err := vsphere.WaitForEndpoint(ctx, vsphere.Endpoint{
			Host:          r.cfg.Endpoint.Host,
			Username:      r.cfg.Endpoint.Username,
			Password:      r.cfg.Endpoint.Password,
			ValidateCerts: r.cfg.Endpoint.ValidateCerts,
		}, r.cfg.Endpoint.ProbeTimeout)
		if err != nil {
			return err
		}
		log.Infow("endpoint ready", "product", about)
	}

	r.journalCreate(ctx)

	cmds := ansible.CommandSet{
		PlaybookBin:  r.cfg.Ansible.PlaybookBin,
		InventoryBin: r.cfg.Ansible.InventoryBin,
		PlaybooksDir: r.cfg.Ansible.PlaybooksDir,
	}
	steps := buildSteps(cmds, paths)

	for i, step := range steps {
		if step.Inventory != "" {
			env.SetInventory(step.Inventory)
			log.Infow("inventory selector rebound", "inventory", step.Inventory)
		}
		r.banner.Printf("==> [%d/%d] %s\n", i+1, len(steps), step.Name)

		started := time.Now()
		stepErr := r.runStep(ctx, step, env)
		r.journalStep(ctx, step, i+1, started, stepErr)

		if stepErr != nil {
			code := command.ExitCode(stepErr)
			r.journalFinish(ctx, models.SessionStatusFailed, code)
			return &StepError{Step: step.Name, Code: code, Err: stepErr}
		}
		log.Infow("step passed", "step", step.Name, "duration", time.Since(started))
	}

	r.journalFinish(ctx, models.SessionStatusPassed, 0)
	log.Infow("test session passed", "id", r.id.String())
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step, env *Environment) error {
	for _, spec := range step.Commands {
		if err := r.executor.Run(ctx, spec, env.Environ()); err != nil {
			return err
		}
	}
	return nil
}

// stage resolves the interpreter, creates the scratch and cache directories
// (idempotent) and generates the inventory source documents.
func (r *Runner) stage() (*Environment, Paths, error) {
	interpreter, err := r.cfg.Ansible.ResolveInterpreter()
	if err != nil {
		return nil, Paths{}, err
	}

	workDir, err := filepath.Abs(r.cfg.Session.WorkDir)
	if err != nil {
		return nil, Paths{}, fmt.Errorf("failed to resolve work dir: %w", err)
	}

	paths := Paths{
		Scratch:      filepath.Join(workDir, r.cfg.Session.ScratchDir),
		Cache:        filepath.Join(workDir, r.cfg.Session.CacheDir),
		CachedSource: filepath.Join(workDir, cachedSourceName),
		PlainSource:  filepath.Join(workDir, plainSourceName),
	}

	if err := os.MkdirAll(paths.Scratch, 0o755); err != nil {
		return nil, Paths{}, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	if err := os.MkdirAll(paths.Cache, 0o755); err != nil {
		return nil, Paths{}, fmt.Errorf("failed to create cache dir: %w", err)
	}
	if _, err := inventory.WritePlaceholder(paths.Scratch); err != nil {
		return nil, Paths{}, err
	}

	plugin := r.cfg.Ansible.EnabledPlugin
	cachePlugin := r.cfg.Ansible.CachePlugin
	if err := inventory.WriteSource(paths.CachedSource, inventory.CachedConfig(plugin, cachePlugin, paths.Cache)); err != nil {
		return nil, Paths{}, err
	}
	if err := inventory.WriteSource(paths.PlainSource, inventory.PlainConfig(plugin)); err != nil {
		return nil, Paths{}, err
	}

	env := NewEnvironment(interpreter, plugin, cachePlugin, paths.Cache, Credentials{
		Host:          r.cfg.Endpoint.Host,
		Username:      r.cfg.Endpoint.Username,
		Password:      r.cfg.Endpoint.Password,
		ValidateCerts: r.cfg.Endpoint.ValidateCerts,
	})
	return env, paths, nil
}

// watchSignals routes SIGINT/SIGTERM through the once-guarded cleaner and
// re-raises the conventional exit code. The returned stop function
// unregisters the handler.
func (r *Runner) watchSignals() func() {
	signal.Notify(r.signals, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-r.signals:
				// a signal racing the stop is ignored
				select {
				case <-done:
					return
				default:
				}
				zap.S().Named("session").Warnw("termination signal received", "signal", sig.String())
				r.cleaner.Run()
				code := exitCodeForSignal(sig)
				r.journalFinish(context.Background(), models.SessionStatusInterrupted, code)
				r.exit(code)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(r.signals)
		close(done)
	}
}

func exitCodeForSignal(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}

func (r *Runner) journalCreate(ctx context.Context) {
	if r.journal == nil {
		return
	}
	s := &models.Session{
		ID:        r.id,
		Status:    models.SessionStatusRunning,
		StartedAt: time.Now(),
	}
	if err := r.journal.Create(ctx, s); err != nil {
		zap.S().Named("journal").Warnw("failed to record session", "error", err)
	}
}

func (r *Runner) journalStep(ctx context.Context, step Step, position int, started time.Time, stepErr error) {
	if r.journal == nil {
		return
	}
	result := &models.StepResult{
		SessionID: r.id,
		Position:  position,
		Name:      step.Name,
		Status:    models.StepStatusPassed,
		Duration:  time.Since(started),
		StartedAt: started,
	}
	if stepErr != nil {
		result.Status = models.StepStatusFailed
		result.ExitCode = command.ExitCode(stepErr)
	}
	if err := r.journal.RecordStep(ctx, result); err != nil {
		zap.S().Named("journal").Warnw("failed to record step", "step", step.Name, "error", err)
	}
}

func (r *Runner) journalFinish(ctx context.Context, status models.SessionStatus, exitCode int) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Finish(ctx, r.id, status, exitCode); err != nil {
		zap.S().Named("journal").Warnw("failed to finish session record", "error", err)
	}
}
