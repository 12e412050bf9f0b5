package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/kubev2v/vsphere-inventory-runner/test/e2e/infra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

type configuration struct {
	RunnerBin   string
	KeepScratch bool
}

var (
	cfg     configuration
	harness *infra.Harness
)

func (c configuration) Validate() error {
	if c.RunnerBin == "" {
		return fmt.Errorf("runner binary path is empty")
	}
	if _, err := os.Stat(c.RunnerBin); err != nil {
		return fmt.Errorf("failed to stat runner binary: %v", err)
	}
	return nil
}

func main() {
	flag.StringVar(&cfg.RunnerBin, "runner-bin", "bin/inventory-runner", "Path to the built inventory-runner binary")
	flag.BoolVar(&cfg.KeepScratch, "keep-scratch", false, "Keep per-spec work directories after test completion (useful for debugging)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	stubDir, err := os.MkdirTemp("", "inventory-runner-stubs-")
	if err != nil {
		log.Fatalf("failed to create stub directory: %v", err)
	}
	defer os.RemoveAll(stubDir)

	harness, err = infra.NewHarness(stubDir)
	if err != nil {
		log.Fatalf("failed to start e2e infrastructure: %v", err)
	}
	defer harness.Close()

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		os.Exit(1)
	}
}
