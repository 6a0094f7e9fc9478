package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"vidflow/config"
)

// ExecRunner invokes external binaries through os/exec. It is the only place
// in the codebase that spawns processes.
type ExecRunner struct {
	cfg *config.Config
	log *log.Logger
}

func NewExecRunner(cfg *config.Config, logger *log.Logger) (*ExecRunner, error) {
	// ffmpeg is required for two of the three pipeline steps; refuse to start
	// without it. demucs may be absent, the health endpoint reports it.
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}

	return &ExecRunner{cfg: cfg, log: logger}, nil
}

// Run executes bin with args and returns the combined stdout/stderr.
// A nonzero exit surfaces as an error; the captured output is returned in
// both cases so callers can include the tool's diagnostics in their messages.
func (r *ExecRunner) Run(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var outputBuf bytes.Buffer
	cmd.Stdout = &outputBuf
	cmd.Stderr = &outputBuf

	r.log.Debug("executing", "bin", bin, "args", strings.Join(args, " "))

	err := cmd.Run()
	outputLog := outputBuf.String()

	if err != nil {
		return outputLog, fmt.Errorf("%s execution failed: %w", bin, err)
	}

	return outputLog, nil
}

// LookPath reports whether bin is resolvable on the execution path.
func (r *ExecRunner) LookPath(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// CheckResources verifies that the system has enough free resources to start
// a separation. A demucs run is far heavier than a plain transcode, so this
// runs once before each job is admitted.
func (r *ExecRunner) CheckResources() error {
	// CPU
	p, err := cpu.Percent(time.Second, false)
	if err != nil {
		r.log.Warn("could not get CPU usage", "err", err)
	} else if len(p) > 0 && p[0] > (100.0-r.cfg.ThrottleCPU) {
		return fmt.Errorf("not enough idle CPU. Current usage: %.2f%%, Idle threshold: %.2f%%", p[0], r.cfg.ThrottleCPU)
	}

	// Memory
	vm, err := mem.VirtualMemory()
	if err != nil {
		r.log.Warn("could not get memory usage", "err", err)
	} else if vm.Available < uint64(r.cfg.ThrottleFreeMem) {
		return fmt.Errorf("not enough free memory. Available: %d, Required: %d", vm.Available, r.cfg.ThrottleFreeMem)
	}

	// Disk
	d, err := disk.Usage(r.cfg.OutputDir)
	if err != nil {
		r.log.Warn("could not get disk usage", "dir", r.cfg.OutputDir, "err", err)
	} else if d.Free < uint64(r.cfg.ThrottleFreeDisk) {
		return fmt.Errorf("not enough free disk space. Available: %d, Required: %d", d.Free, r.cfg.ThrottleFreeDisk)
	}
	return nil
}
