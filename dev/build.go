package dev

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// BuildRunner runs an external build command once per rebuild cycle and
// accumulates its stderr, so a failed build's compiler output can be shown
// in the error overlay instead of a bare exit status. The accumulated
// message is cleared after each read, matching the broadcast-then-reset
// lifecycle of the rebuild loop.
type BuildRunner struct {
	Command string
	Args    []string

	mu     sync.Mutex
	stderr string
}

// NewBuildRunner returns a BuildRunner invoking command with args on each
// Run call.
func NewBuildRunner(command string, args ...string) *BuildRunner {
	return &BuildRunner{Command: command, Args: args}
}

// Run executes the build command, blocking until it exits. On failure the
// returned error carries the command's accumulated stderr.
func (b *BuildRunner) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, b.Command, b.Args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	b.mu.Lock()
	b.stderr = stderr.String()
	b.mu.Unlock()

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("dev: build command %q failed: %w", b.Command, err)
		}
		return fmt.Errorf("dev: build command %q failed: %s", b.Command, msg)
	}
	return nil
}

// Stderr returns the stderr output accumulated by the last Run and clears
// it, so each rebuild cycle's overlay reflects only that cycle's build.
func (b *BuildRunner) Stderr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stderr
	b.stderr = ""
	return s
}

// Rebuild adapts the runner to the RebuildFunc signature, chaining an
// optional followup (typically the manifest reload) to run only when the
// build itself succeeded.
func (b *BuildRunner) Rebuild(followup RebuildFunc) RebuildFunc {
	return func(ctx context.Context) error {
		if err := b.Run(ctx); err != nil {
			return err
		}
		if followup != nil {
			return followup(ctx)
		}
		return nil
	}
}
