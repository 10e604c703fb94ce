package ladle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Executor runs external tools on behalf of the pipeline. Every invocation is
// synchronous; cancellation of the context kills the child's whole process
// group so a ninja run doesn't leave compilers behind.
type Executor struct {
	Context context.Context
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

// Run executes cmd, wiring stdio to the terminal unless the caller set it.
// The returned error is the raw *exec.ExitError on tool failure so callers
// can mirror the exit code.
func (e *Executor) Run(cmd *exec.Cmd) error {
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	finalCmd := exec.CommandContext(e.Context, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	// Own process group so context cancellation can kill the whole tree.
	finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	pgid := finalCmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-e.Context.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-done:
		}
	}()

	if waitErr := finalCmd.Wait(); waitErr != nil {
		if e.Context.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", e.Context.Err())
		}
		return waitErr
	}
	return nil
}

// RunCapture executes cmd and returns its trimmed stdout. Used for the
// revision queries where the tool's output matters, not just its status.
func (e *Executor) RunCapture(cmd *exec.Cmd) (string, error) {
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &bytes.Buffer{}
	cmd.Stdin = bytes.NewReader(nil)
	err := e.Run(cmd)
	return string(bytes.TrimSpace(out.Bytes())), err
}

// RunQuiet executes cmd discarding all output. Used for probes where only the
// exit status is interesting.
func (e *Executor) RunQuiet(cmd *exec.Cmd) error {
	var sink bytes.Buffer
	cmd.Stdout = &sink
	cmd.Stderr = &sink
	cmd.Stdin = bytes.NewReader(nil)
	return e.Run(cmd)
}
