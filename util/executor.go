package gardenutil

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// The command executor is an abstraction layer on top of the exec package to
// improve testability and allow mock the operating system operations.
type CommandExecutor interface {
	// Executes the command and returns its standard output.
	Output(ctx context.Context, command string, args ...string) ([]byte, error)
	// Executes the command discarding its output. It returns when the
	// command exits or the context is done.
	Run(ctx context.Context, command string, args ...string) error
	LookPath(string) (string, error)
	IsFileExist(string) bool
}

// Executes the given command in the operating system.
type systemCommandExecutor struct{}

// Constructs the command executor that invokes the programs directly (no
// shell is involved so the arguments are never interpreted).
func NewSystemCommandExecutor() CommandExecutor {
	return &systemCommandExecutor{}
}

// Executes a given command and returns an output.
func (e *systemCommandExecutor) Output(ctx context.Context, command string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, command, args...).Output()
	return output, errors.Wrapf(err, "cannot execute %s", command)
}

// Executes a given command with the standard streams detached.
func (e *systemCommandExecutor) Run(ctx context.Context, command string, args ...string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = nil
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return errors.Wrapf(cmd.Run(), "cannot execute %s", command)
}

// Looks for a given command in the system PATH and returns absolute path if found.
func (e *systemCommandExecutor) LookPath(command string) (string, error) {
	path, err := exec.LookPath(command)
	return path, errors.WithStack(err)
}

// Looks for a given file. Returns true is the path exist, is accessible, and
// points to a file.
func (e *systemCommandExecutor) IsFileExist(path string) bool {
	if stat, err := os.Stat(path); err == nil {
		return stat.Mode().IsRegular()
	}
	return false
}
