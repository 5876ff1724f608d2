package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// CommandRunner runs an external program and captures its output
type CommandRunner interface {
	Run(ctx context.Context, binary string, args ...string) (stdout, stderr []byte, err error)
	// Stream writes stdout to w as it is produced; a write error stops the copy
	Stream(ctx context.Context, w io.Writer, binary string, args ...string) (stderr []byte, err error)
}

// ErrOutputLimit is returned by LimitedBuffer once its limit is passed
var ErrOutputLimit = errors.New("command output exceeds limit")

// commandWaitDelay bounds how long Wait blocks on pipes held by child
// processes after the command exits or is killed
const commandWaitDelay = 5 * time.Second

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run implements CommandRunner.
// exec.CommandContext passes args directly to the process; no shell is involved.
func (ExecRunner) Run(ctx context.Context, binary string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = commandWaitDelay
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Stream implements CommandRunner
func (ExecRunner) Stream(ctx context.Context, w io.Writer, binary string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = w
	cmd.Stderr = &stderr
	cmd.WaitDelay = commandWaitDelay
	err := cmd.Run()
	return stderr.Bytes(), err
}

// LimitedBuffer collects at most Max bytes. The write that would pass the
// limit fails with ErrOutputLimit and calls Cancel, so the producing
// command is killed instead of blocking on a full pipe.
// Max <= 0 means no limit.
type LimitedBuffer struct {
	Max    int64
	Cancel context.CancelFunc

	mu       sync.Mutex
	buf      bytes.Buffer
	exceeded bool
}

// Write implements io.Writer
func (b *LimitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.exceeded {
		return 0, ErrOutputLimit
	}
	if b.Max > 0 && int64(b.buf.Len())+int64(len(p)) > b.Max {
		b.exceeded = true
		if b.Cancel != nil {
			b.Cancel()
		}
		return 0, ErrOutputLimit
	}
	return b.buf.Write(p)
}

// Bytes returns what was written so far
func (b *LimitedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

// Exceeded reports whether a write was refused
func (b *LimitedBuffer) Exceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exceeded
}

// ShellEscape quotes s for display in a shell command line.
// Used for logging only.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsFunc(s, isShellSpecialChar) {
		return s
	}

	// close the quote, emit a double-quoted ', reopen
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ShellEscapeCommand builds a loggable command line
func ShellEscapeCommand(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, ShellEscape(binary))
	for _, arg := range args {
		parts = append(parts, ShellEscape(arg))
	}
	return strings.Join(parts, " ")
}

// isShellSpecialChar returns true if the character has special meaning in shell
func isShellSpecialChar(c rune) bool {
	switch c {
	case ' ', '\t', '\'', '"', '$', '`', '\\', '!', '*', '?', '[', ']',
		'(', ')', '{', '}', '|', ';', '<', '>', '&', '~', '#', '%', '\n', '\r':
		return true
	default:
		return false
	}
}
