package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultShellTimeout  = 30 * time.Second
	defaultMaxOutputSize = 64 * 1024
)

// Shell runs commands with bash -c.
type Shell struct {
	WorkDir       string
	Timeout       time.Duration
	MaxOutputSize int
}

var _ Tool = (*Shell)(nil)

type ShellOption func(*Shell)

// WithShellWorkDir sets the directory commands run in.
func WithShellWorkDir(dir string) ShellOption {
	return func(s *Shell) {
		s.WorkDir = dir
	}
}

// WithShellTimeout bounds every command. Non-positive values keep the default.
func WithShellTimeout(d time.Duration) ShellOption {
	return func(s *Shell) {
		if d > 0 {
			s.Timeout = d
		}
	}
}

// WithShellMaxOutput caps the combined output in bytes.
func WithShellMaxOutput(n int) ShellOption {
	return func(s *Shell) {
		if n > 0 {
			s.MaxOutputSize = n
		}
	}
}

// NewShell creates a Shell with a 30s timeout and a 64 KiB output cap.
func NewShell(opts ...ShellOption) *Shell {
	s := &Shell{
		Timeout:       defaultShellTimeout,
		MaxOutputSize: defaultMaxOutputSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the name of the tool.
func (s *Shell) Name() string {
	return "shell"
}

// Description returns the description of the tool.
func (s *Shell) Description() string {
	return "Runs a shell command with bash and returns its combined stdout and stderr."
}

// Definition describes the arguments of the tool.
func (s *Shell) Definition() Definition {
	return Definition{
		Name:        s.Name(),
		Description: s.Description(),
		Parameters:  stringParams([2]string{"command", "The command to run."}),
	}
}

// Call runs the command in input, either {"command": "..."} or the raw command.
// A non-zero exit is an error; the returned string still carries the output.
func (s *Shell) Call(ctx context.Context, input string) (string, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := parseArgs(input, &args, &args.Command); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Command) == "" {
		return "", errors.New("command is empty")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "bash", "-c", args.Command)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := s.buildOutput(&stdout, &stderr)

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("command timed out after %s", timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("command exited with code %d: %s", exitErr.ExitCode(), output)
		}
		return output, fmt.Errorf("failed to run command: %w", err)
	}
	return output, nil
}

// buildOutput combines stdout and stderr, truncated to MaxOutputSize.
func (s *Shell) buildOutput(stdout, stderr *bytes.Buffer) string {
	limit := s.MaxOutputSize
	if limit <= 0 {
		limit = defaultMaxOutputSize
	}

	var out strings.Builder
	truncated := false

	if stdout.Len() > 0 {
		str := stdout.String()
		if len(str) > limit {
			str = cutUTF8(str, limit)
			truncated = true
		}
		out.WriteString(str)
	}

	if stderr.Len() > 0 {
		if out.Len() > 0 {
			out.WriteString("\n\nSTDERR:\n")
		}
		str := stderr.String()
		if remaining := limit - out.Len(); remaining > 0 {
			if len(str) > remaining {
				str = cutUTF8(str, remaining)
				truncated = true
			}
			out.WriteString(str)
		} else {
			truncated = true
		}
	}

	result := out.String()
	if result == "" {
		result = "(no output)"
	}
	if truncated {
		result += fmt.Sprintf("\n\n[Output truncated at %d bytes]", limit)
	}
	return result
}

// cutUTF8 returns the longest prefix of s of at most n bytes that does not
// split a rune.
func cutUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
