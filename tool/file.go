package tool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFile reads the content of a file.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

// WriteFile writes content to a file, creating parent directories as needed.
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

// ErrPathEscapesRoot is returned when a path resolves outside the configured root.
var ErrPathEscapesRoot = errors.New("path escapes root directory")

// resolvePath joins path onto root. An empty root leaves path unchanged.
func resolvePath(root, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path is empty")
	}
	if root == "" {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, path)
	}
	return path, nil
}

// ReadFileTool exposes ReadFile to a model.
type ReadFileTool struct {
	// Root confines reads to one directory when set.
	Root string
}

var _ Tool = (*ReadFileTool)(nil)

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Reads a text file and returns its content."
}

func (t *ReadFileTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  stringParams([2]string{"path", "Path of the file to read."}),
	}
}

// Call reads the file named by {"path": "..."} or by the raw input.
func (t *ReadFileTool) Call(_ context.Context, input string) (string, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := parseArgs(input, &args, &args.Path); err != nil {
		return "", err
	}
	path, err := resolvePath(t.Root, strings.TrimSpace(args.Path))
	if err != nil {
		return "", err
	}
	return ReadFile(path)
}

// WriteFileTool exposes WriteFile to a model.
type WriteFileTool struct {
	// Root confines writes to one directory when set.
	Root string
}

var _ Tool = (*WriteFileTool)(nil)

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing it if it exists."
}

func (t *WriteFileTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: stringParams(
			[2]string{"path", "Path of the file to write."},
			[2]string{"content", "Content to write."},
		),
	}
}

// Call writes {"path": "...", "content": "..."}.
func (t *WriteFileTool) Call(_ context.Context, input string) (string, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := parseArgs(input, &args, nil); err != nil {
		return "", err
	}
	path, err := resolvePath(t.Root, strings.TrimSpace(args.Path))
	if err != nil {
		return "", err
	}
	if err := WriteFile(path, args.Content); err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path), nil
}
