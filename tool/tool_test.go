package tool

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/codex-mohan/autonix/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/bash"); os.IsNotExist(err) {
		t.Skip("Bash not available, skipping tests")
	}
}

func TestReadFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("hello"), 0o644))

	content, err := ReadFile(testFile)
	assert.NoError(t, err)
	assert.Equal(t, "hello", content)

	_, err = ReadFile(filepath.Join(tmpDir, "nonexistent.txt"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "nested", "dir", "out.txt")

	require.NoError(t, WriteFile(testFile, "first"))
	require.NoError(t, WriteFile(testFile, "second"))

	content, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	blocker := filepath.Join(tmpDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	err = WriteFile(filepath.Join(blocker, "child.txt"), "x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write to file")
}

func TestFileTools_Root(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	w := &WriteFileTool{Root: root}
	r := &ReadFileTool{Root: root}

	out, err := w.Call(ctx, `{"path": "notes/a.txt", "content": "abc"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 bytes")

	content, err := r.Call(ctx, `{"path": "notes/a.txt"}`)
	require.NoError(t, err)
	assert.Equal(t, "abc", content)

	// Raw input is accepted for single-argument tools.
	content, err = r.Call(ctx, "notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", content)

	_, err = r.Call(ctx, `{"path": "../outside.txt"}`)
	assert.True(t, errors.Is(err, ErrPathEscapesRoot))

	_, err = w.Call(ctx, "not json")
	assert.Error(t, err)
}

func TestShell(t *testing.T) {
	requireBash(t)
	ctx := context.Background()
	sh := NewShell()

	out, err := sh.Call(ctx, `{"command": "echo 'Hello from shell'"}`)
	assert.NoError(t, err)
	assert.Contains(t, out, "Hello from shell")

	out, err = sh.Call(ctx, "echo raw")
	assert.NoError(t, err)
	assert.Equal(t, "raw\n", out)

	out, err = sh.Call(ctx, `{"command": "echo out; echo err >&2"}`)
	assert.NoError(t, err)
	assert.Contains(t, out, "out\n\n\nSTDERR:\nerr")

	out, err = sh.Call(ctx, `{"command": "true"}`)
	assert.NoError(t, err)
	assert.Equal(t, "(no output)", out)

	out, err = sh.Call(ctx, `{"command": "echo failing; exit 3"}`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 3")
	assert.Contains(t, out, "failing")

	_, err = sh.Call(ctx, `{"command": "  "}`)
	assert.Error(t, err)
}

func TestShell_WorkDirAndTimeout(t *testing.T) {
	requireBash(t)
	dir := t.TempDir()
	sh := NewShell(WithShellWorkDir(dir), WithShellTimeout(100*time.Millisecond))

	out, err := sh.Call(context.Background(), "pwd")
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, []string{dir, resolved}, strings.TrimSpace(out))

	_, err = sh.Call(context.Background(), "sleep 5")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestShell_Truncates(t *testing.T) {
	requireBash(t)
	sh := NewShell(WithShellMaxOutput(10))

	out, err := sh.Call(context.Background(), "printf '%0100d' 0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "0000000000\n"))
	assert.Contains(t, out, "[Output truncated at 10 bytes]")
}

func TestShell_TruncatesOnRuneBoundary(t *testing.T) {
	sh := NewShell(WithShellMaxOutput(4))

	// "héé" is 5 bytes; the limit falls inside the second "é".
	out := sh.buildOutput(bytes.NewBufferString("héé"), &bytes.Buffer{})
	assert.True(t, strings.HasPrefix(out, "hé\n"), out)
	assert.True(t, utf8.ValidString(out))

	out = sh.buildOutput(bytes.NewBufferString("ab"), bytes.NewBufferString("日本"))
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "[Output truncated at 4 bytes]")
}

func TestCutUTF8(t *testing.T) {
	assert.Equal(t, "abc", cutUTF8("abc", 5))
	assert.Equal(t, "", cutUTF8("日本", 2))
	assert.Equal(t, "日", cutUTF8("日本", 4))
	assert.Equal(t, "日本", cutUTF8("日本", 6))
}

func TestFetchTitle(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/title":
			w.Write([]byte(`<html><head><title> Autonix Docs </title></head></html>`))
		case "/og":
			w.Write([]byte(`<html><head><meta property="og:title" content="From OG"></head></html>`))
		case "/none":
			w.Write([]byte(`<html><head></head><body>x</body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	ctx := context.Background()

	title, err := FetchTitle(ctx, server.Client(), server.URL+"/title")
	require.NoError(t, err)
	assert.Equal(t, "Autonix Docs", title)
	assert.Contains(t, gotUA, "Mozilla/5.0")

	title, err = FetchTitle(ctx, server.Client(), server.URL+"/og")
	require.NoError(t, err)
	assert.Equal(t, "From OG", title)

	title, err = FetchTitle(ctx, server.Client(), server.URL+"/none")
	require.NoError(t, err)
	assert.Equal(t, "", title)

	_, err = FetchTitle(ctx, server.Client(), server.URL+"/missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status code 404")

	p := &PageTitle{Client: server.Client()}
	out, err := p.Call(ctx, `{"url": "`+server.URL+`/none"}`)
	require.NoError(t, err)
	assert.Equal(t, "(no title)", out)
}

func TestWebFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
	<title>Test Page</title>
	<script>console.log('test');</script>
	<style>body { color: blue; }</style>
</head>
<body>
	<h1>Test Content</h1>
	<p>This is a test paragraph.</p>
	<script>alert('test');</script>
</body>
</html>`))
	}))
	defer server.Close()

	result, err := WebFetch(server.URL)
	assert.NoError(t, err)
	assert.Equal(t, "Test Content This is a test paragraph.", result)

	emptyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer emptyServer.Close()

	_, err = WebFetch(emptyServer.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no text content found")

	_, err = WebFetch("invalid-url")
	assert.Error(t, err)
	assert.True(t,
		strings.Contains(err.Error(), "failed to create request") ||
			strings.Contains(err.Error(), "failed to fetch URL"),
		"got: %v", err)

	wf := &WebFetchTool{MaxChars: 12}
	out, err := wf.Call(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Test Content", out)
}

func TestWebFetchTool_MaxCharsCountsRunes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>héllo wörld</p></body></html>`))
	}))
	defer server.Close()

	wf := &WebFetchTool{MaxChars: 4}
	out, err := wf.Call(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "héll", out)
}

func TestExecutor(t *testing.T) {
	root := t.TempDir()
	exec := NewExecutor(&ReadFileTool{Root: root}, &WriteFileTool{Root: root})
	ctx := context.Background()

	defs := exec.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "read_file", defs[0].Name)
	assert.Equal(t, "write_file", defs[1].Name)
	assert.Len(t, exec.Tools(), 2)

	_, err := exec.Execute(ctx, state.ToolCall{ID: "1", Name: "write_file", Arguments: `{"path":"a","content":"b"}`})
	require.NoError(t, err)

	out, err := exec.Execute(ctx, state.ToolCall{ID: "2", Name: "read_file", Arguments: `{"path":"a"}`})
	require.NoError(t, err)
	assert.Equal(t, "b", out)

	_, err = exec.Execute(ctx, state.ToolCall{ID: "3", Name: "read_file", Arguments: `{"path":"missing"}`})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolExecution))
	var te *ToolExecutionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "read_file", te.Tool)
	assert.Equal(t, "3", te.CallID)
	assert.Contains(t, err.Error(), "failed to read file")

	_, err = exec.Execute(ctx, state.ToolCall{ID: "4", Name: "rm_rf"})
	assert.True(t, errors.Is(err, ErrUnknownTool))
	assert.True(t, errors.Is(err, ErrToolExecution))
}
