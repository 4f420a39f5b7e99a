// Package tool provides the tools the chatbot graph can call.
//
// Every tool implements the langchaingo tools.Tool interface, so it can be
// used by any langchaingo agent, and also exposes a Definition describing
// its JSON arguments to a chat model:
//
//	shell := tool.NewShell(tool.WithShellTimeout(10 * time.Second))
//	out, err := shell.Call(ctx, `{"command": "ls -la"}`)
//
// # Available Tools
//
//   - Shell: runs a command with bash -c, with a timeout and output cap
//   - ReadFileTool / WriteFileTool: file access, optionally confined to a root directory
//   - PageTitle: fetches a web page and returns its title
//   - WebFetch: fetches a web page and returns its visible text
//
// # Executing model requests
//
// Executor maps tool names to tools and runs the calls a model requested.
// Failures come back as *ToolExecutionError, which callers turn into tool
// messages so the conversation can continue.
package tool
