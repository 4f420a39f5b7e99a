// Command autonix serves the chat graphs over HTTP and runs them from the terminal.
//
// Usage:
//
//	autonix [-config file] serve
//	autonix [-config file] chat [-thread id] [-provider p] [-model m] message...
//	autonix [-config file] suggest [-n 3] question...
//	autonix [-config file] models
//	autonix [-config file] graph chatbot|orchestrator|suggest
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/codex-mohan/autonix/config"
	"github.com/codex-mohan/autonix/conversation"
	"github.com/codex-mohan/autonix/graph"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/prebuilt"
	"github.com/codex-mohan/autonix/provider"
	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/server"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/store"
	"github.com/codex-mohan/autonix/store/backend"
	"github.com/codex-mohan/autonix/tool"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	providerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("#6124DF")).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
)

// errUsage makes run print the usage text and exit with status 2.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("autonix"), dimStyle.Render("multi-provider chat graphs"))
	fmt.Fprintln(w, `
Usage:
  autonix [-config file] serve
  autonix [-config file] chat [-thread id] [-provider p] [-model m] message...
  autonix [-config file] suggest [-n 3] question...
  autonix [-config file] models
  autonix [-config file] graph chatbot|orchestrator|suggest`)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("autonix", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	configPath := fs.String("config", os.Getenv("AUTONIX_CONFIG"), "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("error:"), err)
		return 1
	}
	logOpts := cfg.LogOptions()
	logOpts.Output = stderr
	h := log.Init(logOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, logs: h, stdout: stdout}
	app.factory = provider.NewFactory(append(cfg.ProviderOptions(), provider.WithLogger(h.HTTP()))...)

	switch rest[0] {
	case "serve":
		err = app.serve(ctx)
	case "chat":
		err = app.chat(ctx, rest[1:], stderr)
	case "suggest":
		err = app.suggest(ctx, rest[1:], stderr)
	case "models":
		app.models()
	case "graph":
		err = app.graph(rest[1:])
	case "help":
		usage(stdout)
	default:
		fmt.Fprintln(stderr, errorStyle.Render("error:"), fmt.Sprintf("unknown command %q", rest[0]))
		usage(stderr)
		return 2
	}

	switch {
	case errors.Is(err, errUsage):
		usage(stderr)
		return 2
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintln(stderr, errorStyle.Render("error:"), err)
		return 1
	}
	return 0
}

type app struct {
	cfg     *config.Config
	logs    *log.Handle
	factory *provider.Factory
	stdout  io.Writer
}

func (a *app) tools() []tool.Tool {
	return []tool.Tool{
		tool.NewShell(tool.WithShellWorkDir(a.cfg.Tools.WorkDir), tool.WithShellTimeout(a.cfg.Tools.ShellTimeout)),
		&tool.ReadFileTool{Root: a.cfg.Tools.WorkDir},
		&tool.WriteFileTool{Root: a.cfg.Tools.WorkDir},
		&tool.PageTitle{},
		&tool.WebFetchTool{MaxChars: 20000},
	}
}

func (a *app) checkpointer(ctx context.Context) (store.CheckpointStore, backend.CloseFunc, error) {
	cp, closeFn, err := backend.Open(ctx, a.cfg.Store.CheckpointDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return cp, closeFn, nil
}

func (a *app) serve(ctx context.Context) error {
	cp, closeCP, err := a.checkpointer(ctx)
	if err != nil {
		return err
	}
	defer closeCP()

	opts := []server.Option{
		server.WithCheckpointer(cp),
		server.WithTools(a.tools()...),
		server.WithDefaultModel(a.cfg.Model.Provider, a.cfg.Model.Name),
		server.WithLLMConfig(a.cfg.LLM),
		server.WithLogger(a.logs.Logger()),
		server.WithHTTPLogger(a.logs.HTTP()),
	}
	if dsn := a.cfg.Store.ConversationDSN; dsn != "" {
		convs, err := conversation.Open(ctx, dsn)
		if err != nil {
			return fmt.Errorf("open conversation store: %w", err)
		}
		defer convs.Close()
		opts = append(opts, server.WithConversations(convs))
	}

	return server.New(a.factory, opts...).ListenAndServe(ctx, a.cfg.Server.ListenAddr)
}

func (a *app) chat(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	threadID := fs.String("thread", "", "thread id to continue")
	providerName := fs.String("provider", a.cfg.Model.Provider, "provider")
	model := fs.String("model", a.cfg.Model.Name, "model alias")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		return errUsage
	}
	if *threadID == "" {
		*threadID = uuid.NewString()
	}

	cp, closeCP, err := a.checkpointer(ctx)
	if err != nil {
		return err
	}
	defer closeCP()

	client, err := a.factory.Build(*providerName, *model, prebuilt.ChatbotLLMConfig())
	if err != nil {
		return err
	}
	g, err := prebuilt.NewChatbotGraph(client, tool.NewExecutor(a.tools()...),
		prebuilt.WithCheckpointer(cp),
		prebuilt.WithChatbotLogger(a.logs.Logger()))
	if err != nil {
		return err
	}

	out, err := g.InvokeWithConfig(ctx, state.ConversationState{
		ThreadID: *threadID,
		Provider: *providerName,
		MainLLM:  *model,
		Messages: []state.Message{state.Human(message)},
	}, &graph.Config{
		ThreadID:  *threadID,
		Listeners: []graph.NodeListener{graph.LogListener(a.logs.Named("graph"))},
	})
	if err != nil {
		return err
	}

	reply, _ := out.LastMessage()
	if reply.Reasoning != "" {
		fmt.Fprintln(a.stdout, dimStyle.Render(reply.Reasoning))
		fmt.Fprintln(a.stdout)
	}
	fmt.Fprintln(a.stdout, reply.Content)
	fmt.Fprintln(a.stdout, dimStyle.Render("thread "+*threadID))
	return nil
}

func (a *app) suggest(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("suggest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", prebuilt.DefaultNumQuestions, "number of questions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return errUsage
	}

	client, err := a.factory.Build(a.cfg.Model.Provider, a.cfg.Model.Name, prebuilt.SuggestLLMConfig())
	if err != nil {
		return err
	}
	g, err := prebuilt.NewSuggestGraph(client)
	if err != nil {
		return err
	}
	out, err := g.Invoke(ctx, prebuilt.SuggestState{Question: question, NumQuestions: *n})
	if err != nil {
		return err
	}
	for i, q := range out.Suggestions {
		fmt.Fprintf(a.stdout, "%s %s\n", dimStyle.Render(fmt.Sprintf("%d.", i+1)), q)
	}
	return nil
}

func (a *app) models() {
	reg := a.factory.Registry
	if reg == nil {
		reg = registry.Default()
	}
	providers := reg.Providers()
	sort.Strings(providers)
	for _, p := range providers {
		fmt.Fprintln(a.stdout, providerStyle.Render(p))
		for _, d := range reg.Models(p) {
			line := "  " + d.Alias + " " + dimStyle.Render(d.ModelID)
			if d.Reasoning {
				line += " " + badgeStyle.Render("reasoning")
			}
			if d.Agentic {
				line += " " + badgeStyle.Render("tools")
			}
			fmt.Fprintln(a.stdout, line)
		}
	}
}

func (a *app) graph(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	var mermaid string
	switch args[0] {
	case "chatbot":
		client, err := a.factory.Build(a.cfg.Model.Provider, a.cfg.Model.Name, prebuilt.ChatbotLLMConfig())
		if err != nil {
			return err
		}
		g, err := prebuilt.NewChatbotGraph(client, tool.NewExecutor(a.tools()...))
		if err != nil {
			return err
		}
		mermaid = g.DrawMermaid()
	case "orchestrator":
		g, err := prebuilt.NewOrchestratorGraph(a.factory)
		if err != nil {
			return err
		}
		mermaid = g.DrawMermaid()
	case "suggest":
		client, err := a.factory.Build(a.cfg.Model.Provider, a.cfg.Model.Name, prebuilt.SuggestLLMConfig())
		if err != nil {
			return err
		}
		g, err := prebuilt.NewSuggestGraph(client)
		if err != nil {
			return err
		}
		mermaid = g.DrawMermaid()
	default:
		return fmt.Errorf("unknown graph %q", args[0])
	}
	fmt.Fprint(a.stdout, mermaid)
	return nil
}
