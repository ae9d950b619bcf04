package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nightwatch-astro/nightwatch/internal/agent"
	"github.com/nightwatch-astro/nightwatch/internal/astro"
	"github.com/nightwatch-astro/nightwatch/internal/catalog"
	"github.com/nightwatch-astro/nightwatch/internal/config"
	"github.com/nightwatch-astro/nightwatch/internal/providers"
	"github.com/nightwatch-astro/nightwatch/internal/sessions"
	"github.com/nightwatch-astro/nightwatch/internal/tools"
)

var (
	stylePrompt    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleTool      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleToolError = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleAnswer    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	styleNotice    = lipgloss.NewStyle().Faint(true)
)

func chatCmd() *cobra.Command {
	var (
		agentName  string
		message    string
		sessionKey string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the observation planning agent",
		Run: func(cmd *cobra.Command, args []string) {
			runChat(agentName, message, sessionKey)
		},
	}
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent profile (default: config default)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and exit")
	cmd.Flags().StringVarP(&sessionKey, "session", "s", "", "session key (default: auto-generated)")
	return cmd
}

func runChat(agentName, message, sessionKey string) {
	cfg := loadConfigOrExit()
	agentName = agentForSession(agentName, sessionKey)
	if sessionKey == "" {
		sessionKey = sessions.BuildSessionKey(agentName, "cli", sessions.PeerDirect, "local")
	}

	rt, err := newChatRuntime(cfg, agentName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	// One-shot mode.
	if message != "" {
		res, err := rt.Loop().Run(context.Background(), agent.RunRequest{
			SessionKey: sessionKey,
			Message:    message,
			RunID:      "cli-" + uuid.NewString()[:8],
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(res.Content)
		return
	}

	runREPL(rt, cfg, agentName, sessionKey)
}

func runREPL(rt *chatRuntime, cfg *config.Config, agentName, sessionKey string) {
	watcher, err := config.NewWatcher(resolveConfigPath())
	if err == nil {
		watcher.OnChange(rt.QueueConfig)
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}
	}

	spec := cfg.ResolveAgent(agentName)
	fmt.Fprintln(os.Stderr, stylePrompt.Render("nightwatch"))
	fmt.Fprintln(os.Stderr, styleNotice.Render(fmt.Sprintf("Model: %s | Site: %s", spec.Model, cfg.Observer.Location)))
	fmt.Fprintln(os.Stderr, styleNotice.Render(fmt.Sprintf("Session: %s", sessionKey)))
	fmt.Fprintln(os.Stderr, styleNotice.Render(`Type "exit" to quit, "/new" for a fresh session`))
	fmt.Fprintln(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var totalUsage providers.Usage
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			printGoodbye(totalUsage)
			return
		default:
		}

		fmt.Fprint(os.Stderr, stylePrompt.Render("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		switch classifyInput(input) {
		case inputEmpty:
			continue
		case inputExit:
			printGoodbye(totalUsage)
			return
		case inputNewSession:
			sessionKey = sessions.BuildSessionKey(agentName, "cli", sessions.PeerDirect, uuid.NewString()[:8])
			fmt.Fprintln(os.Stderr, styleNotice.Render("New session: "+sessionKey))
			fmt.Fprintln(os.Stderr)
			continue
		}

		rt.ApplyPendingConfig(agentName)

		res, err := rt.Loop().Run(ctx, agent.RunRequest{
			SessionKey: sessionKey,
			Message:    input,
			RunID:      "cli-" + uuid.NewString()[:8],
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n\n", styleToolError.Render("Error: "+err.Error()))
			continue
		}
		totalUsage.Add(res.Usage)
		fmt.Printf("\n%s\n\n", styleAnswer.Render(res.Content))
	}
	printGoodbye(totalUsage)
}

type inputKind int

const (
	inputMessage inputKind = iota
	inputEmpty
	inputExit
	inputNewSession
)

// agentForSession keeps the --agent flag authoritative; without it, an
// explicit session key routes by its agent segment.
func agentForSession(agentName, sessionKey string) string {
	if agentName != "" || sessionKey == "" {
		return agentName
	}
	return sessions.Agent(sessionKey)
}

// classifyInput decides what a REPL line means before anything reaches
// the model. Exit tokens match case-insensitively; blank lines re-prompt.
func classifyInput(input string) inputKind {
	switch {
	case input == "":
		return inputEmpty
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return inputExit
	case input == "/new":
		return inputNewSession
	}
	return inputMessage
}

func printGoodbye(usage providers.Usage) {
	fmt.Fprintln(os.Stderr)
	if usage.TotalTokens > 0 {
		fmt.Fprintln(os.Stderr, styleNotice.Render(fmt.Sprintf(
			"Tokens: %d prompt, %d completion, %d total",
			usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)))
	}
	fmt.Fprintln(os.Stderr, "Goodbye!")
}

// chatRuntime owns the loop and catalog store, and swaps them out when the
// config file changes between turns.
type chatRuntime struct {
	mu      sync.Mutex
	loop    *agent.Loop
	store   *catalog.Store
	pending *config.Config
}

func newChatRuntime(cfg *config.Config, agentName string) (*chatRuntime, error) {
	rt := &chatRuntime{}
	if err := rt.rebuild(cfg, agentName); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *chatRuntime) Loop() *agent.Loop {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.loop
}

// QueueConfig stages a freshly loaded config; it is applied before the
// next turn so a reload never races an in-flight run.
func (rt *chatRuntime) QueueConfig(cfg *config.Config) {
	rt.mu.Lock()
	rt.pending = cfg
	rt.mu.Unlock()
}

func (rt *chatRuntime) ApplyPendingConfig(agentName string) {
	rt.mu.Lock()
	cfg := rt.pending
	rt.pending = nil
	rt.mu.Unlock()
	if cfg == nil {
		return
	}
	if err := rt.rebuild(cfg, agentName); err != nil {
		fmt.Fprintln(os.Stderr, styleToolError.Render("Config reload failed: "+err.Error()))
		return
	}
	fmt.Fprintln(os.Stderr, styleNotice.Render("Configuration reloaded."))
}

func (rt *chatRuntime) rebuild(cfg *config.Config, agentName string) error {
	loop, store, err := bootstrapAgent(cfg, agentName)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	old := rt.store
	rt.loop = loop
	rt.store = store
	rt.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func (rt *chatRuntime) Close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.store != nil {
		rt.store.Close()
	}
}

// bootstrapAgent wires provider, catalog and tools into a ready loop.
func bootstrapAgent(cfg *config.Config, agentName string) (*agent.Loop, *catalog.Store, error) {
	spec := cfg.ResolveAgent(agentName)

	apiKey, err := cfg.ResolveCredential()
	if err != nil {
		return nil, nil, err
	}
	provider := providers.NewOpenAIProvider(
		cfg.Provider.Name, apiKey, cfg.Provider.APIBase, spec.Model, cfg.Provider.Timeout())

	store, err := openCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}

	reg := tools.NewRegistry()
	reg.MustRegister(tools.NewGreetTool())
	reg.MustRegister(tools.NewCurrentTimeTool(cfg.Observer.Timezone))
	reg.MustRegister(tools.NewToUTCTool(cfg.Observer.Timezone))
	reg.MustRegister(tools.NewEquipmentTool())
	reg.MustRegister(tools.NewDSOTool(store, cfg.Observer.ToObserver()))
	if rl := tools.NewRateLimiter(cfg.Limits.ToolRatePerMin); rl != nil {
		reg.SetRateLimiter(rl)
	}

	var eventMu sync.Mutex
	onEvent := func(evt agent.Event) {
		eventMu.Lock()
		defer eventMu.Unlock()
		switch evt.Type {
		case agent.EventToolCall:
			fmt.Fprintln(os.Stderr, styleTool.Render("  [tool] "+evt.Tool))
		case agent.EventToolResult:
			if evt.IsError {
				fmt.Fprintln(os.Stderr, styleToolError.Render("  [tool] "+evt.Tool+" -> error"))
			}
		}
	}

	loop := agent.NewLoop(agent.LoopConfig{
		ID:               config.NormalizeAgentID(agentName),
		Provider:         provider,
		Model:            spec.Model,
		SystemPrompt:     buildSystemPrompt(cfg, spec),
		MaxToolRounds:    cfg.Limits.MaxToolRounds,
		MaxHistoryTokens: cfg.Limits.MaxHistoryTokens,
		Pruning:          cfg.Pruning,
		Tools:            reg,
		InjectionAction:  cfg.Guard.Action,
		OnEvent:          onEvent,
	})
	return loop, store, nil
}

func openCatalog(cfg *config.Config) (*catalog.Store, error) {
	path := config.ExpandHome(cfg.Catalog.DBPath)
	if dir := filepath.Dir(path); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	store, err := catalog.Open(path)
	if err != nil {
		return nil, err
	}
	n, err := store.Count(context.Background())
	if err != nil {
		store.Close()
		return nil, err
	}
	if n == 0 {
		if err := store.SeedDefault(); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

// buildSystemPrompt composes the agent instructions with the configured
// observing defaults, so the model can fill in what the user leaves out.
func buildSystemPrompt(cfg *config.Config, spec config.AgentSpec) string {
	var b strings.Builder
	if spec.SystemPrompt != "" {
		b.WriteString(spec.SystemPrompt)
	} else {
		b.WriteString("You are nightwatch, an assistant for planning amateur astronomy sessions. " +
			"Use the search_dso tool to query the localized deep space object catalog, " +
			"lookup_equipment for telescope and camera specs and framing, and the time tools for conversions. ")
		fmt.Fprintf(&b, "Prefer objects above 30 degrees altitude with air mass under %.1f unless the user asks otherwise.",
			astro.MaxUsefulAirmass)
	}
	fmt.Fprintf(&b, "\n\nDefaults when the user gives none:\n")
	fmt.Fprintf(&b, "- location: %s (lat %.4f, lon %.4f)\n", cfg.Observer.Location, cfg.Observer.Latitude, cfg.Observer.Longitude)
	fmt.Fprintf(&b, "- timezone: %s, observing time: %s local\n", cfg.Observer.Timezone, cfg.Observer.Time)
	fmt.Fprintf(&b, "- telescope: %s\n", cfg.Equipment.Telescope)
	fmt.Fprintf(&b, "- camera: %s\n", cfg.Equipment.Camera)
	return b.String()
}
