// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chatkeep - a terminal client for streaming chat conversations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/avelark/chatkeep/internal/api"
	"github.com/avelark/chatkeep/internal/chat"
	"github.com/avelark/chatkeep/internal/config"
	"github.com/avelark/chatkeep/internal/model"
	"github.com/avelark/chatkeep/internal/session"
	"github.com/avelark/chatkeep/internal/storage"
	"github.com/avelark/chatkeep/internal/util"
)

// Version information (set at build time)
var (
	Version = "0.1.0"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"})

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"})

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"})
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// inputCLI provides input history and line editing for the REPL.
type inputCLI struct {
	line        *liner.State
	historyFile string
}

func newInputCLI() *inputCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	cli := &inputCLI{
		line:        line,
		historyFile: filepath.Join(dir, "input_history"),
	}
	if f, err := os.Open(cli.historyFile); err == nil {
		cli.line.ReadHistory(f)
		f.Close()
	}
	return cli
}

func (c *inputCLI) readInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

func (c *inputCLI) close() {
	if err := config.EnsureDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// APPLICATION
// =============================================================================

// app wires the session state, conversation store and controller together
// for the REPL.
type app struct {
	cfg        *config.Config
	state      *session.State
	store      *chat.Store
	controller *chat.Controller
	input      *inputCLI
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath, err = storage.DefaultPath()
		if err != nil {
			return err
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer db.Close()

	state := session.NewState()
	store := chat.NewStore(state, db)
	if err := store.LoadInitial(); err != nil {
		return err
	}

	// Config supplies fallbacks for preferences the store has no record of.
	// They are not written through: only explicit user changes persist.
	if state.APIKey() == "" && cfg.API.Key != "" {
		state.SetAPIKey(cfg.API.Key)
	}
	if state.Theme() == "" {
		state.SetTheme(cfg.UI.Theme)
	}
	if !cfg.UI.ShowSidebar && state.ShowSidebar() {
		state.ToggleSidebar()
	}

	client := api.NewClient(&api.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           time.Duration(cfg.API.TimeoutSecs) * time.Second,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
	})
	controller := chat.NewController(store, state, client)

	a := &app{
		cfg:        cfg,
		state:      state,
		store:      store,
		controller: controller,
		input:      newInputCLI(),
	}
	defer a.input.close()

	// Refresh the model catalog in the background; chat works without it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := controller.FetchModels(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%s model catalog unavailable: %v\n", warningStyle.Render("[Warning]"), err)
		}
	}()

	// Hot-reload theme and markdown settings when the config file changes
	if tomlPath, err := config.PathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			watcher, err := config.NewWatcher(tomlPath, func(reloaded *config.Config) {
				a.cfg.UI = reloaded.UI
				state.SetTheme(reloaded.UI.Theme)
			})
			if err == nil {
				if err := watcher.Watch(); err == nil {
					defer watcher.Close()
				}
			}
		}
	}

	// Ctrl+C during a stream cancels generation; the partial reply stands
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigChan {
			if state.MessageStreaming() {
				controller.StopGenerating()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Stopped]"))
			}
		}
	}()

	a.printWelcome()
	return a.repl()
}

// =============================================================================
// REPL
// =============================================================================

func (a *app) printWelcome() {
	fmt.Println(welcomeStyle.Render("chatkeep " + Version))
	selected := a.state.Selected()
	fmt.Println(infoStyle.Render(fmt.Sprintf("%s · model %s · /help for commands", selected.Name, selected.Model.ID)))
	fmt.Println()
}

func (a *app) repl() error {
	for {
		input, err := a.input.readInput(promptStyle.Render("chatkeep> "))
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C at prompt) or EOF (Ctrl+D)
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := a.handleCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := a.sendMessage(input, 0); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// sendMessage streams a reply to a user message. With markdown rendering
// enabled the reply is collected and rendered once complete; otherwise
// chunks stream to stdout as they arrive.
func (a *app) sendMessage(content string, deleteCount int) error {
	useMarkdown := a.cfg.UI.RenderMarkdown && markdownRenderer != nil

	printed := 0
	a.controller.OnSnapshot = func(snapshot model.Conversation) {
		if useMarkdown {
			return
		}
		last, ok := snapshot.LastMessage()
		if !ok {
			return
		}
		fmt.Print(last.Content[printed:])
		printed = len(last.Content)
	}
	defer func() { a.controller.OnSnapshot = nil }()

	fmt.Println()
	if err := a.controller.Send(context.Background(), content, deleteCount); err != nil {
		return err
	}

	if useMarkdown {
		if last, ok := a.state.Selected().LastMessage(); ok && last.Role == model.RoleAssistant {
			fmt.Print(renderMarkdown(last.Content))
		}
	}
	fmt.Println()
	return nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func (a *app) handleCommand(input string) (quit bool, err error) {
	fields := strings.Fields(input)
	command := fields[0]
	args := fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(input, command))

	switch command {
	case "/help", "/h":
		a.printHelp()
	case "/quit", "/q", "/exit":
		return true, nil
	case "/new":
		return false, a.cmdNew()
	case "/list", "/ls":
		a.cmdList()
	case "/select":
		return false, a.cmdSelect(args)
	case "/rename":
		return false, a.cmdRename(rest)
	case "/model":
		return false, a.cmdModel(args)
	case "/prompt":
		return false, a.cmdPrompt(rest)
	case "/edit":
		return false, a.cmdEdit(args)
	case "/delete", "/del":
		return false, a.cmdDelete(args)
	case "/clear":
		return false, a.cmdClear()
	case "/folder":
		return false, a.cmdFolder(args)
	case "/move":
		return false, a.cmdMove(args)
	case "/models":
		a.cmdModels()
	case "/key":
		return false, a.cmdKey(rest)
	case "/theme":
		return false, a.cmdTheme(args)
	case "/export":
		return false, a.cmdExport(args)
	case "/import":
		return false, a.cmdImport(args)
	case "/history":
		a.cmdHistory()
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", command)
	}
	return false, nil
}

func (a *app) printHelp() {
	help := [][2]string{
		{"/new", "start a new conversation"},
		{"/list", "list conversations"},
		{"/select <id>", "switch to a conversation"},
		{"/rename <name>", "rename the current conversation"},
		{"/model [id]", "show or switch the completion model"},
		{"/prompt <text>", "set the system prompt"},
		{"/edit <index> <text>", "edit an earlier message and resend"},
		{"/delete [id]", "delete a conversation (default: current)"},
		{"/clear", "delete all conversations and folders"},
		{"/folder list|new|rename|delete", "manage folders"},
		{"/move <folderId>", "file the current conversation (0 unfiles)"},
		{"/models", "list available models"},
		{"/key <key>", "set the API credential"},
		{"/theme dark|light", "switch color theme"},
		{"/export <file>", "export conversations and folders"},
		{"/import <file>", "import a previous export"},
		{"/history", "show the current conversation"},
		{"/quit", "exit"},
	}
	for _, entry := range help {
		fmt.Printf("  %s %s\n", selectedStyle.Render(util.PadRight(entry[0], 34)), infoStyle.Render(entry[1]))
	}
	fmt.Println(infoStyle.Render("  Ctrl+C during a reply stops generating and keeps the partial text."))
}

func (a *app) cmdNew() error {
	descriptor, ok := model.Lookup(a.cfg.DefaultModel)
	if !ok {
		descriptor = model.Default()
	}
	conv, err := a.store.NewConversation(descriptor, model.DefaultSystemPrompt)
	if err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("started " + conv.Name))
	return nil
}

func (a *app) cmdList() {
	conversations := a.state.Conversations()
	if len(conversations) == 0 {
		fmt.Println(infoStyle.Render("no conversations yet — just type a message"))
		return
	}
	folders := make(map[int]string)
	for _, folder := range a.state.Folders() {
		folders[folder.ID] = folder.Name
	}
	selectedID := a.state.Selected().ID
	for _, conv := range conversations {
		name := util.PadRight(util.Ellipsize(conv.Name, 40), 44)
		line := fmt.Sprintf("[%d] %s %d messages", conv.ID, name, conv.MessageCount())
		if folderName, ok := folders[conv.FolderID]; ok {
			line += "  (" + folderName + ")"
		}
		if conv.ID == selectedID {
			fmt.Println(selectedStyle.Render("* " + line))
		} else {
			fmt.Println("  " + line)
		}
	}
}

func (a *app) cmdSelect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /select <id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}
	if err := a.store.SelectConversation(id); err != nil {
		return err
	}
	selected := a.state.Selected()
	if selected.ID != id {
		fmt.Println(warningStyle.Render(fmt.Sprintf("no conversation with id %d", id)))
		return nil
	}
	fmt.Println(infoStyle.Render("switched to " + selected.Name))
	return nil
}

func (a *app) cmdRename(name string) error {
	if name == "" {
		return fmt.Errorf("usage: /rename <name>")
	}
	return a.store.RenameConversation(a.state.Selected().ID, name)
}

func (a *app) cmdModel(args []string) error {
	if len(args) == 0 {
		fmt.Println(infoStyle.Render("model: " + a.state.Selected().Model.ID))
		return nil
	}
	descriptor, ok := model.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown model %q (see /models)", args[0])
	}
	return a.store.SetConversationModel(a.state.Selected().ID, descriptor)
}

func (a *app) cmdPrompt(prompt string) error {
	if prompt == "" {
		return fmt.Errorf("usage: /prompt <text>")
	}
	return a.store.SetConversationPrompt(a.state.Selected().ID, prompt)
}

func (a *app) cmdEdit(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: /edit <index> <text>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		return fmt.Errorf("invalid message index %q", args[0])
	}
	content := strings.Join(args[1:], " ")

	useMarkdown := a.cfg.UI.RenderMarkdown && markdownRenderer != nil
	printed := 0
	a.controller.OnSnapshot = func(snapshot model.Conversation) {
		if useMarkdown {
			return
		}
		if last, ok := snapshot.LastMessage(); ok {
			fmt.Print(last.Content[printed:])
			printed = len(last.Content)
		}
	}
	defer func() { a.controller.OnSnapshot = nil }()

	fmt.Println()
	if err := a.controller.EditAndResend(context.Background(), index, content); err != nil {
		return err
	}
	if useMarkdown {
		if last, ok := a.state.Selected().LastMessage(); ok && last.Role == model.RoleAssistant {
			fmt.Print(renderMarkdown(last.Content))
		}
	}
	fmt.Println()
	return nil
}

func (a *app) cmdDelete(args []string) error {
	id := a.state.Selected().ID
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		id = parsed
	}
	if err := a.store.DeleteConversation(id); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("deleted conversation %d, now on %s", id, a.state.Selected().Name)))
	return nil
}

func (a *app) cmdClear() error {
	confirm, err := a.input.readInput(warningStyle.Render("delete all conversations and folders? [y/N] "))
	if err != nil || !strings.EqualFold(strings.TrimSpace(confirm), "y") {
		fmt.Println(infoStyle.Render("cancelled"))
		return nil
	}
	if err := a.store.ClearAll(); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("cleared"))
	return nil
}

func (a *app) cmdFolder(args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		folders := a.state.Folders()
		if len(folders) == 0 {
			fmt.Println(infoStyle.Render("no folders"))
			return nil
		}
		for _, folder := range folders {
			fmt.Printf("  [%d] %s\n", folder.ID, folder.Name)
		}
		return nil
	case "new":
		if len(args) < 2 {
			return fmt.Errorf("usage: /folder new <name>")
		}
		folder, err := a.store.CreateFolder(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println(infoStyle.Render(fmt.Sprintf("created folder [%d] %s", folder.ID, folder.Name)))
		return nil
	case "rename":
		if len(args) < 3 {
			return fmt.Errorf("usage: /folder rename <id> <name>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid folder id %q", args[1])
		}
		return a.store.RenameFolder(id, strings.Join(args[2:], " "))
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: /folder delete <id>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid folder id %q", args[1])
		}
		return a.store.DeleteFolder(id)
	default:
		return fmt.Errorf("usage: /folder list|new|rename|delete")
	}
}

func (a *app) cmdMove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /move <folderId>")
	}
	folderID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid folder id %q", args[0])
	}
	return a.store.MoveToFolder(a.state.Selected().ID, folderID)
}

func (a *app) cmdModels() {
	models := a.state.Models()
	if len(models) == 0 {
		if a.state.ModelError() {
			fmt.Println(warningStyle.Render("model catalog unavailable (check /key and the endpoint)"))
		} else {
			fmt.Println(infoStyle.Render("model catalog not fetched yet"))
		}
		// The static catalog still works for /model
		for _, descriptor := range model.Catalog {
			fmt.Printf("  %s %s\n", util.PadRight(descriptor.ID, 20), infoStyle.Render(descriptor.Name))
		}
		return
	}
	current := a.state.Selected().Model.ID
	for _, descriptor := range models {
		line := fmt.Sprintf(" %s %s", util.PadRight(descriptor.ID, 20), descriptor.Name)
		if descriptor.ID == current {
			fmt.Println(selectedStyle.Render("*" + line))
		} else {
			fmt.Println(" " + line)
		}
	}
}

func (a *app) cmdKey(key string) error {
	if key == "" {
		return fmt.Errorf("usage: /key <credential>")
	}
	if err := a.store.SetAPIKey(key); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("credential stored"))
	// A fresh key may unlock the catalog
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.controller.FetchModels(ctx)
	}()
	return nil
}

func (a *app) cmdTheme(args []string) error {
	if len(args) != 1 || (args[0] != "dark" && args[0] != "light") {
		return fmt.Errorf("usage: /theme dark|light")
	}
	return a.store.SetTheme(args[0])
}

func (a *app) cmdExport(args []string) error {
	path := "chatkeep-export.json"
	if len(args) == 1 {
		path = args[0]
	}
	data, err := a.store.ExportData()
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("exported to " + path))
	return nil
}

func (a *app) cmdImport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := a.store.ImportData(data); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("imported %d conversations", len(a.state.Conversations()))))
	return nil
}

func (a *app) cmdHistory() {
	selected := a.state.Selected()
	fmt.Println(welcomeStyle.Render(selected.Name))
	if selected.IsEmpty() {
		fmt.Println(infoStyle.Render("no messages yet"))
		return
	}
	useMarkdown := a.cfg.UI.RenderMarkdown && markdownRenderer != nil
	for i, msg := range selected.Messages {
		switch msg.Role {
		case model.RoleUser:
			fmt.Printf("%s %s\n", userStyle.Render(fmt.Sprintf("[%d] %s:", i, msg.Role.DisplayName())), msg.Content)
		case model.RoleAssistant:
			fmt.Println(assistantStyle.Render(fmt.Sprintf("[%d] %s:", i, msg.Role.DisplayName())))
			if useMarkdown {
				fmt.Print(renderMarkdown(msg.Content))
			} else {
				fmt.Println(msg.Content)
			}
		}
	}
}
