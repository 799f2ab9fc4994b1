package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"ncc.gov.ng/nora/internal/chat"
	"ncc.gov.ng/nora/internal/client"
	"ncc.gov.ng/nora/internal/conversation"
	"ncc.gov.ng/nora/internal/store"
)

const helpText = `Commands:
  /mode [name]        show modes or switch to one
  /provider [name]    show providers or switch to one
  /key <provider>     enter an API key for a provider
  /clear              clear this mode's conversation
  /actions [n]        list quick actions, or send action n
  /history            print this mode's conversation
  /voice on|off       read replies aloud
  /help               show this help
  /quit               leave`

func runChat(cmd *cobra.Command, flags *chatFlags) error {
	cfg, kv, err := openStorage()
	if err != nil {
		return err
	}
	defer kv.Close()

	modeName, providerName, gateway := cfg.Mode, cfg.Provider, cfg.GatewayURL
	if flags.mode != "" {
		modeName = flags.mode
	}
	if flags.provider != "" {
		providerName = flags.provider
	}
	if flags.gateway != "" {
		gateway = flags.gateway
	}

	mode, ok := chat.ParseMode(modeName)
	if !ok {
		return fmt.Errorf("unknown mode %q", modeName)
	}
	provider, ok := chat.ParseProvider(providerName)
	if !ok {
		return fmt.Errorf("unknown provider %q", providerName)
	}

	out := cmd.OutOrStdout()
	opts := []conversation.Option{
		conversation.WithChunkHandler(func(chunk string) { fmt.Fprint(out, chunk) }),
	}
	speaker := newSpeaker()
	if speaker != nil {
		opts = append(opts, conversation.WithSpeaker(speaker))
	}

	conv := conversation.New(client.New(gateway, nil), store.NewCredentialStore(kv), mode, provider, opts...)
	if flags.voice {
		if speaker == nil {
			fmt.Fprintln(out, "No speech synthesizer found; voice stays off.")
		} else {
			conv.SetVoiceEnabled(true)
		}
	}

	historyFile := filepath.Join(filepath.Dir(cfg.StoragePath), "history")
	r := newREPL(conv, out, historyFile, speaker != nil)
	defer r.Close()

	return r.Run(cmd.Context())
}

type repl struct {
	conv        *conversation.Store
	line        *liner.State
	out         io.Writer
	historyFile string
	canSpeak    bool
}

func newREPL(conv *conversation.Store, out io.Writer, historyFile string, canSpeak bool) *repl {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &repl{conv: conv, line: line, out: out, historyFile: historyFile, canSpeak: canSpeak}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *repl) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	} else {
		log.Debug().Err(err).Msg("Could not save input history")
	}
	r.line.Close()
}

func (r *repl) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.printBanner()

	for {
		input, err := r.line.Prompt(r.prompt())
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D.
			fmt.Fprintln(r.out)
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(trimmed, "/") {
			if quit := r.command(ctx, trimmed); quit {
				return nil
			}
			continue
		}
		r.send(ctx, input)
	}
}

func (r *repl) prompt() string {
	snap := r.conv.Snapshot()
	return fmt.Sprintf("%s@%s> ", snap.Mode, snap.Provider)
}

func (r *repl) printBanner() {
	snap := r.conv.Snapshot()
	info := snap.Mode.Info()
	fmt.Fprintf(r.out, "%s | %s\n", info.Label, info.Description)
	fmt.Fprintf(r.out, "Provider: %s. Type /help for commands.\n", snap.Provider.Info().Name)
	r.printQuickActions()
}

// send submits text and streams the reply. Ctrl+C while streaming abandons
// the reply and clears the conversation.
func (r *repl) send(ctx context.Context, text string) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			r.conv.Clear()
			fmt.Fprintln(r.out, "\n[cancelled, conversation cleared]")
		case <-done:
		}
	}()

	err := r.conv.Submit(ctx, text)
	close(done)
	signal.Stop(sigs)
	fmt.Fprintln(r.out)

	if err == nil {
		return
	}
	snap := r.conv.Snapshot()
	fmt.Fprintf(r.out, "error: %s\n", snap.Error)
	if snap.CredentialPrompt {
		r.promptCredential(snap.Provider)
	}
	r.conv.DismissError()
}

func (r *repl) promptCredential(p chat.Provider) {
	if !p.RequiresAPIKey() {
		// Server-side key; nothing to enter here.
		r.conv.SaveCredential(p, "")
		return
	}
	secret, err := r.line.PasswordPrompt(fmt.Sprintf("%s API key (empty to cancel): ", p.Info().Name))
	if err != nil {
		secret = ""
	}
	if err := r.conv.SaveCredential(p, secret); err != nil {
		fmt.Fprintf(r.out, "error: could not save key: %v\n", err)
		return
	}
	if strings.TrimSpace(secret) != "" {
		fmt.Fprintf(r.out, "Saved %s API key. Now using %s.\n", p.Info().Name, p.Info().Name)
	}
}

// command runs a slash command and reports whether the session should end.
func (r *repl) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(r.out, helpText)

	case "/mode":
		if len(args) == 0 {
			active := r.conv.Snapshot().Mode
			for _, m := range chat.Modes() {
				marker := " "
				if m == active {
					marker = "*"
				}
				fmt.Fprintf(r.out, "%s %-13s %s\n", marker, m, m.Info().Description)
			}
			return false
		}
		mode := chat.Mode(strings.ToLower(args[0]))
		if err := r.conv.SwitchMode(mode); err != nil {
			fmt.Fprintf(r.out, "error: %v %q\n", err, args[0])
			return false
		}
		info := mode.Info()
		fmt.Fprintf(r.out, "%s | %s (%d messages)\n", info.Label, info.Description, len(r.conv.Messages()))
		r.printQuickActions()

	case "/provider":
		if len(args) == 0 {
			active := r.conv.Snapshot().Provider
			for _, p := range chat.Providers() {
				marker := " "
				if p == active {
					marker = "*"
				}
				fmt.Fprintf(r.out, "%s %-8s %s\n", marker, p, p.Info().Description)
			}
			return false
		}
		p := chat.Provider(strings.ToLower(args[0]))
		switch err := r.conv.SelectProvider(p); {
		case errors.Is(err, conversation.ErrCredentialRequired):
			r.promptCredential(p)
		case err != nil:
			fmt.Fprintf(r.out, "error: %v %q\n", err, args[0])
		default:
			fmt.Fprintf(r.out, "Now using %s.\n", p.Info().Name)
		}

	case "/key":
		if len(args) != 1 {
			fmt.Fprintln(r.out, "usage: /key <provider>")
			return false
		}
		p := chat.Provider(strings.ToLower(args[0]))
		if !p.Valid() {
			fmt.Fprintf(r.out, "error: %v %q\n", conversation.ErrUnknownProvider, args[0])
			return false
		}
		if !p.RequiresAPIKey() {
			fmt.Fprintf(r.out, "%s does not need an API key.\n", p.Info().Name)
			return false
		}
		r.promptCredential(p)

	case "/clear":
		r.conv.Clear()
		fmt.Fprintln(r.out, "Conversation cleared.")

	case "/actions":
		actions := r.conv.QuickActions()
		if len(args) == 0 {
			r.printQuickActions()
			return false
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(actions) {
			fmt.Fprintf(r.out, "error: no quick action %q\n", args[0])
			return false
		}
		fmt.Fprintf(r.out, "> %s\n", actions[n-1])
		r.send(ctx, actions[n-1])

	case "/history":
		for _, m := range r.conv.Messages() {
			who := "you"
			if m.Role == chat.RoleAssistant {
				who = "nora"
			}
			fmt.Fprintf(r.out, "[%s] %s: %s\n", m.CreatedAt.Format("15:04"), who, m.Content)
		}

	case "/voice":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			fmt.Fprintln(r.out, "usage: /voice on|off")
			return false
		}
		if args[0] == "on" && !r.canSpeak {
			fmt.Fprintln(r.out, "No speech synthesizer found; voice stays off.")
			return false
		}
		r.conv.SetVoiceEnabled(args[0] == "on")
		fmt.Fprintf(r.out, "Voice %s.\n", args[0])

	default:
		fmt.Fprintf(r.out, "Unknown command %s. Type /help.\n", name)
	}
	return false
}

func (r *repl) printQuickActions() {
	actions := r.conv.QuickActions()
	if len(actions) == 0 {
		return
	}
	fmt.Fprintln(r.out, "Quick actions (send with /actions <n>):")
	for i, a := range actions {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, a)
	}
}
