package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"ncc.gov.ng/nora/internal/chat"
	"ncc.gov.ng/nora/internal/config"
	"ncc.gov.ng/nora/internal/logging"
	"ncc.gov.ng/nora/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type chatFlags struct {
	mode     string
	provider string
	gateway  string
	voice    bool
}

func newRootCmd() *cobra.Command {
	flags := &chatFlags{}

	root := &cobra.Command{
		Use:          "nora",
		Short:        "Chat with NORA, the NCC Online Response AI",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, flags)
		},
	}
	addChatFlags(root, flags)

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, flags)
		},
	}
	addChatFlags(chatCmd, flags)

	root.AddCommand(chatCmd, newKeyCmd(), newModesCmd(), newProvidersCmd())
	return root
}

func addChatFlags(cmd *cobra.Command, flags *chatFlags) {
	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "", "conversation mode (overrides NORA_MODE)")
	cmd.Flags().StringVarP(&flags.provider, "provider", "p", "", "completion provider (overrides NORA_PROVIDER)")
	cmd.Flags().StringVar(&flags.gateway, "gateway", "", "gateway base URL (overrides NORA_GATEWAY_URL)")
	cmd.Flags().BoolVar(&flags.voice, "voice", false, "read replies aloud")
}

// openStorage loads the client configuration and opens local storage.
func openStorage() (*config.ClientConfig, store.KV, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cfg.LogLevel)

	kv, err := store.Open(cfg.StorageDriver, cfg.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local storage: %w", err)
	}
	return cfg, kv, nil
}

func newKeyCmd() *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage stored provider API keys",
	}

	keyCmd.AddCommand(&cobra.Command{
		Use:   "set <provider> <secret>",
		Short: "Store the API key for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := chat.ParseProvider(args[0])
			if !ok || args[0] == "" {
				return fmt.Errorf("unknown provider %q", args[0])
			}
			if !p.RequiresAPIKey() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s does not need an API key.\n", p.Info().Name)
				return nil
			}
			secret := strings.TrimSpace(args[1])
			if secret == "" {
				return fmt.Errorf("API key must not be empty")
			}

			_, kv, err := openStorage()
			if err != nil {
				return err
			}
			defer kv.Close()

			creds := store.NewCredentialStore(kv)
			stored := creds.Load()
			stored[p] = secret
			if err := creds.Save(stored); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key.\n", p.Info().Name)
			return nil
		},
	})

	keyCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show which providers have a stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, kv, err := openStorage()
			if err != nil {
				return err
			}
			defer kv.Close()

			stored := store.NewCredentialStore(kv).Load()
			out := cmd.OutOrStdout()
			for _, p := range chat.Providers() {
				switch {
				case !p.RequiresAPIKey():
					fmt.Fprintf(out, "  %-8s not required\n", p)
				case stored[p] != "":
					fmt.Fprintf(out, "  %-8s %s\n", p, maskKey(stored[p]))
				default:
					fmt.Fprintf(out, "  %-8s not set\n", p)
				}
			}
			return nil
		},
	})
	return keyCmd
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List conversation modes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, m := range chat.Modes() {
				info := m.Info()
				fmt.Fprintf(out, "  %-13s %-13s %s\n", m, info.Label, info.Description)
			}
		},
	}
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List completion providers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, p := range chat.Providers() {
				info := p.Info()
				fmt.Fprintf(out, "  %-8s %-8s %s", p, info.Name, info.Description)
				if info.RequiresAPIKey {
					fmt.Fprint(out, " (API key required)")
				}
				fmt.Fprintln(out)
			}
		},
	}
}
