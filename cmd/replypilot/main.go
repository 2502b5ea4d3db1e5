package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/intent"
	"github.com/stellarlinkco/replypilot/internal/logging"
	"github.com/stellarlinkco/replypilot/internal/policy"
	"github.com/stellarlinkco/replypilot/internal/profile"
	"github.com/stellarlinkco/replypilot/internal/store"
	"github.com/stellarlinkco/replypilot/internal/templates"
)

// app carries what PersistentPreRunE builds for the subcommands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	verbose bool
	run     RunOptions
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "replypilot",
		Short:         "replypilot - drafts policy-checked chat replies for manual sending",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				cfg, err := config.LoadConfig()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				a.cfg = cfg
			}
			if a.logger == nil {
				level := a.cfg.Log.DebugLevel
				if a.verbose {
					level = 2
				}
				logger, err := logging.New(logging.Options{DebugLevel: level, File: a.cfg.Log.File, Console: true})
				if err != nil {
					return err
				}
				a.logger = logger
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCmd(a),
		newDraftCmd(a),
		newClassifyCmd(a),
		newFilterCmd(a),
		newCheckCmd(a),
		newOnboardCmd(a),
		newStatusCmd(a),
		newExtractCmd(a),
		newSchemaCmd(a),
	)
	return root
}

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newDraftCmd(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Build a template-only reply for a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("--message is required")
			}
			composer, _, err := a.composer()
			if err != nil {
				return err
			}
			d := composer.Compose(templates.DraftInput{Text: message, Now: time.Now()})
			res := policy.New(policy.Options{MaxLength: a.cfg.Policy.MaxLength, MaxPasses: a.cfg.Policy.MaxPasses}).Enforce(d.Text)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Text)
			fmt.Fprintf(out, "\nintent: %s (%.2f)\n", d.Intent.Intent, d.Intent.Confidence)
			if fired := res.Flags.Fired(); len(fired) > 0 {
				fmt.Fprintf(out, "flags: %s\n", strings.Join(fired, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "inbound message")
	return cmd
}

func newClassifyCmd(a *app) *cobra.Command {
	var message string
	var recent []string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the intent of a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := intent.New(intent.Options{ContextTurns: a.cfg.Policy.ContextTurns})
			return printJSON(cmd.OutOrStdout(), c.Classify(message, recent))
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to classify")
	cmd.Flags().StringArrayVarP(&recent, "recent", "r", nil, "earlier message, oldest first (repeatable)")
	return cmd
}

func newFilterCmd(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Run text through the compliance filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := policy.New(policy.Options{MaxLength: a.cfg.Policy.MaxLength, MaxPasses: a.cfg.Policy.MaxPasses})
			res := f.Enforce(message)
			return printJSON(cmd.OutOrStdout(), struct {
				Text    string   `json:"text"`
				Flags   []string `json:"flags"`
				Passes  int      `json:"passes"`
				Blocked bool     `json:"blocked"`
			}{res.Text, res.Flags.Fired(), res.Passes, res.Blocked})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "text to filter")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
			problems := a.cfg.Validate()
			for _, p := range problems {
				fmt.Fprintf(out, "  %s\n", p)
			}
			if config.HasErrors(problems) {
				return fmt.Errorf("configuration has errors")
			}
			fmt.Fprintln(out, "Config OK")
			return nil
		},
	}
}

func newOnboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Initialize config and template pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfgPath := config.ConfigPath()
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := config.SaveConfig(config.DefaultConfig()); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
				fmt.Fprintf(out, "Created config: %s\n", cfgPath)
			} else {
				fmt.Fprintf(out, "Config already exists: %s\n", cfgPath)
			}

			if path := a.cfg.Templates.Path; path != "" {
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return fmt.Errorf("create template dir: %w", err)
				}
				writeIfNotExists(out, path, defaultTemplatesYAML)
			}

			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintf(out, "  1. Edit %s or set REPLYPILOT_CHAT_USERNAME / REPLYPILOT_CHAT_PASSWORD\n", cfgPath)
			fmt.Fprintln(out, "  2. Set GEMINI_API_KEY, or choose another provider with --provider")
			fmt.Fprintln(out, "  3. Run 'replypilot check', then 'replypilot run'")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and archive status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg := a.cfg
			fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
			fmt.Fprintf(out, "Provider: %s (%s)\n", cfg.Provider.Type, cfg.ProviderModel())
			fmt.Fprintf(out, "API Key: %s\n", maskKey(cfg.Provider.APIKey))
			fmt.Fprintf(out, "Chat user: %s\n", valueOr(cfg.Chat.Username, "not set"))
			fmt.Fprintf(out, "Telegram: enabled=%v\n", cfg.Notify.Telegram.Enabled)

			if _, err := os.Stat(cfg.Store.Path); err != nil {
				fmt.Fprintln(out, "Archive: not found (run 'replypilot run' first)")
				return nil
			}
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Archive: %s\n", cfg.Store.Path)
			fmt.Fprintf(out, "  messages: %d (in %d, out %d)\n", stats.Messages, stats.Inbound, stats.Outbound)
			fmt.Fprintf(out, "  drafts: %d (blocked %d)\n", stats.Drafts, stats.BlockedDrafts)
			fmt.Fprintf(out, "  dialog facts: %d\n", stats.Facts)
			if !stats.LastDraft.IsZero() {
				fmt.Fprintf(out, "  last draft: %s\n", stats.LastDraft.Format(time.RFC3339))
			}
			if p, err := st.Profile(ctx, store.SidePeer); err == nil {
				fmt.Fprintf(out, "Peer: city=%s status=%s job=%s gender=%s\n",
					valueOr(p.City, "-"), valueOr(p.Status, "-"), valueOr(p.Job, "-"), valueOr(p.Gender, "-"))
			}
			return nil
		},
	}
}

func newExtractCmd(a *app) *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Update the peer profile from archived messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			if window <= 0 {
				window = a.cfg.Schedule.ExtractWindow
			}
			res, err := profile.Run(cmd.Context(), st, window)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Empty() {
				fmt.Fprintf(out, "Scanned %d messages, nothing found\n", res.Scanned)
				return nil
			}
			return printJSON(out, res)
		},
	}
	cmd.Flags().IntVarP(&window, "window", "n", 0, "number of recent messages to scan")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

// composer builds the template path from config, loading the YAML pack when present.
func (a *app) composer() (*templates.Composer, *templates.Selector, error) {
	sel := templates.New(templates.Options{})
	if _, err := templates.LoadInto(sel, a.cfg.Templates.Path); err != nil {
		return nil, nil, err
	}
	c := intent.New(intent.Options{ContextTurns: a.cfg.Policy.ContextTurns})
	return templates.NewComposer(c, sel), sel, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "not set"
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-4:]
	default:
		return "set"
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func writeIfNotExists(out io.Writer, path, content string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = os.WriteFile(path, []byte(content), 0644)
		fmt.Fprintf(out, "  Created: %s\n", path)
	}
}

const defaultTemplatesYAML = `# Reply bodies for the template-only path. Entries replace the built-in
# pools per intent; "generic" is used for fallback and unknown intents.
generic:
  - "Erzähl mir gern mehr davon, das interessiert mich wirklich."
  - "Was beschäftigt dich gerade am meisten?"
intents:
  compliment:
    - "Das ist lieb von dir, danke! Was gefällt dir denn am meisten?"
  question:
    - "Gute Frage! Ich überlege noch, was meinst du denn dazu?"
`
