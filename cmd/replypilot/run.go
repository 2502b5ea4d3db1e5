package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stellarlinkco/replypilot/internal/browser"
	"github.com/stellarlinkco/replypilot/internal/config"
	"github.com/stellarlinkco/replypilot/internal/intent"
	"github.com/stellarlinkco/replypilot/internal/notify"
	"github.com/stellarlinkco/replypilot/internal/pilot"
	"github.com/stellarlinkco/replypilot/internal/policy"
	"github.com/stellarlinkco/replypilot/internal/provider"
	"github.com/stellarlinkco/replypilot/internal/scheduler"
	"github.com/stellarlinkco/replypilot/internal/store"
	"github.com/stellarlinkco/replypilot/internal/templates"
)

// ChatSession is the browser lifecycle the run command drives.
type ChatSession interface {
	pilot.Chat
	Start(ctx context.Context) error
	Login(ctx context.Context) error
	WaitForChat(ctx context.Context) error
	Close() error
}

// ChatFactory creates a ChatSession (allows mocking)
type ChatFactory func(cfg config.ChatConfig, logger *zap.Logger) ChatSession

// ProviderFactory creates the configured Provider (allows mocking)
type ProviderFactory func(ctx context.Context, cfg *config.Config, opts provider.Options) (provider.Provider, error)

// NotifierFactory creates the operator Notifier (allows mocking)
type NotifierFactory func(cfg config.NotifyConfig, logger *zap.Logger) (notify.Notifier, error)

// RunOptions for running the pilot with custom dependencies
type RunOptions struct {
	ChatFactory     ChatFactory
	ProviderFactory ProviderFactory
	NotifierFactory NotifierFactory
	Stdin           io.Reader
	SignalChan      chan os.Signal
}

func defaultChatFactory(cfg config.ChatConfig, logger *zap.Logger) ChatSession {
	return browser.New(browser.OptionsFromConfig(cfg), logger)
}

func newRunCmd(a *app) *cobra.Command {
	var providerType string
	var headless bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the poll loop (browser + provider + scheduler)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("provider") {
				a.cfg.Provider.Type = strings.ToLower(strings.TrimSpace(providerType))
			}
			if cmd.Flags().Changed("headless") {
				a.cfg.Chat.Headless = headless
			}
			return runPilot(cmd.Context(), a.cfg, a.logger, cmd.OutOrStdout(), a.run)
		},
	}
	cmd.Flags().StringVar(&providerType, "provider", "", "provider type: "+strings.Join(config.ProviderTypes, ", "))
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	return cmd
}

// runPilot wires every component from cfg and blocks until the loop stops.
func runPilot(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, opts RunOptions) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	problems := cfg.Validate()
	for _, p := range problems {
		logger.Warn("config", zap.String("problem", p.String()))
	}
	if config.HasErrors(problems) {
		return fmt.Errorf("configuration has errors, run 'replypilot check'")
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	classifier := intent.New(intent.Options{ContextTurns: cfg.Policy.ContextTurns})
	selector := templates.New(templates.Options{})
	if loaded, err := templates.LoadInto(selector, cfg.Templates.Path); err != nil {
		return err
	} else if loaded {
		logger.Info("template pack loaded", zap.String("path", cfg.Templates.Path))
	}
	composer := templates.NewComposer(classifier, selector)

	providerFactory := opts.ProviderFactory
	if providerFactory == nil {
		providerFactory = provider.New
	}
	prov, err := providerFactory(ctx, cfg, provider.Options{Composer: composer})
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	if c, ok := prov.(interface{ Close() }); ok {
		defer c.Close()
	}

	notifierFactory := opts.NotifierFactory
	if notifierFactory == nil {
		notifierFactory = notify.FromConfig
	}
	notifier, err := notifierFactory(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}

	chatFactory := opts.ChatFactory
	if chatFactory == nil {
		chatFactory = defaultChatFactory
	}
	chat := chatFactory(cfg.Chat, logger)
	defer chat.Close()
	if err := chat.Start(ctx); err != nil {
		return err
	}
	if err := chat.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !cfg.Chat.AutoSkipManual {
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		fmt.Fprint(out, "Open the conversation in the browser, then press Enter to start... ")
		if _, err := bufio.NewReader(stdin).ReadString('\n'); err != nil && err != io.EOF {
			return fmt.Errorf("read confirmation: %w", err)
		}
	}
	if err := chat.WaitForChat(ctx); err != nil {
		return err
	}

	var tasks []pilot.Task
	if cfg.Schedule.Enabled {
		sched, err := scheduler.FromConfig(cfg, st, logger)
		if err != nil {
			return err
		}
		tasks = append(tasks, sched.Run)
	}
	if cfg.Templates.Watch && cfg.Templates.Path != "" {
		tasks = append(tasks, func(ctx context.Context) error {
			if err := templates.Watch(ctx, selector, cfg.Templates.Path, logger); err != nil {
				logger.Warn("template watch stopped", zap.Error(err))
			}
			return nil
		})
	}

	p, err := pilot.New(pilot.Options{
		Chat:                   chat,
		Replier:                provider.NewRetrying(prov, cfg.ProviderRetry(), cfg.ProviderTimeout(), logger),
		Store:                  st,
		Notifier:               notifier,
		Classifier:             classifier,
		Filter:                 policy.New(policy.Options{MaxLength: cfg.Policy.MaxLength, MaxPasses: cfg.Policy.MaxPasses}),
		Logger:                 logger,
		PollInterval:           cfg.PollInterval(),
		FollowUpAfter:          cfg.FollowUpAfter(),
		Location:               loc,
		HistoryLimit:           cfg.Loop.HistoryLimit,
		ContextTurns:           cfg.Policy.ContextTurns,
		MaxConsecutiveFailures: cfg.Loop.MaxConsecutiveFailures,
		BrowserRetry:           cfg.BrowserRetry(),
		Tasks:                  tasks,
		SignalChan:             opts.SignalChan,
	})
	if err != nil {
		return err
	}
	logger.Info("replypilot running",
		zap.String("provider", prov.Name()),
		zap.String("run_id", p.RunID()),
		zap.String("store", cfg.Store.Path))
	return p.Run(ctx)
}
