package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/normanking/jarvis/internal/voice"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	hitStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// ═══════════════════════════════════════════════════════════════════════════════
// SESSION (ROOT)
// ═══════════════════════════════════════════════════════════════════════════════

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.serveMetrics(ctx)

	conv, err := a.openIO(ctx)
	if err != nil {
		return fmt.Errorf("connect voice: %w", err)
	}

	jarvis, err := a.newAssistant(conv, cfg.Assistant.LearnOnMiss)
	if err != nil {
		return err
	}

	zlog.Info().Str("voice_mode", cfg.Voice.Mode).Int("knowledge_entries", a.store.Len()).Msg("session started")
	err = jarvis.Run(ctx)

	stats := jarvis.Router().Stats()
	zlog.Info().
		Int64("turns", stats.TotalRequests).
		Int64("matched", stats.Matched).
		Float64("match_ratio", stats.MatchRatio()).
		Msg("session ended")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ═══════════════════════════════════════════════════════════════════════════════
// ASK COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func askCmd() *cobra.Command {
	var learn bool

	cmd := &cobra.Command{
		Use:   "ask [utterance]",
		Short: "Resolve a single utterance",
		Long: `Resolve one utterance exactly as the interactive session would and exit.

With --learn, an unknown question prompts for its answer on stdin.

Examples:
  jarvis ask what time is it
  jarvis ask --learn how do bees communicate`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			console := voice.NewConsole(os.Stdin, os.Stdout, cfg.Assistant.Name)
			defer console.Close()
			jarvis, err := a.newAssistant(console, learn)
			if err != nil {
				return err
			}

			res, err := jarvis.HandleUtterance(ctx, strings.Join(args, " "))
			if verbose {
				fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("state=%s turn=%s", res.State, res.TurnID)))
				if res.Match != nil {
					fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("closest=%q score=%.3f", res.Match.Question, res.Match.Score)))
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&learn, "learn", false, "prompt for an answer when the question is unknown")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// KNOWLEDGE COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func knowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knowledge",
		Aliases: []string{"k"},
		Short:   "Manage learned answers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List learned questions and answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			entries := a.store.Snapshot().Entries()
			if len(entries) == 0 {
				fmt.Println("Nothing learned yet.")
				return nil
			}

			fmt.Println(headerStyle.Render(fmt.Sprintf("%d learned answers", len(entries))))
			for _, e := range entries {
				fmt.Printf("  %s\n    %s\n", e.Question, dimStyle.Render(e.Answer))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "add [question] [answer]",
		Short:   "Teach an answer directly",
		Example: `  jarvis knowledge add "what is the capital of france" "Paris"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			question := strings.ToLower(strings.TrimSpace(args[0]))
			if err := a.store.Add(cmd.Context(), question, strings.TrimSpace(args[1])); err != nil {
				return err
			}
			fmt.Printf("Learned %q (%d answers)\n", question, a.store.Len())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "match [utterance]",
		Short: "Show how an utterance scores against learned questions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			utterance := voice.Normalize(strings.Join(args, " "))
			ranked, err := a.matcher.Rank(cmd.Context(), utterance, a.store.Snapshot())
			if err != nil {
				return fmt.Errorf("rank: %w", err)
			}
			if len(ranked) == 0 {
				fmt.Println("Nothing learned yet.")
				return nil
			}

			fmt.Println(headerStyle.Render(fmt.Sprintf("threshold %.2f", a.matcher.Threshold())))
			for i, m := range ranked {
				if i == 5 {
					break
				}
				line := fmt.Sprintf("  %.3f  %s", m.Score, m.Question)
				if m.Score > a.matcher.Threshold() {
					line = hitStyle.Render(line)
				}
				fmt.Println(line)
			}
			return nil
		},
	})

	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// RULES COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the built-in command rules in priority order",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(headerStyle.Render("Rules (first match wins)"))
			for i, rule := range newRouter(cfg).Rules() {
				line := fmt.Sprintf("  %2d. %-12s -> %s", i+1, rule.Name, rule.Action)
				if rule.FollowUp != "" {
					line += dimStyle.Render("  asks: " + rule.FollowUp)
				}
				fmt.Println(line)
			}
			fmt.Println(dimStyle.Render("  exit words: " + strings.Join(cfg.Assistant.ExitWords, ", ")))
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *cfg
			if shown.Embedding.APIKey != "" {
				shown.Embedding.APIKey = "********"
			}

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return err
			}
			fmt.Println(headerStyle.Render("Jarvis Configuration"))
			fmt.Print(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration back to the config file",
		Long: `Write the effective configuration, including defaults for keys missing
from the file and JARVIS_* environment overrides, back to the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgPath != "" {
				err = cfg.SaveToPath(cfgPath)
			} else {
				err = cfg.Save()
			}
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", configPath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(configPath())
		},
	})

	return cmd
}
