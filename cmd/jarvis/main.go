// Package main is the entry point for the Jarvis CLI.
// Jarvis is a voice assistant that runs built-in commands, answers questions
// it has been taught and learns new answers when it has none.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/normanking/jarvis/internal/config"
	"github.com/normanking/jarvis/internal/logging"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	cfgPath   string
	verbose   bool
	voiceMode string

	cfg       *config.Config
	logCloser io.Closer
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jarvis",
		Short: "Jarvis - a voice assistant that learns what it doesn't know",
		Long: `Jarvis listens for an utterance and resolves it to exactly one outcome:
  • a built-in command (time, websites, news, jokes, Wikipedia, LED, speaker)
  • a reassurance when the utterance sounds distressed
  • a previously learned answer to a similar question
  • a prompt to learn the answer, stored for next time

Start a session:     jarvis
One question:        jarvis ask how do bees communicate
Teach directly:      jarvis knowledge add "question" "answer"
Configuration:       jarvis config show`,
		SilenceUsage:       true,
		PersistentPreRunE:  initLogging,
		PersistentPostRunE: closeLogging,
		RunE:               runSession,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.jarvis/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().StringVar(&voiceMode, "voice", "", "override voice mode (console or websocket)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Jarvis v%s\n", version)
		},
	})
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(knowledgeCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(rulesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogging loads configuration and installs the global logger.
// Console logging is only enabled with --verbose so it does not interleave
// with the conversation; the log file always receives everything.
func initLogging(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return err
	}
	if voiceMode != "" {
		cfg.Voice.Mode = strings.ToLower(voiceMode)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if verbose {
		logCfg = logging.VerboseConfig()
	}
	logCfg.File = cfg.Logging.File
	logCfg.Console = verbose

	logCloser, err = logging.Setup(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}

	zlog.Debug().
		Str("config", configPath()).
		Str("knowledge_backend", cfg.Knowledge.Backend).
		Str("embedding_provider", cfg.Embedding.Provider).
		Str("voice_mode", cfg.Voice.Mode).
		Msg("configuration loaded")
	return nil
}

func closeLogging(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.Default().GetConfigPath()
}
