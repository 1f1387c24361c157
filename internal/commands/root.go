// Package commands provides the therapist CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
	"github.com/zhouzirui/therapist-ai/backend/internal/logging"
	"github.com/zhouzirui/therapist-ai/backend/internal/model/persona"
	"github.com/zhouzirui/therapist-ai/backend/internal/service/ai"
	"github.com/zhouzirui/therapist-ai/backend/internal/service/chat"
)

var (
	// Global flags
	nameFlag     string
	providerFlag string
	modelFlag    string
	widthFlag    int
	plainFlag    bool
	verboseFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "therapist [utterance]",
	Short: "Talk to TherapistAI from the terminal",
	Long: `therapist sends what you write to a compassionate AI therapist and
shows the conversation as it grows.

Examples:
  therapist                             Start an interactive chat
  therapist chat --name Sage            Chat with a renamed therapist
  therapist "I feel anxious today"      Ask a single question
  therapist speech transcribe note.wav --send
  therapist speech speak "Take a breath" -o breath.mp3`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runChat(cmd)
		}
		return runOnce(cmd, args[0])
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&nameFlag, "name", "n", "", "Display name for the therapist")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Model provider (gemini, openai, ark)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model to use (e.g., gemini-2.0-flash-exp)")
	rootCmd.PersistentFlags().IntVarP(&widthFlag, "width", "w", 0, "Wrap rendered output at this width (0 uses the terminal width)")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "Print raw Markdown without terminal styling")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show informational logs")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(speechCmd)
}

// environment holds everything a command needs to talk to the therapist.
type environment struct {
	sessions  *chat.Service
	sessionID string
	responder chat.Responder
	persona   persona.Persona
}

// loadConfig applies flag overrides, reads the environment and sets up logging.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	if providerFlag != "" {
		if err := os.Setenv("AI_PROVIDER", strings.ToLower(providerFlag)); err != nil {
			return nil, errors.Wrap(err, "set provider")
		}
	}
	if modelFlag != "" {
		if err := os.Setenv("AI_MODEL", modelFlag); err != nil {
			return nil, errors.Wrap(err, "set model")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	logCfg := cfg.Log
	if !verboseFlag && logCfg.Level < zerolog.WarnLevel {
		logCfg.Level = zerolog.WarnLevel
	}
	logging.Setup(logCfg, os.Stderr)

	return cfg, nil
}

// setup opens the single session the process owns.
func setup(ctx context.Context, cfg *config.Config) (*environment, error) {
	p := persona.Therapist()
	aiSvc, err := ai.NewServiceFromConfig(ctx, cfg.AI, p)
	if err != nil {
		return nil, err
	}

	sessions := chat.NewService()
	session, err := sessions.CreateSession(ctx, nameFlag)
	if err != nil {
		return nil, err
	}

	return &environment{
		sessions:  sessions,
		sessionID: session.SessionID,
		responder: aiSvc,
		persona:   p,
	}, nil
}

func runOnce(cmd *cobra.Command, utterance string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := setup(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	r := newREPL(env, cmd.OutOrStdout())
	_, err = r.handle(cmd.Context(), utterance)
	return err
}
