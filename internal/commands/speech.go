package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/therapist-ai/backend/internal/config"
	"github.com/zhouzirui/therapist-ai/backend/internal/service/speech"
)

var (
	speechTimeoutFlag time.Duration
	formatFlag        string
	sendFlag          bool
	outputFlag        string
)

var speechCmd = &cobra.Command{
	Use:   "speech",
	Short: "Check the speech recognition and synthesis services",
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe an audio file, optionally sending the text to the therapist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, svc, err := speechService()
		if err != nil {
			return err
		}

		audio, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "read audio file")
		}

		format := formatFlag
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), speechTimeoutFlag)
		defer cancel()

		recognition := svc.Recognize(ctx, audio, format)
		fmt.Fprintln(cmd.OutOrStdout(), recognition.Text)
		if !recognition.Recognized || !sendFlag {
			return nil
		}

		env, err := setup(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		_, err = newREPL(env, cmd.OutOrStdout()).handle(cmd.Context(), recognition.Text)
		return err
	},
}

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize text into an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := speechService()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), speechTimeoutFlag)
		defer cancel()

		audio, err := svc.Speak(ctx, args[0])
		if err != nil {
			return err
		}

		path := outputFlag
		if path == "" {
			path = fmt.Sprintf("speech-%d.%s", time.Now().Unix(), audio.Format)
		}
		if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
			return errors.Wrap(err, "write audio file")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s (%s)\n", len(audio.Data), path, audio.Duration)
		return nil
	},
}

func init() {
	speechCmd.PersistentFlags().DurationVar(&speechTimeoutFlag, "timeout", 45*time.Second, "Request timeout")
	transcribeCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Audio format (defaults to the file extension)")
	transcribeCmd.Flags().BoolVar(&sendFlag, "send", false, "Send the recognized text to the therapist")
	speakCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (defaults to speech-<unix>.<format>)")

	speechCmd.AddCommand(transcribeCmd)
	speechCmd.AddCommand(speakCmd)
}

func speechService() (*config.Config, *speech.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Speech.Enabled {
		return nil, nil, errors.New("speech is not configured: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}
	return cfg, speech.NewService(cfg.Speech, speech.Options{}), nil
}
