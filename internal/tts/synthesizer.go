// Package tts provides text-to-speech by invoking the provisioned synthesis
// engine, one subprocess per request.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/command"
	"github.com/book-expert/speech-service/internal/core"
	"github.com/book-expert/speech-service/internal/tts/text"
	"github.com/google/uuid"
)

const dirPermissions = 0o750

// Static errors.
var (
	// ErrUnknownVoice indicates the requested voice has no provisioned
	// configuration. No process is spawned.
	ErrUnknownVoice = errors.New("unknown voice")
	// ErrSynthesisFailed indicates the engine process exited non-zero.
	ErrSynthesisFailed = errors.New("synthesis failed")
)

// Synthesizer renders text to wav files using the voice configs persisted by
// provisioning. The config map is read-only after construction, so concurrent
// Synthesize calls need no locking; each call owns its own subprocess and
// output path.
type Synthesizer struct {
	configs   map[string]core.VoiceConfig
	runner    *command.Runner
	outputDir string
	log       *logger.Logger
}

// NewSynthesizer creates a synthesizer writing generated audio into
// outputDir.
func NewSynthesizer(
	configs map[string]core.VoiceConfig,
	runner *command.Runner,
	outputDir string,
	log *logger.Logger,
) *Synthesizer {
	return &Synthesizer{
		configs:   configs,
		runner:    runner,
		outputDir: outputDir,
		log:       log,
	}
}

// Synthesize renders input through the named voice and returns the path of
// the generated wav file. Callers own the file and are expected to delete it
// after use.
func (s *Synthesizer) Synthesize(ctx context.Context, input, voice string) (string, error) {
	voiceCfg, known := s.configs[voice]
	if !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownVoice, voice)
	}

	mkdirErr := os.MkdirAll(s.outputDir, dirPermissions)
	if mkdirErr != nil {
		return "", fmt.Errorf("failed to create output directory: %w", mkdirErr)
	}

	cleaned := text.StripUnspeakable(input)
	outputPath := filepath.Join(s.outputDir, uuid.NewString()+".wav")

	args := []string{
		"-m", "piper",
		"--model", voiceCfg.ModelPath,
		"--config", voiceCfg.ConfigPath,
		"--output_file", outputPath,
	}

	_, runErr := s.runner.RunWithInput(ctx, cleaned+"\n", voiceCfg.RuntimePath, args...)
	if runErr != nil {
		return "", synthesisError(runErr)
	}

	s.log.Info("Synthesized %d chars with voice %s to %s", len(cleaned), voice, outputPath)

	return outputPath, nil
}

// synthesisError maps a non-zero engine exit onto ErrSynthesisFailed while
// keeping the exit code and captured diagnostics; spawn-level failures pass
// through untouched.
func synthesisError(runErr error) error {
	var exitErr *command.ExitError
	if errors.As(runErr, &exitErr) {
		return fmt.Errorf(
			"%w: engine exited with code %d: %s",
			ErrSynthesisFailed, exitErr.Code, exitErr.Output,
		)
	}

	return fmt.Errorf("failed to run synthesis engine: %w", runErr)
}
