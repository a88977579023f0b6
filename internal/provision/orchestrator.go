// Package provision implements the idempotent startup pipeline that acquires
// and wires every asset the speech endpoints need: the language runtime, the
// synthesis engine, the per-voice model assets and their configuration
// records, and the recognition model.
//
// Stages run sequentially; each stage is gated by its own presence check and
// is safe to re-run. A fatal stage failure must halt the process, because the
// request handlers have no fallback.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/command"
	"github.com/book-expert/speech-service/internal/config"
	"github.com/book-expert/speech-service/internal/core"
	"github.com/book-expert/speech-service/internal/download"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600

	// progressLogStep is the percentage granularity of download progress
	// log lines.
	progressLogStep = 10
)

// ErrAllVoicesFailed indicates that not a single catalog voice could be
// provisioned. A partial voice set is acceptable; an empty one is not.
var ErrAllVoicesFailed = errors.New("no voice could be provisioned")

// Result carries everything the request-time components need from a completed
// provisioning run.
type Result struct {
	RuntimePath         string
	VoiceConfigs        map[string]core.VoiceConfig
	VoiceResults        []VoiceResult
	RecognitionModelDir string
}

// Orchestrator sequences the provisioning stages end-to-end at process
// startup.
type Orchestrator struct {
	runtime     *RuntimeInstaller
	engine      *EngineInstaller
	voices      *VoiceManager
	recognition *RecognitionManager
	catalog     []core.VoiceModel
	log         *logger.Logger
}

// NewOrchestrator wires the provisioning stages for the configured asset
// layout and the default voice catalog.
func NewOrchestrator(
	client *download.Client,
	runner *command.Runner,
	speechCfg *config.SpeechConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		runtime:     NewRuntimeInstaller(client, runner, speechCfg.RuntimeDir(), log),
		engine:      NewEngineInstaller(runner, log),
		voices:      NewVoiceManager(client, speechCfg.VoiceModelsDir(), speechCfg.VoiceConfigsDir(), log),
		recognition: NewRecognitionManager(client, speechCfg.RecognitionModelBaseDir(), log),
		catalog:     DefaultCatalog(),
		log:         log,
	}
}

// Provision runs all stages in order. Later stages assume earlier stages have
// committed their idempotency markers, so no stage starts before the prior
// one returned.
func (o *Orchestrator) Provision(ctx context.Context) (*Result, error) {
	o.log.Info("Provisioning speech assets")

	runtimePath, runtimeErr := o.runtime.EnsureRuntime(ctx)
	if runtimeErr != nil {
		return nil, fmt.Errorf("runtime stage failed: %w", runtimeErr)
	}

	engineErr := o.engine.EnsureEngine(ctx, runtimePath)
	if engineErr != nil {
		return nil, fmt.Errorf("engine stage failed: %w", engineErr)
	}

	voiceDirsErr := ensureDirs(o.voices.modelsDir, o.voices.configsDir)
	if voiceDirsErr != nil {
		return nil, fmt.Errorf("voice stage failed: %w", voiceDirsErr)
	}

	voiceConfigs, voiceResults := o.voices.EnsureVoices(ctx, o.catalog, runtimePath)
	if len(voiceConfigs) == 0 && len(o.catalog) > 0 {
		return nil, ErrAllVoicesFailed
	}

	modelDir, modelErr := o.recognition.EnsureModel(ctx)
	if modelErr != nil {
		return nil, fmt.Errorf("recognition model stage failed: %w", modelErr)
	}

	o.log.Info(
		"Provisioning complete: %d/%d voices available, recognition model at %s",
		len(voiceConfigs), len(o.catalog), modelDir,
	)

	return &Result{
		RuntimePath:         runtimePath,
		VoiceConfigs:        voiceConfigs,
		VoiceResults:        voiceResults,
		RecognitionModelDir: modelDir,
	}, nil
}

func ensureDirs(paths ...string) error {
	for _, path := range paths {
		mkdirErr := os.MkdirAll(path, dirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, mkdirErr)
		}
	}

	return nil
}

func fileExists(path string) bool {
	info, statErr := os.Stat(path)

	return statErr == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, statErr := os.Stat(path)

	return statErr == nil && info.IsDir()
}

// logProgress returns a progress callback that logs at coarse percentage
// steps, keeping a multi-hundred-megabyte transfer down to a handful of log
// lines.
func logProgress(log *logger.Logger, filename string) download.ProgressFunc {
	lastStep := int64(-1)

	return func(received, total int64) {
		step := received * 100 / total / progressLogStep
		if step == lastStep {
			return
		}

		lastStep = step

		log.Info("Downloading %s: %d%% (%d/%d bytes)", filename, step*progressLogStep, received, total)
	}
}
