package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/core"
	"github.com/book-expert/speech-service/internal/download"
)

// unknownLanguage is the sentinel display name for language codes missing
// from the lookup table. An unknown code is not a provisioning failure.
const unknownLanguage = "Unknown Language"

// languageNames maps the language-code segment of a voice name to a display
// name.
var languageNames = map[string]string{
	"ar": "Arabic",
	"cs": "Czech",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"zh": "Chinese",
}

// VoiceResult records the per-voice outcome of one provisioning run. Err is
// nil for voices whose assets and config are in place.
type VoiceResult struct {
	Name string
	Err  error
}

// VoiceManager ensures every catalog voice has its model binary, metadata
// sidecar, and persisted configuration record.
type VoiceManager struct {
	client     *download.Client
	modelsDir  string
	configsDir string
	log        *logger.Logger
}

// NewVoiceManager creates a voice asset manager writing models into modelsDir
// and configuration records into configsDir.
func NewVoiceManager(
	client *download.Client,
	modelsDir, configsDir string,
	log *logger.Logger,
) *VoiceManager {
	return &VoiceManager{
		client:     client,
		modelsDir:  modelsDir,
		configsDir: configsDir,
		log:        log,
	}
}

// EnsureVoices processes the catalog in order. A single voice's failure is
// recorded and the remaining voices are still processed, so the service can
// come up with a degraded voice set rather than none. The returned map holds
// a config for every voice that succeeded; the result list has one entry per
// catalog voice.
func (m *VoiceManager) EnsureVoices(
	ctx context.Context,
	catalog []core.VoiceModel,
	runtimePath string,
) (map[string]core.VoiceConfig, []VoiceResult) {
	configs := make(map[string]core.VoiceConfig, len(catalog))
	results := make([]VoiceResult, 0, len(catalog))

	for _, voice := range catalog {
		voiceCfg, voiceErr := m.ensureVoice(ctx, voice, runtimePath)
		if voiceErr != nil {
			m.log.Error("Voice %s unavailable: %v", voice.Name, voiceErr)

			results = append(results, VoiceResult{Name: voice.Name, Err: voiceErr})

			continue
		}

		configs[voice.Name] = voiceCfg
		results = append(results, VoiceResult{Name: voice.Name, Err: nil})
	}

	return configs, results
}

// ensureVoice downloads whichever of the two voice assets is missing and
// rewrites the voice's config record. The two downloads are independent: a
// missing sidecar does not re-download a present model binary.
func (m *VoiceManager) ensureVoice(
	ctx context.Context,
	voice core.VoiceModel,
	runtimePath string,
) (core.VoiceConfig, error) {
	modelPath := filepath.Join(m.modelsDir, voice.Name+".onnx")
	sidecarPath := modelPath + ".json"

	if !fileExists(modelPath) {
		fetchErr := m.client.Fetch(ctx, voice.OnnxURL, modelPath, logProgress(m.log, voice.Name+".onnx"))
		if fetchErr != nil {
			return core.VoiceConfig{}, fmt.Errorf("model binary: %w", fetchErr)
		}
	}

	if !fileExists(sidecarPath) {
		fetchErr := m.client.Fetch(ctx, voice.JSONURL, sidecarPath, nil)
		if fetchErr != nil {
			return core.VoiceConfig{}, fmt.Errorf("metadata sidecar: %w", fetchErr)
		}
	}

	voiceCfg := core.VoiceConfig{
		Provider:    VoiceProvider(voice.Name),
		Voice:       voice.Name,
		Language:    VoiceLanguage(voice.Name),
		RuntimePath: runtimePath,
		ModelPath:   modelPath,
		ConfigPath:  sidecarPath,
	}

	persistErr := m.persistConfig(voiceCfg)
	if persistErr != nil {
		return core.VoiceConfig{}, persistErr
	}

	return voiceCfg, nil
}

// persistConfig overwrites the voice's config record. Records are rewritten
// on every run, never diffed.
func (m *VoiceManager) persistConfig(voiceCfg core.VoiceConfig) error {
	data, marshalErr := json.MarshalIndent(voiceCfg, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal config for %s: %w", voiceCfg.Voice, marshalErr)
	}

	configPath := filepath.Join(m.configsDir, voiceCfg.Voice+".json")

	writeErr := os.WriteFile(configPath, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write config for %s: %w", voiceCfg.Voice, writeErr)
	}

	return nil
}

// VoiceProvider derives the provider identifier from a voice name: the
// leading <lang>_<REGION> segment, lower-cased.
func VoiceProvider(name string) string {
	head, _, _ := strings.Cut(name, "-")

	return strings.ToLower(head)
}

// VoiceLanguage resolves the display language for a voice name via the fixed
// lookup table, falling back to the unknown-language sentinel.
func VoiceLanguage(name string) string {
	head, _, _ := strings.Cut(name, "-")
	code, _, _ := strings.Cut(head, "_")

	display, known := languageNames[strings.ToLower(code)]
	if !known {
		return unknownLanguage
	}

	return display
}
