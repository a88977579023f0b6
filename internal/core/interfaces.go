// Package core defines the core data records and interfaces for the speech service.
package core

import "context"

// VoiceModel describes one downloadable synthesis voice: a model binary and its
// metadata sidecar. Entries come from the static catalog and are immutable;
// identity is the Name.
type VoiceModel struct {
	Name    string
	OnnxURL string
	JSONURL string
}

// VoiceConfig is the persisted per-voice configuration record consumed at
// request time by the synthesizer. One file per voice, regenerated on every
// provisioning run.
type VoiceConfig struct {
	Provider    string `json:"provider"`
	Voice       string `json:"voice"`
	Language    string `json:"language"`
	RuntimePath string `json:"runtime_path"`
	ModelPath   string `json:"model_path"`
	ConfigPath  string `json:"config_path"`
}

// Transcription is the outcome of one recognition request. SpeechDetected is
// false when the decoder produced no text; that is a normal outcome, not an
// error.
type Transcription struct {
	Text           string
	SpeechDetected bool
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Transcriber converts one audio file into text using the provisioned
// recognition model.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcription, error)
}

// Synthesizer renders text to a wav file using one of the provisioned voices
// and returns the path of the generated file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (string, error)
}
