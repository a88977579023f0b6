// Package stt provides speech-to-text over the provisioned recognition model.
//
// The model is loaded exactly once per process and shared read-only by every
// decoding session; each Transcribe call owns a fresh session that is freed on
// every exit path.
package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/core"
)

// readChunkSize is the fixed size of the audio chunks fed into a decoding
// session.
const readChunkSize = 4096

// ErrTranscriptionFailed indicates the audio stream could not be decoded.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Recognizer wraps the recognition model and spawns one decoding session per
// request. Safe for concurrent Transcribe calls.
type Recognizer struct {
	modelDir   string
	sampleRate float64
	log        *logger.Logger

	loadOnce sync.Once
	model    *vosk.VoskModel
	loadErr  error
}

// New creates a recognizer over the extracted model directory. The model is
// not loaded until first use.
func New(modelDir string, sampleRate float64, log *logger.Logger) *Recognizer {
	return &Recognizer{
		modelDir:   modelDir,
		sampleRate: sampleRate,
		log:        log,
		loadOnce:   sync.Once{},
		model:      nil,
		loadErr:    nil,
	}
}

// LoadModel loads the recognition model into process-wide state. The first
// caller pays the load cost; every later call returns the cached handle's
// status with no I/O. The handle is never released before process exit.
func (r *Recognizer) LoadModel() error {
	r.loadOnce.Do(func() {
		r.log.Info("Loading recognition model from %s", r.modelDir)

		model, newErr := vosk.NewModel(r.modelDir)
		if newErr != nil {
			r.loadErr = fmt.Errorf("failed to load recognition model at %s: %w", r.modelDir, newErr)

			return
		}

		r.model = model
	})

	return r.loadErr
}

// Transcribe decodes one audio file. A result with SpeechDetected == false
// means the decoder heard nothing; that is a normal outcome, distinct from an
// empty-text success and from failure.
func (r *Recognizer) Transcribe(ctx context.Context, audioPath string) (core.Transcription, error) {
	loadErr := r.LoadModel()
	if loadErr != nil {
		return core.Transcription{}, loadErr
	}

	session, sessionErr := vosk.NewRecognizer(r.model, r.sampleRate)
	if sessionErr != nil {
		return core.Transcription{}, fmt.Errorf("%w: creating decoding session: %w", ErrTranscriptionFailed, sessionErr)
	}

	// The session must be released on every exit path, success or failure,
	// to avoid resource exhaustion under sustained request load.
	defer session.Free()

	feedErr := r.feedAudio(ctx, session, audioPath)
	if feedErr != nil {
		return core.Transcription{}, feedErr
	}

	text, parseErr := finalText(session.FinalResult())
	if parseErr != nil {
		return core.Transcription{}, parseErr
	}

	if text == "" {
		return core.Transcription{Text: "", SpeechDetected: false}, nil
	}

	return core.Transcription{Text: text, SpeechDetected: true}, nil
}

// feedAudio streams the audio file into the session in fixed-size chunks.
func (r *Recognizer) feedAudio(ctx context.Context, session *vosk.VoskRecognizer, audioPath string) error {
	file, openErr := os.Open(audioPath)
	if openErr != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrTranscriptionFailed, audioPath, openErr)
	}

	defer func() {
		_ = file.Close()
	}()

	buf := make([]byte, readChunkSize)

	for {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrTranscriptionFailed, ctxErr)
		}

		n, readErr := file.Read(buf)
		if n > 0 {
			session.AcceptWaveform(buf[:n])
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}

		if readErr != nil {
			return fmt.Errorf("%w: reading %s: %w", ErrTranscriptionFailed, audioPath, readErr)
		}
	}
}

// finalText extracts the top transcription alternative from the decoder's
// final JSON result and trims surrounding whitespace.
func finalText(raw string) (string, error) {
	var result struct {
		Text string `json:"text"`
	}

	decodeErr := json.Unmarshal([]byte(raw), &result)
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decoding final result: %w", ErrTranscriptionFailed, decodeErr)
	}

	return strings.TrimSpace(result.Text), nil
}
