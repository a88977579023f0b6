// Package worker provides a NATS worker serving transcription and synthesis
// requests.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600
)

// SpeechWorker listens on two subjects, one per direction of the speech
// pipeline, and replies on the request's reply inbox. Failures are reported
// in the reply's Error field; a bad request never takes the worker down.
type SpeechWorker struct {
	natsConnection    *nats.Conn
	transcribeSubject string
	synthesizeSubject string
	store             core.ObjectStore
	transcriber       core.Transcriber
	synthesizer       core.Synthesizer
	scratchDir        string
	timeout           time.Duration
	log               *logger.Logger
}

// NewSpeechWorker creates a worker. scratchDir holds the short-lived audio
// files exchanged with the recognizer; timeout bounds the handling of a
// single message.
func NewSpeechWorker(
	natsConnection *nats.Conn,
	transcribeSubject, synthesizeSubject string,
	store core.ObjectStore,
	transcriber core.Transcriber,
	synthesizer core.Synthesizer,
	scratchDir string,
	timeout time.Duration,
	log *logger.Logger,
) *SpeechWorker {
	return &SpeechWorker{
		natsConnection:    natsConnection,
		transcribeSubject: transcribeSubject,
		synthesizeSubject: synthesizeSubject,
		store:             store,
		transcriber:       transcriber,
		synthesizer:       synthesizer,
		scratchDir:        scratchDir,
		timeout:           timeout,
		log:               log,
	}
}

// Run subscribes to both subjects and blocks until ctx is cancelled, then
// drains the subscriptions.
func (w *SpeechWorker) Run(ctx context.Context) error {
	transcribeSub, subErr := w.natsConnection.Subscribe(w.transcribeSubject, w.handleTranscribe)
	if subErr != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.transcribeSubject, subErr)
	}

	synthesizeSub, subErr := w.natsConnection.Subscribe(w.synthesizeSubject, w.handleSynthesize)
	if subErr != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.synthesizeSubject, subErr)
	}

	w.log.Info(
		"Speech worker listening on %s and %s",
		w.transcribeSubject, w.synthesizeSubject,
	)

	<-ctx.Done()

	drainErr := transcribeSub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain transcribe subscription: %w", drainErr)
	}

	drainErr = synthesizeSub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain synthesize subscription: %w", drainErr)
	}

	return nil
}

func (w *SpeechWorker) handleTranscribe(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	var event TranscribeRequestedEvent

	unmarshalErr := json.Unmarshal(msg.Data, &event)
	if unmarshalErr != nil {
		w.log.Error("Failed to unmarshal transcribe event: %v", unmarshalErr)

		return
	}

	reply := TranscriptReadyEvent{
		Header:         event.Header,
		Text:           "",
		SpeechDetected: false,
		Error:          "",
	}

	transcription, jobErr := w.transcribeJob(ctx, event.AudioKey)
	if jobErr != nil {
		w.log.Error(
			"Failed to transcribe audio for workflow %s: %v",
			event.Header.WorkflowID, jobErr,
		)

		reply.Error = jobErr.Error()
	} else {
		reply.Text = transcription.Text
		reply.SpeechDetected = transcription.SpeechDetected
	}

	w.respond(msg, reply, event.Header.WorkflowID)
}

// transcribeJob stages the stored audio into a scratch file, runs the
// recognizer over it, and removes the file regardless of outcome.
func (w *SpeechWorker) transcribeJob(ctx context.Context, audioKey string) (core.Transcription, error) {
	audioData, downloadErr := w.store.Download(ctx, audioKey)
	if downloadErr != nil {
		return core.Transcription{}, fmt.Errorf(
			"failed to download audio for key '%s': %w", audioKey, downloadErr,
		)
	}

	mkdirErr := os.MkdirAll(w.scratchDir, dirPermissions)
	if mkdirErr != nil {
		return core.Transcription{}, fmt.Errorf("failed to create scratch directory: %w", mkdirErr)
	}

	scratchPath := filepath.Join(w.scratchDir, uuid.NewString()+".wav")

	writeErr := os.WriteFile(scratchPath, audioData, filePermissions)
	if writeErr != nil {
		return core.Transcription{}, fmt.Errorf("failed to stage audio at %s: %w", scratchPath, writeErr)
	}

	defer func() {
		removeErr := os.Remove(scratchPath)
		if removeErr != nil {
			w.log.Warn("Failed to remove scratch audio %s: %v", scratchPath, removeErr)
		}
	}()

	transcription, transcribeErr := w.transcriber.Transcribe(ctx, scratchPath)
	if transcribeErr != nil {
		return core.Transcription{}, fmt.Errorf("failed to transcribe audio: %w", transcribeErr)
	}

	return transcription, nil
}

func (w *SpeechWorker) handleSynthesize(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	var event SynthesizeRequestedEvent

	unmarshalErr := json.Unmarshal(msg.Data, &event)
	if unmarshalErr != nil {
		w.log.Error("Failed to unmarshal synthesize event: %v", unmarshalErr)

		return
	}

	reply := AudioSynthesizedEvent{
		Header:   event.Header,
		AudioKey: "",
		Error:    "",
	}

	audioKey, jobErr := w.synthesizeJob(ctx, event.Text, event.Voice)
	if jobErr != nil {
		w.log.Error(
			"Failed to synthesize audio for workflow %s: %v",
			event.Header.WorkflowID, jobErr,
		)

		reply.Error = jobErr.Error()
	} else {
		reply.AudioKey = audioKey
	}

	w.respond(msg, reply, event.Header.WorkflowID)
}

// synthesizeJob renders the text, moves the generated wav into the audio
// store, and removes the local file.
func (w *SpeechWorker) synthesizeJob(ctx context.Context, text, voice string) (string, error) {
	audioPath, synthesizeErr := w.synthesizer.Synthesize(ctx, text, voice)
	if synthesizeErr != nil {
		return "", fmt.Errorf("failed to synthesize text: %w", synthesizeErr)
	}

	defer func() {
		removeErr := os.Remove(audioPath)
		if removeErr != nil {
			w.log.Warn("Failed to remove synthesized audio %s: %v", audioPath, removeErr)
		}
	}()

	audioData, readErr := os.ReadFile(audioPath)
	if readErr != nil {
		return "", fmt.Errorf("failed to read synthesized audio at %s: %w", audioPath, readErr)
	}

	audioKey := uuid.NewString() + ".wav"

	uploadErr := w.store.Upload(ctx, audioKey, audioData)
	if uploadErr != nil {
		return "", fmt.Errorf("failed to upload audio for key '%s': %w", audioKey, uploadErr)
	}

	return audioKey, nil
}

// respond marshals the reply and answers on the message's reply inbox.
func (w *SpeechWorker) respond(msg *nats.Msg, reply any, workflowID string) {
	replyData, marshalErr := json.Marshal(reply)
	if marshalErr != nil {
		w.log.Error("Failed to marshal reply for workflow %s: %v", workflowID, marshalErr)

		return
	}

	respondErr := msg.Respond(replyData)
	if respondErr != nil {
		w.log.Error("Failed to publish reply for workflow %s: %v", workflowID, respondErr)
	}
}
