package worker

import "github.com/book-expert/events"

// TranscribeRequestedEvent asks the service to transcribe an audio object
// previously uploaded to the audio store under AudioKey.
type TranscribeRequestedEvent struct {
	Header   events.EventHeader `json:"header"`
	AudioKey string             `json:"audio_key"`
}

// TranscriptReadyEvent is the reply to a transcription request. Error is set
// when the request failed; Text and SpeechDetected are meaningful only when
// Error is empty.
type TranscriptReadyEvent struct {
	Header         events.EventHeader `json:"header"`
	Text           string             `json:"text"`
	SpeechDetected bool               `json:"speech_detected"`
	Error          string             `json:"error,omitempty"`
}

// SynthesizeRequestedEvent asks the service to render Text through the named
// Voice.
type SynthesizeRequestedEvent struct {
	Header events.EventHeader `json:"header"`
	Text   string             `json:"text"`
	Voice  string             `json:"voice"`
}

// AudioSynthesizedEvent is the reply to a synthesis request. AudioKey names
// the generated wav in the audio store; it is empty when Error is set.
type AudioSynthesizedEvent struct {
	Header   events.EventHeader `json:"header"`
	AudioKey string             `json:"audio_key"`
	Error    string             `json:"error,omitempty"`
}
