// Package session implements the per-connection streaming transcription
// state machine: VAD-gated utterance segmentation, incremental decoding, and
// transcript-agreement reconciliation. Sessions speak an abstract event
// vocabulary; protocol adapters translate it to and from their wire format,
// and neither the session nor the manager ever references a protocol.
package session

// Sink receives outbound session events. A protocol adapter implements Sink
// and maps each callback onto its wire format.
//
// Callbacks are invoked from the session's ingest path and from decode
// goroutines; implementations must be safe for concurrent use and must not
// block for long — a stuck sink stalls audio ingestion for its session.
type Sink interface {
	// Ready signals that the session acquired its model and accepts audio.
	Ready()
	// SpeechStarted signals a VAD-confirmed speech onset.
	SpeechStarted()
	// SpeechEnded signals a VAD silence timeout or explicit stop.
	SpeechEnded()
	// PartialTranscript carries interim text. Stable text is confirmed and
	// will never be retracted; volatile text may still change.
	PartialTranscript(text string, stable bool)
	// FinalTranscript carries the reconciled transcript of one utterance.
	FinalTranscript(text string)
	// Error carries a stable machine-readable kind and a human message.
	Error(kind, message string)
	// Closed signals that the session released all resources.
	Closed()
}
