package protocol

import (
	"encoding/json"
	"fmt"
)

// AudioSegment carries a complete utterance: 16-bit signed little-endian PCM
// samples at the uplink transport rate.
type AudioSegment struct{ PCM []byte }

// PauseRequest and ResumeRequest carry no payload; they flip the host's
// paused flag.
type PauseRequest struct{}
type ResumeRequest struct{}

// Ready is sent by the host to each accepted client, once both engines and
// listeners are up.
type Ready struct{}

// TtsAudioChunk carries one chunk of synthesized PCM at the TTS engine's
// native sample rate.
type TtsAudioChunk struct{ PCM []byte }

// TtsEnd closes a single synthesized reply.
type TtsEnd struct{}

// TranscribedText is forwarded host -> orchestrator once STT succeeds.
type TranscribedText struct{ Text string }

// ResponseText is the orchestrator's cleaned reply, forwarded to the host
// for synthesis. Speed carries the [SPEED:X.X] marker state (spec §4.6)
// through to the host's synthesize call; nil means "keep the host's current
// per-session speed unchanged". The wire payload is a small JSON envelope
// rather than raw text, the same convention SessionStart already uses for
// an opaque structured payload -- the alternative of smuggling the speed
// back into the text itself would make it visible to the TTS engine.
type ResponseText struct {
	Text  string
	Speed *float64
}

type responseTextWire struct {
	Text  string   `json:"text"`
	Speed *float64 `json:"speed,omitempty"`
}

// SessionStart carries an opaque JSON blob identifying the agent session.
// The host never interprets it, only stores and forwards its presence.
type SessionStart struct{ PayloadJSON string }

// SessionEnd clears the host's notion of "current session".
type SessionEnd struct{}

// EncodeAudioSegment, EncodePauseRequest, ... one encoder per outbound
// message keeps call sites from constructing raw Frame values by hand.

func EncodeAudioSegment(m AudioSegment) Frame  { return Frame{Tag: TagAudioSegment, Payload: m.PCM} }
func EncodePauseRequest() Frame                { return Frame{Tag: TagPauseRequest} }
func EncodeResumeRequest() Frame               { return Frame{Tag: TagResumeRequest} }
func EncodeReady() Frame                       { return Frame{Tag: TagReady} }
func EncodeTtsAudioChunk(m TtsAudioChunk) Frame { return Frame{Tag: TagTtsAudioChunk, Payload: m.PCM} }
func EncodeTtsEnd() Frame                      { return Frame{Tag: TagTtsEnd} }
func EncodeTranscribedText(m TranscribedText) Frame {
	return Frame{Tag: TagTranscribedText, Payload: []byte(m.Text)}
}
func EncodeResponseText(m ResponseText) Frame {
	payload, _ := json.Marshal(responseTextWire{Text: m.Text, Speed: m.Speed})
	return Frame{Tag: TagResponseText, Payload: payload}
}
func EncodeSessionStart(m SessionStart) Frame {
	return Frame{Tag: TagSessionStart, Payload: []byte(m.PayloadJSON)}
}
func EncodeSessionEnd() Frame { return Frame{Tag: TagSessionEnd} }

// DecodeClientToHost interprets a frame received on the TCP transport from
// the client's side of the conversation.
func DecodeClientToHost(f Frame) (interface{}, error) {
	switch f.Tag {
	case TagAudioSegment:
		return AudioSegment{PCM: f.Payload}, nil
	case TagPauseRequest:
		return PauseRequest{}, nil
	case TagResumeRequest:
		return ResumeRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, byte(f.Tag))
	}
}

// DecodeHostToClient interprets a frame received on the TCP transport from
// the host's side of the conversation.
func DecodeHostToClient(f Frame) (interface{}, error) {
	switch f.Tag {
	case TagReady:
		return Ready{}, nil
	case TagTtsAudioChunk:
		return TtsAudioChunk{PCM: f.Payload}, nil
	case TagTtsEnd:
		return TtsEnd{}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, byte(f.Tag))
	}
}

// DecodeOrchestratorToHost interprets a frame received on the local stream
// transport, sent by the orchestrator.
func DecodeOrchestratorToHost(f Frame) (interface{}, error) {
	switch f.Tag {
	case TagResponseText:
		var wire responseTextWire
		if err := json.Unmarshal(f.Payload, &wire); err != nil {
			return nil, fmt.Errorf("decode ResponseText: %w", err)
		}
		return ResponseText{Text: wire.Text, Speed: wire.Speed}, nil
	case TagSessionStart:
		return SessionStart{PayloadJSON: string(f.Payload)}, nil
	case TagSessionEnd:
		return SessionEnd{}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, byte(f.Tag))
	}
}

// DecodeHostToOrchestrator interprets a frame received on the local stream
// transport, sent by the host.
func DecodeHostToOrchestrator(f Frame) (interface{}, error) {
	switch f.Tag {
	case TagTranscribedText:
		return TranscribedText{Text: string(f.Payload)}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, byte(f.Tag))
	}
}
