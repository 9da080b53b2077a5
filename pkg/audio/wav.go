package audio

import (
	"bytes"
	"encoding/binary"
)

// WavFormat describes the PCM layout a WAV header should declare. The host
// only ever deals in the mono 16-bit frames spec §4.3 mandates for uplink
// audio, but STT adapters beyond Groq may need other layouts, so the shape
// is threaded through rather than hardcoded.
type WavFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// MonoPCM16 is the uplink format every STT adapter receives from the host
// (spec §4.3: "pcm_i16_le, sample_rate").
func MonoPCM16(sampleRate int) WavFormat {
	return WavFormat{SampleRate: sampleRate, Channels: 1, BitsPerSample: 16}
}

// NewWavBuffer wraps raw PCM in a canonical WAV container for STT adapters
// that require a file upload (e.g. pkg/providers/stt/groq.go's multipart
// request) rather than a raw byte stream.
func NewWavBuffer(pcm []byte, format WavFormat) []byte {
	byteRate := format.SampleRate * format.Channels * format.BitsPerSample / 8
	blockAlign := format.Channels * format.BitsPerSample / 8

	buf := new(bytes.Buffer)
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(format.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(format.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(format.BitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
