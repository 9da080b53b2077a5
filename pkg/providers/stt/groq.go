// Package stt provides concrete STTProvider adapters for the Audio Host.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/spacecodeur/space-lt/pkg/audio"
	"github.com/spacecodeur/space-lt/pkg/host"
)

// GroqSTT is a Groq-compatible multipart-HTTP transcription client, adapted
// from the teacher's pkg/providers/stt/groq.go: the wire format (wav file
// upload, bearer auth, JSON {"text":...} response) is unchanged, only the
// provider interface it satisfies (host.STTProvider) and the sample rate,
// now taken from the call rather than held as adapter state.
type GroqSTT struct {
	apiKey string
	url    string
	model  string
}

// NewGroqSTT builds a client against Groq's OpenAI-compatible transcription
// endpoint. model defaults to "whisper-large-v3-turbo" if empty.
func NewGroqSTT(apiKey, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/audio/transcriptions",
		model:  model,
	}
}

func (s *GroqSTT) Transcribe(ctx context.Context, pcm []byte, sampleRate int, lang host.Language) (string, error) {
	wavData := audio.NewWavBuffer(pcm, audio.MonoPCM16(sampleRate))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return "", err
	}
	if lang != "" {
		if err := writer.WriteField("language", string(lang)); err != nil {
			return "", err
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("groq stt error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Text, nil
}

func (s *GroqSTT) Name() string { return "groq-stt" }
