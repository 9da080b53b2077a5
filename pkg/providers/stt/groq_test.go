package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spacecodeur/space-lt/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqSTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		resp := struct {
			Text string `json:"text"`
		}{Text: "groq transcription"}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := &GroqSTT{apiKey: "test-key", url: server.URL, model: "whisper-large-v3"}

	result, err := s.Transcribe(context.Background(), []byte{0}, 16000, host.DefaultLanguage)
	require.NoError(t, err)
	assert.Equal(t, "groq transcription", result)
	assert.Equal(t, "groq-stt", s.Name())
}

func TestGroqSTT_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s := NewGroqSTT("bad-key", "")
	s.url = server.URL

	_, err := s.Transcribe(context.Background(), []byte{0}, 16000, host.DefaultLanguage)
	assert.Error(t, err)
}
