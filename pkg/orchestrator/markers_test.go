package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarkers_SpeedOnly(t *testing.T) {
	out := ExtractMarkers("[SPEED:0.8] I'm well, thanks!")
	assert.Equal(t, "I'm well, thanks!", out.CleanedText)
	assert.Empty(t, out.Feedback)
	require.NotNil(t, out.Speed)
	assert.InDelta(t, 0.8, *out.Speed, 1e-9)
}

func TestExtractMarkers_FeedbackAndSpeed(t *testing.T) {
	reply := "[FEEDBACK]\nRED: \"I have went\" → \"I went\"\n[/FEEDBACK]\n[SPEED:0.6] Nice, where did you go?"
	out := ExtractMarkers(reply)
	assert.Equal(t, "Nice, where did you go?", out.CleanedText)
	assert.Contains(t, out.Feedback, "I have went")
	require.NotNil(t, out.Speed)
	assert.InDelta(t, 0.6, *out.Speed, 1e-9)
}

func TestExtractMarkers_NoMarkers(t *testing.T) {
	out := ExtractMarkers("Just a normal reply.")
	assert.Equal(t, "Just a normal reply.", out.CleanedText)
	assert.Empty(t, out.Feedback)
	assert.Nil(t, out.Speed)
}

func TestExtractMarkers_OutOfRangeSpeedIgnored(t *testing.T) {
	out := ExtractMarkers("[SPEED:9.9] too fast")
	assert.Equal(t, "too fast", out.CleanedText)
	assert.Nil(t, out.Speed)
}

func TestExtractMarkers_UnknownBracketTagPassesThrough(t *testing.T) {
	out := ExtractMarkers("[LAUGH] that's funny")
	assert.Equal(t, "[LAUGH] that's funny", out.CleanedText)
}

func TestExtractMarkers_Idempotent(t *testing.T) {
	reply := "[FEEDBACK]note[/FEEDBACK][SPEED:0.7] hello there"
	once := ExtractMarkers(reply)
	twice := ExtractMarkers(once.CleanedText)
	assert.Equal(t, once.CleanedText, twice.CleanedText)
	assert.Empty(t, twice.Feedback)
	assert.Nil(t, twice.Speed)
}
