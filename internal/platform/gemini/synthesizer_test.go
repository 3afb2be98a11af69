package gemini

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func audioResponse(mimeType string, chunks ...[]byte) fakeResponse {
	parts := make([]*genai.Part, len(chunks))
	for i, c := range chunks {
		parts[i] = &genai.Part{InlineData: &genai.Blob{Data: c, MIMEType: mimeType}}
	}
	return fakeResponse{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}}
}

func TestSynthesizer_WrapsPCMInWAV(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	gen := &fakeGenerator{responses: []fakeResponse{
		audioResponse("audio/L16;codec=pcm;rate=16000", pcm[:4], pcm[4:]),
	}}
	synth := NewSynthesizer(newTestClient(gen))

	speech, err := synth.Synthesize(context.Background(), "Apple news analysis: mostly positive.")
	require.NoError(t, err)

	assert.Equal(t, "audio/wav", speech.MIMEType)
	assert.Equal(t, "Apple news analysis: mostly positive.", speech.Text)
	require.Len(t, speech.Audio, 44+len(pcm))
	assert.Equal(t, "RIFF", string(speech.Audio[0:4]))
	assert.Equal(t, "WAVE", string(speech.Audio[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(speech.Audio[24:28]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(speech.Audio[40:44]))
	assert.Equal(t, pcm, speech.Audio[44:])

	call := gen.calls[0]
	assert.Equal(t, "tts-model", call.model)
	assert.Equal(t, []string{"AUDIO"}, call.config.ResponseModalities)
	assert.Equal(t, "Kore", call.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestSynthesizer_PassesThroughEncodedAudio(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{audioResponse("audio/mpeg", []byte("ID3..."))}}

	speech, err := NewSynthesizer(newTestClient(gen)).Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", speech.MIMEType)
	assert.Equal(t, []byte("ID3..."), speech.Audio)
}

func TestSynthesizer_NoAudio(t *testing.T) {
	gen := &fakeGenerator{responses: []fakeResponse{textResponse("I cannot speak")}}

	_, err := NewSynthesizer(newTestClient(gen)).Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestPCMRate(t *testing.T) {
	rate, ok := pcmRate("audio/L16;codec=pcm;rate=24000")
	assert.True(t, ok)
	assert.Equal(t, 24000, rate)

	rate, ok = pcmRate("audio/pcm")
	assert.True(t, ok)
	assert.Equal(t, defaultSampleRate, rate)

	_, ok = pcmRate("audio/wav")
	assert.False(t, ok)

	_, ok = pcmRate("")
	assert.False(t, ok)
}
