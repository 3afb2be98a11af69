package gemini

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/phrazzld/newslens/internal/domain"
	"google.golang.org/genai"
)

const (
	defaultSampleRate = 24000
	wavMIMEType       = "audio/wav"
)

// Synthesizer turns text into speech with a Gemini TTS model.
type Synthesizer struct {
	client *Client
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(client *Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize implements the pipeline's Synthesizer. Raw PCM returned by the
// model is wrapped in a WAV container so clients can play it directly.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (domain.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Speech{}, ErrEmptyText
	}

	cfg := s.client.config
	content, err := s.client.generate(ctx, cfg.SpeechModelName, text, &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.VoiceName},
			},
		},
	})
	if err != nil {
		return domain.Speech{}, err
	}

	var (
		audio    []byte
		mimeType string
	)
	for _, part := range content.Parts {
		if part == nil || part.InlineData == nil {
			continue
		}
		audio = append(audio, part.InlineData.Data...)
		if mimeType == "" {
			mimeType = part.InlineData.MIMEType
		}
	}
	if len(audio) == 0 {
		return domain.Speech{}, fmt.Errorf("%w: no audio in response", ErrInvalidResponse)
	}

	if rate, ok := pcmRate(mimeType); ok {
		audio = pcmToWAV(audio, rate)
		mimeType = wavMIMEType
	}
	return domain.Speech{Text: text, Audio: audio, MIMEType: mimeType}, nil
}

// pcmRate reports whether mimeType is raw 16-bit PCM and its sample rate.
func pcmRate(mimeType string) (int, bool) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(mediaType) {
	case "audio/l16", "audio/pcm":
	default:
		return 0, false
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		rate = defaultSampleRate
	}
	return rate, true
}

// pcmToWAV prepends a RIFF header for mono 16-bit little-endian PCM.
func pcmToWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
