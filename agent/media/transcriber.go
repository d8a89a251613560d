// Package media turns inbound WhatsApp attachments into text or structured
// data through the OpenAI API.
package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	twiliox "github.com/tanpawarit/neemo/pkg/twilio"
)

const (
	defaultTranscriptionModel = "whisper-1"
	transcriptionLanguage     = "ar"
	transcriptionPrompt       = "Transcribe this Moroccan Darija audio which may contain mixed French/Arabic business terms."
)

// Downloader fetches attachment bytes; *twilio.MediaDownloader satisfies it.
type Downloader interface {
	Download(ctx context.Context, mediaURL string) (*twiliox.Media, error)
}

var _ contractx.Transcriber = (*Transcriber)(nil)

type Transcriber struct {
	client     *openaisdk.Client
	downloader Downloader
	model      string
}

func NewTranscriber(client *openaisdk.Client, downloader Downloader, model string) *Transcriber {
	if strings.TrimSpace(model) == "" {
		model = defaultTranscriptionModel
	}
	return &Transcriber{client: client, downloader: downloader, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, mediaURL string) (string, error) {
	m, err := t.downloader.Download(ctx, mediaURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrMediaDownload, err)
	}

	log.Ctx(ctx).Debug().Int("bytes", len(m.Data)).Str("content_type", m.ContentType).Msg("audio downloaded, sending to transcription")

	res, err := t.client.Audio.Transcriptions.New(ctx, openaisdk.AudioTranscriptionNewParams{
		File:     openaisdk.File(bytes.NewReader(m.Data), audioFilename(m.ContentType), m.ContentType),
		Model:    openaisdk.AudioModel(t.model),
		Language: openaisdk.String(transcriptionLanguage),
		Prompt:   openaisdk.String(transcriptionPrompt),
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription: %v", contractx.ErrModelInvoke, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcription", contractx.ErrSchemaViolation)
	}
	return text, nil
}

// audioFilename picks an extension the transcription endpoint recognizes.
// WhatsApp voice notes are ogg/opus.
func audioFilename(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a", "audio/aac":
		return "audio.m4a"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "audio.wav"
	case "audio/webm":
		return "audio.webm"
	default:
		return "audio.ogg"
	}
}
