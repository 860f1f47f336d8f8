// Package googlestt transcribes windows through Google Cloud Speech-to-Text.
package googlestt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/inference"
)

// Adapter implements inference.Adapter using the synchronous Recognize RPC.
// Each window is short enough to fit well under the RPC's one-minute limit.
type Adapter struct {
	client   *speech.Client
	language string
}

// New creates a Google Speech adapter. Requires GOOGLE_APPLICATION_CREDENTIALS
// to be set in the environment.
func New(ctx context.Context, language string) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &Adapter{client: c, language: language}, nil
}

// Transcribe sends the window's PCM and concatenates the top alternative of
// each result.
func (a *Adapter) Transcribe(ctx context.Context, pcm []byte, format audio.Format) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   int32(format.SampleRateHz),
			AudioChannelCount: int32(format.Channels),
			LanguageCode:      a.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		switch status.Code(err) {
		case codes.Unavailable, codes.DeadlineExceeded:
			return "", fmt.Errorf("%w: %v", inference.ErrUnavailable, err)
		default:
			return "", fmt.Errorf("%w: %v", inference.ErrFailed, err)
		}
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
	}
	return strings.Join(parts, " "), nil
}

// SupportsFormat accepts LINEAR16 at the rates the Recognize API allows.
func (a *Adapter) SupportsFormat(f audio.Format) bool {
	return f.Encoding == audio.EncodingLinear16 &&
		f.SampleRateHz >= 8000 && f.SampleRateHz <= 48000
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}
