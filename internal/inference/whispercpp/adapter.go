// Package whispercpp runs local transcription through the whisper.cpp CLI.
package whispercpp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"live-transcription-service/internal/audio"
	"live-transcription-service/internal/inference"
)

const binaryName = "whisper-cli"

// Adapter shells out to whisper-cli for each window. The window's PCM is
// wrapped in a WAV header and handed over as a temp file, which is what the
// CLI expects.
type Adapter struct {
	modelPath string
	language  string
	threads   int
}

// New creates a whisper.cpp adapter. modelPath must point at a ggml model
// file; language may be empty for auto-detection; threads 0 lets the CLI
// pick.
func New(modelPath, language string, threads int) (*Adapter, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model %s: %w", modelPath, err)
	}
	return &Adapter{modelPath: modelPath, language: language, threads: threads}, nil
}

// Transcribe writes the window to a temp WAV file and runs whisper-cli on it.
func (a *Adapter) Transcribe(ctx context.Context, pcm []byte, format audio.Format) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	bin, err := exec.LookPath(binaryName)
	if err != nil {
		return "", fmt.Errorf("%w: %s not in PATH", inference.ErrUnavailable, binaryName)
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("transcribe-%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(tmp, audio.WAV(pcm, format), 0600); err != nil {
		return "", fmt.Errorf("%w: write temp wav: %v", inference.ErrFailed, err)
	}
	defer os.Remove(tmp)

	lang := a.language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", a.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", tmp,
	}
	if a.threads > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", a.threads))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().
			Err(err).
			Dur("elapsed", time.Since(start)).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("whisper-cli failed")
		return "", fmt.Errorf("%w: %s: %v", inference.ErrFailed, binaryName, err)
	}

	text := strings.TrimSpace(stdout.String())
	log.Debug().
		Int("pcm_bytes", len(pcm)).
		Dur("elapsed", time.Since(start)).
		Msg("window transcribed")
	return text, nil
}

// SupportsFormat accepts 16kHz mono LINEAR16, the input whisper.cpp expects.
func (a *Adapter) SupportsFormat(f audio.Format) bool {
	return f.Encoding == audio.EncodingLinear16 && f.SampleRateHz == 16000 && f.Channels == 1
}
