// Command testclient sends one WAV file through the non-streaming endpoint
// and prints the transcript.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const wavHeaderSize = 44

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	serverURL := flag.String("server", "http://localhost:8080/v1/transcribe", "Transcribe endpoint")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("not a valid WAV file")
	}
	sampleRate := binary.LittleEndian.Uint32(header[24:28])

	pcm, err := io.ReadAll(f)
	if err != nil {
		log.Fatalf("failed to read audio: %v", err)
	}

	body, err := json.Marshal(map[string]any{
		"audio_data":  base64.StdEncoding.EncodeToString(pcm),
		"format":      "pcm",
		"sample_rate": int(sampleRate),
	})
	if err != nil {
		log.Fatalf("failed to marshal request: %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(*serverURL, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
		Text   string `json:"text"`
		Code   string `json:"code"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	if result.Status != "success" {
		log.Fatalf("transcription failed: http=%d code=%s error=%s", resp.StatusCode, result.Code, result.Error)
	}
	log.Printf("transcript (%d bytes audio): %s", len(pcm), result.Text)
}
