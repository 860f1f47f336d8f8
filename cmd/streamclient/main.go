// Command streamclient streams a WAV file to the service over WebSocket and
// prints transcript updates as they arrive.
package main

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

const chunkIntervalMs = 100

type outMsg struct {
	Type       string `json:"type"`
	Data       string `json:"data,omitempty"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type inMsg struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Chunk     uint64 `json:"chunk,omitempty"`
	Text      string `json:"text,omitempty"`
	Delta     string `json:"delta,omitempty"`
	IsFinal   bool   `json:"is_final,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	serverURL := flag.String("server", "ws://localhost:8080/v1/stream", "WebSocket endpoint")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverURL)

	// Print transcript updates while audio streams
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg inMsg
			if err := json.Unmarshal(payload, &msg); err != nil {
				continue
			}
			switch msg.Status {
			case "session":
				log.Printf("Session opened: %s", msg.SessionID)
			case "transcription":
				if msg.IsFinal {
					log.Printf("FINAL: %s", msg.Text)
					return
				}
				log.Printf("delta: %q -> %s", msg.Delta, msg.Text)
			case "error":
				log.Printf("Error: code=%s message=%s", msg.Code, msg.Message)
			}
		}
	}()

	// 100ms chunks at the file's native byte rate
	chunkSize := int(sampleRate) * int(numChannels) * int(bitsPerSample) / 8 * chunkIntervalMs / 1000
	buf := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		msg := outMsg{
			Type:       "audio_chunk",
			Data:       base64.StdEncoding.EncodeToString(buf[:n]),
			Format:     "pcm",
			SampleRate: int(sampleRate),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatalf("Failed to send chunk: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)
		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		// Simulate real-time streaming
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, time.Since(startTime))
	log.Println("Ending session, waiting for final transcript...")

	if err := conn.WriteJSON(outMsg{Type: "end"}); err != nil {
		log.Fatalf("Failed to send end: %v", err)
	}

	select {
	case <-done:
	case <-time.After(60 * time.Second):
		log.Fatal("Timed out waiting for final transcript")
	}
}
