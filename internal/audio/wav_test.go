package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestWAV_Header(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms at 16kHz mono
	f := DefaultFormat()

	wav := WAV(pcm, f)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("expected 1 channel, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("expected sample rate 16000, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("expected data size %d, got %d", len(pcm), got)
	}
}

func TestFormat_Conversions(t *testing.T) {
	f := DefaultFormat()

	if f.BytesPerSecond() != 32000 {
		t.Errorf("expected 32000 bytes/s, got %d", f.BytesPerSecond())
	}
	if got := f.BytesFor(2 * time.Second); got != 64000 {
		t.Errorf("expected 64000 bytes for 2s, got %d", got)
	}
	if got := f.Duration(32000); got != time.Second {
		t.Errorf("expected 1s for 32000 bytes, got %v", got)
	}
}

func TestFormat_BytesFor_FrameAligned(t *testing.T) {
	f := Format{Encoding: EncodingLinear16, SampleRateHz: 44100, Channels: 2}

	n := f.BytesFor(500 * time.Millisecond)
	if n%4 != 0 {
		t.Errorf("expected frame-aligned byte count, got %d", n)
	}
}
