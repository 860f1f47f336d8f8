// Package audio defines the audio format descriptor shared by the engine
// and the inference adapters.
package audio

import (
	"fmt"
	"strings"
	"time"
)

// EncodingLinear16 is 16-bit little-endian PCM, the only encoding the
// streaming engine accepts on the wire.
const EncodingLinear16 = "LINEAR16"

// Format describes the raw audio a session carries.
type Format struct {
	Encoding     string
	SampleRateHz int
	Channels     int
}

// DefaultFormat returns 16kHz mono LINEAR16, the rate the local model path
// consumes natively.
func DefaultFormat() Format {
	return Format{
		Encoding:     EncodingLinear16,
		SampleRateHz: 16000,
		Channels:     1,
	}
}

// ParseEncoding normalizes a client-supplied encoding name. The common PCM
// aliases map to LINEAR16; anything else passes through uppercased for the
// backend's format check to reject.
func ParseEncoding(s string) string {
	switch strings.ToLower(s) {
	case "", "pcm", "pcm16", "linear16":
		return EncodingLinear16
	default:
		return strings.ToUpper(s)
	}
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.Encoding, f.SampleRateHz, f.Channels)
}

// BytesPerSecond returns the byte rate of the format. LINEAR16 is 2 bytes
// per sample per channel.
func (f Format) BytesPerSecond() int {
	return f.SampleRateHz * f.Channels * 2
}

// BytesFor converts a duration into a byte count at this format's rate,
// aligned down to a whole sample frame.
func (f Format) BytesFor(d time.Duration) int64 {
	n := int64(d) * int64(f.BytesPerSecond()) / int64(time.Second)
	frame := int64(f.Channels * 2)
	return n - n%frame
}

// Duration returns the playback time of n bytes at this format's rate.
func (f Format) Duration(n int64) time.Duration {
	bps := int64(f.BytesPerSecond())
	if bps == 0 {
		return 0
	}
	return time.Duration(n * int64(time.Second) / bps)
}
