// Package models defines the data structures for transcript events.
package models

// TranscriptDelta represents newly committed text from one inference window.
type TranscriptDelta struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	Timestamp     int64  `json:"timestamp"`
	Window        int    `json:"window"`
	Delta         string `json:"delta"`
	Transcript    string `json:"transcript"`
	Discontinuity bool   `json:"discontinuity,omitempty"`
}

// TranscriptFinal represents the complete transcript emitted when a session
// closes.
type TranscriptFinal struct {
	EventType  string `json:"eventType"`
	SessionID  string `json:"sessionId"`
	Timestamp  int64  `json:"timestamp"`
	Windows    int    `json:"windows"`
	Transcript string `json:"transcript"`
	AudioBytes int64  `json:"audioBytes"`
}
