package domain

// TranscriptEntry is immutable once appended.
type TranscriptEntry struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}
