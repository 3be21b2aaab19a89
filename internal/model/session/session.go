package session

import (
	"fmt"
	"strconv"
	"time"
)

// Session captures one in-memory conversation; it lives for the process
// lifetime unless idle eviction is enabled.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Segments  []Segment `json:"segments"`
	LastRecap *Recap    `json:"lastRecap,omitempty"`
}

// Segment is one transcribed-and-translated audio chunk. Immutable once
// appended to a session.
type Segment struct {
	ID             string    `json:"id"`
	ChunkID        int       `json:"chunkId"`
	SourceText     string    `json:"sourceText"`
	TranslatedText string    `json:"translatedText"`
	OutputLang     string    `json:"outputLang"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Recap is the latest running summary for a session; overwritten, never
// accumulated.
type Recap struct {
	Text       string    `json:"text"`
	Model      string    `json:"model"`
	OutputLang string    `json:"outputLang"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewSegment builds a segment whose id encodes creation time and the
// caller-supplied chunk ordinal.
func NewSegment(chunkID int, sourceText, translatedText, outputLang string) Segment {
	now := time.Now().UTC()
	return Segment{
		ID:             fmt.Sprintf("seg_%s_%d", strconv.FormatInt(now.UnixMilli(), 36), chunkID),
		ChunkID:        chunkID,
		SourceText:     sourceText,
		TranslatedText: translatedText,
		OutputLang:     outputLang,
		CreatedAt:      now,
	}
}
