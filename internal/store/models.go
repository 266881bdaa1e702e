// Package store persists recordings, their raw segments and cleaned
// transcripts.
package store

import (
	"encoding/json"

	"github.com/pitabwire/frame/data"
)

// Recording statuses.
const (
	StatusPending   = "pending"
	StatusUploading = "uploading"
	StatusUploaded  = "uploaded"
	StatusCleaned   = "cleaned"
)

// Recording is one captured session: raw segments come in, a cleaned
// transcript comes out.
type Recording struct {
	data.BaseModel

	Name         string       `gorm:"type:varchar(255);not null"                     json:"name"`
	DeviceID     string       `gorm:"type:varchar(100);index:idx_rec_device"         json:"device_id,omitempty"`
	ContentHash  string       `gorm:"type:varchar(64);index:idx_rec_hash"            json:"content_hash,omitempty"`
	Status       string       `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Transcript   string       `gorm:"type:text"                                      json:"transcript,omitempty"`
	Speakers     SpeakersJSON `gorm:"type:jsonb;default:'{}'"                        json:"speakers,omitempty"`
	SegmentCount int          `gorm:"default:0"                                      json:"segment_count"`
	LineCount    int          `gorm:"default:0"                                      json:"line_count"`
	DurationSec  float64      `gorm:"default:0"                                      json:"duration_sec"`
}

func (Recording) TableName() string { return "recordings" }

// SpeakersJSON is a custom GORM type for JSONB storage of the raw-label to
// canonical-name map.
type SpeakersJSON map[string]string

func (s SpeakersJSON) Value() (interface{}, error) {
	if s == nil {
		return json.Marshal(map[string]string{})
	}
	return json.Marshal(s)
}

func (s *SpeakersJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		*s = SpeakersJSON{}
		return nil
	}
}

// SegmentRecord keeps one raw segment as received, for audit and
// reprocessing.
type SegmentRecord struct {
	data.BaseModel

	RecordingID string   `gorm:"type:varchar(50);not null;index:idx_seg_recording" json:"recording_id"`
	Speaker     string   `gorm:"type:varchar(255)"                                  json:"speaker,omitempty"`
	SpeakerID   *int     `gorm:"default:null"                                       json:"speaker_id,omitempty"`
	Text        string   `gorm:"type:text"                                          json:"text"`
	StartSec    *float64 `gorm:"default:null"                                       json:"start,omitempty"`
	EndSec      *float64 `gorm:"default:null"                                       json:"end,omitempty"`
	Confidence  *float64 `gorm:"default:null"                                       json:"confidence,omitempty"`
}

func (SegmentRecord) TableName() string { return "segment_records" }
