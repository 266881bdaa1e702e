package hooks

import (
	"strings"

	"github.com/cleanscribe/cleanscribe/pkg/transcript"
)

// HookConfig describes how to call an external enrichment endpoint.
type HookConfig struct {
	URL        string            `yaml:"url"         json:"url"`
	AuthType   string            `yaml:"auth_type"   json:"auth_type"`   // "bearer", "hmac", "none"
	AuthSecret string            `yaml:"auth_secret" json:"auth_secret"` // token or HMAC key
	TimeoutSec int               `yaml:"timeout_sec" json:"timeout_sec"`
	Headers    map[string]string `yaml:"headers"     json:"headers,omitempty"`
}

// HookRequest is the payload sent to an enrichment endpoint: the cleaned
// transcript before any external naming is applied.
type HookRequest struct {
	RecordingID string            `json:"recording_id"`
	Transcript  string            `json:"transcript"`
	Speakers    map[string]string `json:"speakers"`
}

// HookResponse is the expected response from an enrichment endpoint. All
// fields are optional; an empty response leaves the result untouched.
type HookResponse struct {
	Transcript string            `json:"transcript,omitempty"`
	Renames    map[string]string `json:"renames,omitempty"` // canonical name -> display name
	Data       map[string]any    `json:"data,omitempty"`
}

// ApplyTo folds the hook response back into an engine result. A replacement
// transcript wins over renames.
func (hr *HookResponse) ApplyTo(res transcript.Result) transcript.Result {
	if hr.Transcript != "" {
		res.Transcript = hr.Transcript
		return res
	}
	if len(hr.Renames) == 0 {
		return res
	}

	speakers := make(map[string]string, len(res.Speakers))
	for label, canonical := range res.Speakers {
		if display, ok := hr.Renames[canonical]; ok {
			speakers[label] = display
		} else {
			speakers[label] = canonical
		}
	}

	lines := strings.Split(res.Transcript, "\n")
	for i, line := range lines {
		for canonical, display := range hr.Renames {
			if strings.HasPrefix(line, canonical+": ") {
				lines[i] = display + line[len(canonical):]
				break
			}
		}
	}

	return transcript.Result{
		Transcript: strings.Join(lines, "\n"),
		Speakers:   speakers,
	}
}
