package models

import (
	"encoding/json"
	"time"
)

type Document struct {
	Title       string
	GeneratedAt time.Time
	Body        string
}

// Result is what the pipeline hands back to the bridge for one export request.
// On the wire a success always carries warning, null when unset, and a
// failure carries only success and error besides the request id.
type Result struct {
	ID           string  `json:"id,omitempty"`
	Success      bool    `json:"success"`
	Markdown     string  `json:"markdown,omitempty"`
	MessageCount int     `json:"messageCount,omitempty"`
	Warning      *string `json:"warning"`
	Error        string  `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	type result Result
	if r.Success {
		return json.Marshal(result(r))
	}
	return json.Marshal(struct {
		ID      string `json:"id,omitempty"`
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{r.ID, false, r.Error})
}
