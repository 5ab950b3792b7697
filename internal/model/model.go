package model

import "time"

// Occurrence is one concrete instance of a configured event, as listed by
// the events command and the /api/events endpoint.
type Occurrence struct {
	// SourceID is "config" or the ICS source the event was imported from.
	SourceID string `json:"source_id"`

	Name string `json:"name"`
	Raw  string `json:"raw"`

	// InstanceKey uniquely identifies the occurrence (name + first day).
	InstanceKey string `json:"instance_key"`

	Recurring bool `json:"recurring"`

	// Start is the first day at 00:00, End the last day at 23:59:59.999.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Folder is the path a file dated inside this occurrence is moved to.
	Folder []string `json:"folder"`
}
