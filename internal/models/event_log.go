package models

import "gorm.io/datatypes"

// Event journal outcomes.
const (
	EventOutcomeProcessed = "processed"
	EventOutcomeDropped   = "dropped"
	EventOutcomeFailed    = "failed"
)

// EventLog journals every lifecycle envelope the dispatcher saw, including
// the ones it dropped. Written outside the handler transaction so a rolled
// back event still leaves a trace.
type EventLog struct {
	Base
	Kind              string         `gorm:"size:64;not null;index" json:"kind"`
	ExternalSessionID string         `gorm:"size:255;index" json:"external_session_id"`
	Outcome           string         `gorm:"size:32;not null" json:"outcome"`
	Reason            string         `gorm:"size:1000" json:"reason"`
	Payload           datatypes.JSON `json:"payload"`
}
