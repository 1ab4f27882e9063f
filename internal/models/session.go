package models

import "github.com/google/uuid"

// Session is the root entity for a grading session. It is created by the
// session_created lifecycle event and deactivated exactly once by
// session_ended; rows are never deleted so the review API can keep reading
// them after the session is over.
type Session struct {
	Base
	ExternalID  string `gorm:"size:255;uniqueIndex;not null" json:"external_id"`
	Title       string `gorm:"size:255" json:"title"`
	Description string `gorm:"size:500" json:"description"`
	Active      bool   `gorm:"not null" json:"active"`
}

// Group is a set of students submitting together. External ids are unique
// within their session, never globally.
type Group struct {
	Base
	SessionID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_group_session_external" json:"session_id"`
	ExternalID string    `gorm:"size:255;not null;uniqueIndex:uniq_group_session_external" json:"external_id"`
	Session    Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// User is a student participating in a session, optionally as part of a group.
type User struct {
	Base
	SessionID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uniq_user_session_external" json:"session_id"`
	ExternalID string     `gorm:"size:255;not null;uniqueIndex:uniq_user_session_external" json:"external_id"`
	Fullname   string     `gorm:"size:255" json:"fullname"`
	GroupID    *uuid.UUID `gorm:"type:uuid" json:"group_id"`
	Session    Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Group      *Group     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"group,omitempty"`
}
