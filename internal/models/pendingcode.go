package models

import (
	"time"
)

// PendingCode is the stored, not-yet-consumed verification code for a phone
// number. There is at most one per normalized phone key; a new request for
// the same number overwrites the previous record.
type PendingCode struct {
	PhoneKey  string    `bson:"phone_key" json:"phone_key"`
	Code      string    `bson:"code" json:"code"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	Attempts  int       `bson:"attempts" json:"attempts"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
