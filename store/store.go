// Package store persists profiles and accounts with gorm.
//
// Every operation runs on the *gorm.DB it was constructed with. Callers that
// need a context or a transaction pass db.WithContext(ctx) or a transaction.
package store

import (
	"time"

	"github.com/davecheney/asap/internal/snowflake"
)

// AllTables returns a slice of all tables in the database.
func AllTables() []any {
	return []any{
		&Profile{}, &CustomField{}, &SigningKey{}, &Relation{},
		&Account{},
		&ProfileRefreshRequest{},
	}
}

type Request struct {
	ID uint32 `gorm:"primarykey;"`
	// CreatedAt is the time the request was created.
	CreatedAt time.Time
	// UpdatedAt is the time the request was last updated.
	UpdatedAt time.Time
	// Attempts is the number of times the request has been attempted.
	Attempts uint32 `gorm:"not null;default:0"`
	// LastAttempt is the time the request was last attempted.
	LastAttempt time.Time
	// LastResult is the result of the last attempt if it failed.
	LastResult string `gorm:"type:text;"`
}

// ProfileRefreshRequest is a request to dereference a profile again.
type ProfileRefreshRequest struct {
	Request
	// ProfileID is the ID of the profile to refresh.
	ProfileID snowflake.ID `gorm:"uniqueIndex;not null;"`
	// Profile is the profile to refresh.
	Profile *Profile `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
}
