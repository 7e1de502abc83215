package model

import "time"

// AccountMapping binds a masked account identifier seen in messages from one
// institution to an internal account reference.
type AccountMapping struct {
	CreatedAt   time.Time
	ID          string
	AccountRef  string
	Institution string
	Identifier  string
	IsActive    bool
}
