package core

import (
	"github.com/google/uuid"
)

// NewID returns a random identifier for tasks and firing records.
func NewID() string {
	return uuid.NewString()
}
