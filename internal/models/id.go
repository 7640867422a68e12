package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a 32-character identifier for primary keys.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
