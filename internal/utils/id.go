package utils

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random connection identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseID parses a positive decimal id such as a poll, option or user id.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
