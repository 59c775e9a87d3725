package utils

import "github.com/google/uuid"

// GenerateUUID returns a random (version 4) UUID string used as a content id.
func GenerateUUID() string {
	return uuid.NewString()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
