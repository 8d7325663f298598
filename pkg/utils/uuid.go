package utils

import "github.com/google/uuid"

// GenerateUUID returns a random v4 UUID string, used for scan and store IDs.
func GenerateUUID() string {
	return uuid.NewString()
}
