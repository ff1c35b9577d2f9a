package utils

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateNanoIDWithPrefix returns an id like "atch_k3jd0..." suitable for
// primary keys on rows we mint ourselves.
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}

// EmailRecordID builds the synthetic, deterministic id for a synced email.
// The same provider message for the same mailbox always maps to the same id,
// which is what lets repeated syncs collapse into a single row.
func EmailRecordID(userEmail, gmailID string) string {
	return fmt.Sprintf("%s_%s", strings.ToLower(userEmail), gmailID)
}
