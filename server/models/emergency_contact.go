package models

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidContactEmail = errors.New("invalid email format")
	ErrDuplicateContact    = errors.New("contact already exists")
	ErrContactNotFound     = errors.New("contact not found in emergency contacts list")
)

// Matches 'local@domain.tld' shaped addresses, nothing fancier
var contactEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmergencyContact is a single member of a user's emergency-contact set.
// Emails are always persisted lower-cased, and the (user_id, email) unique
// index backstops the application-level dedup.
type EmergencyContact struct {
	BaseModel
	UserID uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_contact_per_user"`
	Email  string `json:"email" gorm:"not null;uniqueIndex:idx_contact_per_user"`
}

func IsValidContactEmail(email string) bool {
	return contactEmailPattern.MatchString(email)
}

// NormalizeContactEmails lower-cases, trims & de-duplicates the given emails,
// preserving first-seen order. Every contact mutator goes through this, so
// the uniqueness invariant never depends on who the caller was.
func NormalizeContactEmails(emails []string) []string {
	seen := make(map[string]bool)
	normalized := []string{}

	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || seen[email] {
			continue
		}

		seen[email] = true
		normalized = append(normalized, email)
	}

	return normalized
}
