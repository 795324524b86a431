package models

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestEmergencyContactMutations(t *testing.T) {
	InitializeTestDb()

	user := &User{FirstName: "tony", LastName: "stark", Email: "stark@avengers.com"}
	assert.Nil(t, CreateUser(user), "Should create 'user' record")

	contacts, err := user.AddEmergencyContact("Pepper@Avengers.com")
	assert.Nil(t, err)
	assert.Equal(t, []string{"pepper@avengers.com"}, contacts, "stored form should be lower-cased")

	t.Run("rejects duplicate regardless of case", func(t *testing.T) {
		_, err := user.AddEmergencyContact("PEPPER@AVENGERS.COM")
		assert.ErrorIs(t, err, ErrDuplicateContact)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		for _, email := range []string{"not-an-email", "no@tld", "spa ce@x.com", "@x.com"} {
			_, err := user.AddEmergencyContact(email)
			assert.ErrorIs(t, err, ErrInvalidContactEmail, email)
		}
	})

	t.Run("membership check is case-insensitive", func(t *testing.T) {
		isContact, err := user.IsEmergencyContact("pePPer@aVengers.com")
		assert.Nil(t, err)
		assert.True(t, isContact)

		isContact, err = user.IsEmergencyContact("happy@avengers.com")
		assert.Nil(t, err)
		assert.False(t, isContact)
	})

	t.Run("removes case-insensitively", func(t *testing.T) {
		contacts, err := user.RemoveEmergencyContact("PEPPER@avengers.com")
		assert.Nil(t, err)
		assert.Empty(t, contacts)

		_, err = user.RemoveEmergencyContact("pepper@avengers.com")
		assert.ErrorIs(t, err, ErrContactNotFound)
	})
}

func TestSetEmergencyContacts(t *testing.T) {
	InitializeTestDb()

	user := &User{FirstName: "spider", LastName: "man", Email: "web@avengers.com"}
	assert.Nil(t, CreateUser(user))

	_, err := user.AddEmergencyContact("old@avengers.com")
	assert.Nil(t, err)

	contacts, err := user.SetEmergencyContacts([]string{"a@x.com", "A@X.COM", "b@x.com"})
	assert.Nil(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, contacts, "replace should dedupe & drop the old set")

	t.Run("all-or-nothing on invalid entry", func(t *testing.T) {
		_, err := user.SetEmergencyContacts([]string{"c@x.com", "not-an-email"})
		assert.ErrorIs(t, err, ErrInvalidContactEmail)

		current, err := user.EmergencyContactEmails()
		assert.Nil(t, err)
		assert.Equal(t, []string{"a@x.com", "b@x.com"}, current, "failed replace should leave the set untouched")
	})
}

func TestNormalizeContactEmailsProperties(t *testing.T) {
	emailGen := gen.SliceOf(gen.RegexMatch(`[a-zA-Z]{1,8}@[a-zA-Z]{1,8}\.[a-z]{2,3}`))
	properties := gopter.NewProperties(nil)

	properties.Property("normalization is idempotent", prop.ForAll(
		func(emails []string) bool {
			once := NormalizeContactEmails(emails)
			twice := NormalizeContactEmails(once)

			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		emailGen,
	))

	properties.Property("output is lower-cased with no duplicates", prop.ForAll(
		func(emails []string) bool {
			seen := map[string]bool{}
			for _, email := range NormalizeContactEmails(emails) {
				if email != strings.ToLower(email) || seen[email] {
					return false
				}
				seen[email] = true
			}
			return true
		},
		emailGen,
	))

	properties.TestingRun(t)
}
