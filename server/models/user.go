package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type User struct {
	BaseModel
	FirstName         string             `json:"first_name"`
	LastName          string             `json:"last_name"`
	Email             string             `json:"email" validate:"required,email" gorm:"not null;unique"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func CreateUser(user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return db.Create(user).Error
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func DeleteUser(id interface{}) error {
	return db.Delete(&User{}, id).Error
}

// EmergencyContactEmails returns the user's current contact set, in the
// order the contacts were added.
func (user *User) EmergencyContactEmails() ([]string, error) {
	contacts := []EmergencyContact{}

	err := db.Order("id asc").Find(&contacts, "user_id = ?", user.ID).Error
	if err != nil {
		return nil, err
	}

	emails := []string{}
	for _, contact := range contacts {
		emails = append(emails, contact.Email)
	}

	return emails, nil
}

// IsEmergencyContact reports whether candidateEmail is a member of the
// user's contact set. Membership is case-insensitive.
func (user *User) IsEmergencyContact(candidateEmail string) (bool, error) {
	var count int64

	err := db.Model(&EmergencyContact{}).
		Where("user_id = ? AND email = ?", user.ID, strings.ToLower(strings.TrimSpace(candidateEmail))).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (user *User) AddEmergencyContact(contactEmail string) ([]string, error) {
	if !IsValidContactEmail(contactEmail) {
		return nil, ErrInvalidContactEmail
	}

	normalized := NormalizeContactEmails([]string{contactEmail})[0]

	isContact, err := user.IsEmergencyContact(normalized)
	if err != nil {
		return nil, err
	}
	if isContact {
		return nil, ErrDuplicateContact
	}

	err = db.Create(&EmergencyContact{UserID: user.ID, Email: normalized}).Error
	if err != nil {
		return nil, err
	}

	return user.EmergencyContactEmails()
}

func (user *User) RemoveEmergencyContact(contactEmail string) ([]string, error) {
	normalized := NormalizeContactEmails([]string{contactEmail})
	if len(normalized) == 0 {
		return nil, ErrContactNotFound
	}

	result := db.Where("user_id = ? AND email = ?", user.ID, normalized[0]).Delete(&EmergencyContact{})
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return nil, ErrContactNotFound
	}

	return user.EmergencyContactEmails()
}

// SetEmergencyContacts atomically replaces the user's contact set. Every
// entry is validated before anything is written, so a single bad email
// leaves the existing set untouched.
func (user *User) SetEmergencyContacts(contactEmails []string) ([]string, error) {
	for _, email := range contactEmails {
		if !IsValidContactEmail(email) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContactEmail, email)
		}
	}

	normalized := NormalizeContactEmails(contactEmails)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&EmergencyContact{}).Error; err != nil {
			return err
		}

		for _, email := range normalized {
			if err := tx.Create(&EmergencyContact{UserID: user.ID, Email: email}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user.EmergencyContactEmails()
}
