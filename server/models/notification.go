package models

import (
	"encoding/json"
	"strings"
)

const (
	SOS_NOTIFICATION              = "SOS"
	AUTO_SOS_NOTIFICATION         = "AUTO_SOS"
	LOCATION_REQUEST_NOTIFICATION = "LOCATION_REQUEST"
	LOCATION_SHARED_NOTIFICATION  = "LOCATION_SHARED"
	LOCATION_DENIED_NOTIFICATION  = "LOCATION_DENIED"
)

// Cap on how many unread notifications a single poll returns
const MAX_NOTIFICATIONS_PER_POLL = 50

// Notification is a durable mailbox entry for one recipient. Records are
// only ever created & read-marked, never deleted.
type Notification struct {
	BaseModel
	ToEmail string `json:"to_email" gorm:"not null;index:idx_recipient_unread"`
	Type    string `json:"type" gorm:"not null"`
	Message string `json:"message" gorm:"not null"`
	Data    string `json:"data"`
	Read    bool   `json:"read" gorm:"default:false;index:idx_recipient_unread"`
}

func CreateNotification(toEmail, notificationType, message string, data map[string]interface{}) (*Notification, error) {
	dataAsJson, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	notification := &Notification{
		ToEmail: strings.ToLower(strings.TrimSpace(toEmail)),
		Type:    notificationType,
		Message: message,
		Data:    string(dataAsJson),
	}

	err = db.Create(notification).Error
	if err != nil {
		return nil, err
	}

	return notification, nil
}

func FindNotification(id interface{}) (*Notification, error) {
	notification := Notification{}
	err := db.First(&notification, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &notification, nil
}

// UnreadNotifications returns the recipient's unread notifications, newest
// first, capped at MAX_NOTIFICATIONS_PER_POLL.
func UnreadNotifications(email string) ([]Notification, error) {
	notifications := []Notification{}

	err := db.Where("to_email = ? AND read = ?", strings.ToLower(strings.TrimSpace(email)), false).
		Order("created_at desc, id desc").
		Limit(MAX_NOTIFICATIONS_PER_POLL).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (notification *Notification) MarkAsRead() error {
	return db.Model(notification).Update("read", true).Error
}

// MarkAllAsRead read-marks every unread notification for the recipient &
// returns how many were updated.
func MarkAllAsRead(email string) (int64, error) {
	result := db.Model(&Notification{}).
		Where("to_email = ? AND read = ?", strings.ToLower(strings.TrimSpace(email)), false).
		Update("read", true)

	return result.RowsAffected, result.Error
}
