package dispatch

import (
	"github.com/beaconhq/beacon/server/logger"
	"github.com/beaconhq/beacon/server/mailer"
	"github.com/beaconhq/beacon/server/models"
	"github.com/pkg/errors"
)

var logg = logger.NewLogger()

// Alert is one logical event to fan out - the same notification record &
// email content goes to every recipient.
type Alert struct {
	Type         string
	Message      string
	EmailSubject string
	EmailBody    string
	Data         map[string]interface{}
}

type RecipientResult struct {
	Email          string `json:"email"`
	NotificationID uint   `json:"notificationId,omitempty"`
	Error          string `json:"error,omitempty"`
}

type BroadcastResult struct {
	TotalRecipients int               `json:"totalRecipients"`
	Successful      []RecipientResult `json:"successful"`
	Failed          []RecipientResult `json:"failed"`
}

func (result *BroadcastResult) AllFailed() bool {
	return len(result.Successful) == 0
}

func (result *BroadcastResult) PartialFailure() bool {
	return len(result.Failed) > 0 && len(result.Successful) > 0
}

type Dispatcher struct {
	mailClient mailer.Mailer
}

func NewDispatcher(mailClient mailer.Mailer) *Dispatcher {
	return &Dispatcher{mailClient: mailClient}
}

// Broadcast delivers the alert to each recipient independently: a stored
// notification first, then an email attempt. One recipient's failure never
// short-circuits the rest; every outcome lands in the returned result.
func (dispatcher *Dispatcher) Broadcast(alert Alert, recipients []string) *BroadcastResult {
	result := &BroadcastResult{
		TotalRecipients: len(recipients),
		Successful:      []RecipientResult{},
		Failed:          []RecipientResult{},
	}

	for _, recipient := range recipients {
		notification, err := models.CreateNotification(recipient, alert.Type, alert.Message, alert.Data)
		if err != nil {
			err = errors.Wrap(err, "create notification")
			logg.Errorf("broadcast %v to %v: %v", alert.Type, recipient, err)
			result.Failed = append(result.Failed, RecipientResult{Email: recipient, Error: err.Error()})
			continue
		}

		_, err = dispatcher.mailClient.SendEmail(recipient, alert.EmailSubject, alert.EmailBody)
		if err != nil {
			// The stored notification stands even when email delivery fails
			err = errors.Wrap(err, "send email")
			logg.Errorf("broadcast %v to %v: %v", alert.Type, recipient, err)
			result.Failed = append(result.Failed, RecipientResult{
				Email:          recipient,
				NotificationID: notification.ID,
				Error:          err.Error(),
			})
			continue
		}

		result.Successful = append(result.Successful, RecipientResult{
			Email:          recipient,
			NotificationID: notification.ID,
		})
	}

	return result
}
