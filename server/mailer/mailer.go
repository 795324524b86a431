package mailer

import (
	"fmt"

	"github.com/beaconhq/beacon/shared"
	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"
)

// Mailer delivers a single html email & reports the provider message id.
// Failures must surface to the caller so fan-out code can record them
// per recipient.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) (string, error)
}

type Client struct {
	dialer   *gomail.Dialer
	config   shared.SmtpConfig
	testMode bool
}

func NewClient(config shared.SmtpConfig, testMode bool) *Client {
	return &Client{
		dialer:   gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		config:   config,
		testMode: testMode,
	}
}

func (client *Client) SendEmail(to, subject, htmlBody string) (string, error) {
	messageID := fmt.Sprintf("<%v@beacon>", uuid.NewString())

	// No real smtp delivery in test mode
	if client.testMode {
		return messageID, nil
	}

	message := gomail.NewMessage()
	message.SetAddressHeader("From", client.config.From, "Beacon Alerts")
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetHeader("Message-ID", messageID)
	message.SetBody("text/html", htmlBody)

	if err := client.dialer.DialAndSend(message); err != nil {
		return "", err
	}

	return messageID, nil
}
