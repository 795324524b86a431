package mailer

import "sync"

type Delivery struct {
	To      string
	Subject string
	Body    string
}

// RecordingClient is a Mailer for tests - it records deliveries instead of
// dialing smtp & fails on demand for the recipients listed in FailFor.
type RecordingClient struct {
	mu         sync.Mutex
	Deliveries []Delivery
	FailFor    map[string]error
}

func (client *RecordingClient) SendEmail(to, subject, htmlBody string) (string, error) {
	client.mu.Lock()
	defer client.mu.Unlock()

	if err, ok := client.FailFor[to]; ok {
		return "", err
	}

	client.Deliveries = append(client.Deliveries, Delivery{To: to, Subject: subject, Body: htmlBody})
	return "<test@beacon>", nil
}

// SentTo returns every recipient a delivery was recorded for
func (client *RecordingClient) SentTo() []string {
	client.mu.Lock()
	defer client.mu.Unlock()

	recipients := []string{}
	for _, delivery := range client.Deliveries {
		recipients = append(recipients, delivery.To)
	}

	return recipients
}
