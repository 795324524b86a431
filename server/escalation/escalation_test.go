package escalation

import (
	"errors"
	"testing"
	"time"

	"github.com/beaconhq/beacon/server/cron"
	"github.com/beaconhq/beacon/server/dispatch"
	"github.com/beaconhq/beacon/server/mailer"
	"github.com/beaconhq/beacon/server/models"
	"github.com/stretchr/testify/assert"
)

func newTestScheduler(mailClient *mailer.RecordingClient) *EscalationScheduler {
	return NewEscalationScheduler(
		cron.NewCronScheduler("UTC"),
		dispatch.NewDispatcher(mailClient),
		"*/1 * * * *",
	)
}

func TestSweepExpiredRequests(t *testing.T) {
	models.InitializeTestDb()

	subject := &models.User{FirstName: "tony", LastName: "stark", Email: "stark@avengers.com"}
	assert.Nil(t, models.CreateUser(subject))
	_, err := subject.AddEmergencyContact("pepper@avengers.com")
	assert.Nil(t, err)
	_, err = subject.AddEmergencyContact("happy@avengers.com")
	assert.Nil(t, err)

	expired, err := models.CreateLocationRequest(subject.Email, "pepper@avengers.com")
	assert.Nil(t, err)
	assert.Nil(t, expired.Update(map[string]interface{}{"expires_at": time.Now().Add(-time.Minute)}))

	// A second subject whose request is still inside the window
	liveSubject := &models.User{FirstName: "spider", LastName: "man", Email: "web@avengers.com"}
	assert.Nil(t, models.CreateUser(liveSubject))
	_, err = liveSubject.AddEmergencyContact("may@avengers.com")
	assert.Nil(t, err)
	live, err := models.CreateLocationRequest(liveSubject.Email, "may@avengers.com")
	assert.Nil(t, err)

	mailClient := &mailer.RecordingClient{}
	newTestScheduler(mailClient).SweepExpiredRequests()

	refreshed, err := models.FindLocationRequest(expired.Reference)
	assert.Nil(t, err)
	assert.Equal(t, models.TIMEOUT_REQUEST, refreshed.StatusName())
	assert.NotNil(t, refreshed.RespondedAt)

	for _, contact := range []string{"pepper@avengers.com", "happy@avengers.com"} {
		notifications, err := models.UnreadNotifications(contact)
		assert.Nil(t, err)
		assert.Len(t, notifications, 1, contact)
		assert.Equal(t, models.AUTO_SOS_NOTIFICATION, notifications[0].Type)
	}
	assert.Len(t, mailClient.Deliveries, 2)

	t.Run("unexpired request is untouched", func(t *testing.T) {
		refreshed, err := models.FindLocationRequest(live.Reference)
		assert.Nil(t, err)
		assert.Equal(t, models.PENDING_REQUEST, refreshed.StatusName())

		notifications, err := models.UnreadNotifications("may@avengers.com")
		assert.Nil(t, err)
		assert.Empty(t, notifications)
	})

	t.Run("second sweep finds nothing left to escalate", func(t *testing.T) {
		newTestScheduler(mailClient).SweepExpiredRequests()

		notifications, err := models.UnreadNotifications("pepper@avengers.com")
		assert.Nil(t, err)
		assert.Len(t, notifications, 1, "timed-out request should not escalate twice")
	})
}

func TestSweepSubjectWithoutContacts(t *testing.T) {
	models.InitializeTestDb()

	subject := &models.User{FirstName: "bruce", LastName: "banner", Email: "banner@avengers.com"}
	assert.Nil(t, models.CreateUser(subject))

	request, err := models.CreateLocationRequest(subject.Email, "gone@avengers.com")
	assert.Nil(t, err)
	assert.Nil(t, request.Update(map[string]interface{}{"expires_at": time.Now().Add(-time.Minute)}))

	mailClient := &mailer.RecordingClient{}
	newTestScheduler(mailClient).SweepExpiredRequests()

	refreshed, err := models.FindLocationRequest(request.Reference)
	assert.Nil(t, err)
	assert.Equal(t, models.TIMEOUT_REQUEST, refreshed.StatusName(),
		"timeout should commit even with nobody to broadcast to")
	assert.Empty(t, mailClient.Deliveries)
}

func TestSweepIsolatesDeliveryFailures(t *testing.T) {
	models.InitializeTestDb()

	subject := &models.User{FirstName: "tony", LastName: "stark", Email: "stark@avengers.com"}
	assert.Nil(t, models.CreateUser(subject))
	_, err := subject.AddEmergencyContact("pepper@avengers.com")
	assert.Nil(t, err)
	_, err = subject.AddEmergencyContact("happy@avengers.com")
	assert.Nil(t, err)

	request, err := models.CreateLocationRequest(subject.Email, "pepper@avengers.com")
	assert.Nil(t, err)
	assert.Nil(t, request.Update(map[string]interface{}{"expires_at": time.Now().Add(-time.Minute)}))

	mailClient := &mailer.RecordingClient{
		FailFor: map[string]error{"pepper@avengers.com": errors.New("mailbox unavailable")},
	}
	newTestScheduler(mailClient).SweepExpiredRequests()

	refreshed, err := models.FindLocationRequest(request.Reference)
	assert.Nil(t, err)
	assert.Equal(t, models.TIMEOUT_REQUEST, refreshed.StatusName())

	// Both contacts keep their durable notification; only the healthy
	// mailbox got the email
	for _, contact := range []string{"pepper@avengers.com", "happy@avengers.com"} {
		notifications, err := models.UnreadNotifications(contact)
		assert.Nil(t, err)
		assert.Len(t, notifications, 1, contact)
	}
	assert.Equal(t, []string{"happy@avengers.com"}, mailClient.SentTo())
}

func TestScheduleSweeps(t *testing.T) {
	models.InitializeTestDb()

	scheduler := newTestScheduler(&mailer.RecordingClient{})
	assert.Nil(t, scheduler.ScheduleSweeps())

	assert.NotNil(t, scheduler.ScheduleSweeps(), "sweep tag must stay unique per scheduler")
}
