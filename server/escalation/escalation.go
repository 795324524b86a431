package escalation

import (
	"github.com/beaconhq/beacon/colors"
	"github.com/beaconhq/beacon/server/dispatch"
	"github.com/beaconhq/beacon/server/logger"
	"github.com/beaconhq/beacon/server/models"
	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const SWEEP_JOB_TAG = "escalate_expired_location_requests"

var logg = logger.NewLogger()

// EscalationScheduler periodically sweeps PENDING location requests past
// their expiry, times them out & broadcasts an AUTO_SOS to the subject's
// current emergency contacts.
type EscalationScheduler struct {
	cronScheduler *gocron.Scheduler
	dispatcher    *dispatch.Dispatcher
	sweepSchedule string
}

func NewEscalationScheduler(
	cronScheduler *gocron.Scheduler,
	dispatcher *dispatch.Dispatcher,
	sweepSchedule string,
) *EscalationScheduler {
	return &EscalationScheduler{
		cronScheduler: cronScheduler,
		dispatcher:    dispatcher,
		sweepSchedule: sweepSchedule,
	}
}

// ScheduleSweeps registers the recurring sweep with the cron scheduler
func (scheduler *EscalationScheduler) ScheduleSweeps() error {
	_, err := scheduler.cronScheduler.Cron(scheduler.sweepSchedule).
		Tag(SWEEP_JOB_TAG).
		Do(scheduler.SweepExpiredRequests)
	if err != nil {
		return errors.Wrap(err, "schedule expired-request sweeps")
	}

	logg.Infof("Expired location request sweep scheduled with '%v'", scheduler.sweepSchedule)
	return nil
}

// SweepExpiredRequests processes every expired PENDING request. Each record
// is handled independently - one record's failure is logged & the sweep
// moves on. Nothing here is allowed to panic the scheduler.
func (scheduler *EscalationScheduler) SweepExpiredRequests() {
	requests, err := models.ExpiredPendingRequests()
	if err != nil {
		logg.Errorf("expired-request sweep: %v", err)
		return
	}

	if len(requests) == 0 {
		return
	}

	escalated := 0
	for i := range requests {
		if err := scheduler.escalate(&requests[i]); err != nil {
			logg.Errorf("escalating request %v: %v", requests[i].Reference, err)
			continue
		}
		escalated++
	}

	logg.Infof(colors.Blue("%v expired location request(s) found"), len(requests))
	logg.Infof(colors.Blue("%v auto-sos escalation(s) completed"), escalated)
}

func (scheduler *EscalationScheduler) escalate(request *models.LocationRequest) error {
	err := request.TimeOut()

	// Another transition won the race; there's nothing to escalate
	var alreadyResolved *models.AlreadyResolvedError
	if errors.As(err, &alreadyResolved) {
		logg.Infof("request %v resolved to %v before the sweep reached it",
			request.Reference, alreadyResolved.Status)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "timeout transition")
	}

	// Broadcast to the subject's contact list as it stands NOW, not as it
	// stood when the request was created
	user, err := models.FindUserBy("email", request.UserEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Warnf("subject %v no longer exists, skipping auto-sos broadcast", request.UserEmail)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "find subject")
	}

	contacts, err := user.EmergencyContactEmails()
	if err != nil {
		return errors.Wrap(err, "fetch emergency contacts")
	}

	if len(contacts) == 0 {
		logg.Warnf("subject %v has no emergency contacts, skipping auto-sos broadcast", request.UserEmail)
		return nil
	}

	result := scheduler.dispatcher.Broadcast(dispatch.AutoSOSAlert(request), contacts)
	logg.Infof("auto-sos for %v: %v/%v contact(s) notified",
		request.UserEmail, len(result.Successful), result.TotalRecipients)

	if len(result.Failed) > 0 {
		logg.Errorf("auto-sos for %v: %v contact delivery failure(s): %v",
			request.UserEmail, len(result.Failed), result.Failed)
	}

	return nil
}
