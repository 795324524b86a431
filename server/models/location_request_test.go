package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateLocationRequest(t *testing.T) {
	InitializeTestDb()

	request, err := CreateLocationRequest("Stark@Avengers.com", "Pepper@Avengers.com")
	assert.Nil(t, err)
	assert.Equal(t, "stark@avengers.com", request.UserEmail)
	assert.Equal(t, "pepper@avengers.com", request.ReceiverEmail)
	assert.Equal(t, PENDING_REQUEST, request.StatusName())
	assert.NotEmpty(t, request.Reference)
	assert.Equal(t, request.CreatedAt.Add(LocationRequestTTL), request.ExpiresAt)

	t.Run("second pending request for the same subject is rejected", func(t *testing.T) {
		_, err := CreateLocationRequest("stark@avengers.com", "happy@avengers.com")

		var pendingErr *RequestAlreadyPendingError
		assert.ErrorAs(t, err, &pendingErr)
		assert.Equal(t, request.Reference, pendingErr.Existing.Reference)
		assert.Equal(t, request.ExpiresAt.Unix(), pendingErr.Existing.ExpiresAt.Unix())
	})

	t.Run("a different subject is unaffected", func(t *testing.T) {
		other, err := CreateLocationRequest("web@avengers.com", "pepper@avengers.com")
		assert.Nil(t, err)
		assert.Equal(t, PENDING_REQUEST, other.StatusName())
	})
}

func TestLocationRequestTransitions(t *testing.T) {
	InitializeTestDb()

	accuracy := 10.5
	request, err := CreateLocationRequest("stark@avengers.com", "pepper@avengers.com")
	assert.Nil(t, err)

	assert.Nil(t, request.Accept(43.65, -79.38, &accuracy))
	assert.Equal(t, ACCEPTED_REQUEST, request.StatusName())
	assert.NotNil(t, request.RespondedAt)
	assert.Equal(t, 43.65, *request.Latitude)
	assert.Equal(t, -79.38, *request.Longitude)
	assert.Equal(t, accuracy, *request.Accuracy)

	t.Run("terminal states are immutable", func(t *testing.T) {
		err := request.Deny()

		var resolvedErr *AlreadyResolvedError
		assert.ErrorAs(t, err, &resolvedErr)
		assert.Equal(t, ACCEPTED_REQUEST, resolvedErr.Status)

		err = request.TimeOut()
		assert.ErrorAs(t, err, &resolvedErr)
		assert.Equal(t, ACCEPTED_REQUEST, resolvedErr.Status)
	})

	t.Run("deny resolves a pending request", func(t *testing.T) {
		request, err := CreateLocationRequest("web@avengers.com", "pepper@avengers.com")
		assert.Nil(t, err)

		assert.Nil(t, request.Deny())
		assert.Equal(t, DENIED_REQUEST, request.StatusName())
		assert.NotNil(t, request.RespondedAt)
		assert.Nil(t, request.Latitude, "deny should record no location")
	})
}

func TestExpiredPendingRequests(t *testing.T) {
	InitializeTestDb()

	expired, err := CreateLocationRequest("one@x.com", "contact@x.com")
	assert.Nil(t, err)

	_, err = CreateLocationRequest("two@x.com", "contact@x.com")
	assert.Nil(t, err)

	resolved, err := CreateLocationRequest("three@x.com", "contact@x.com")
	assert.Nil(t, err)
	assert.Nil(t, resolved.Deny())

	// Rewind the expiries instead of waiting the window out
	assert.Nil(t, expired.Update(map[string]interface{}{"expires_at": time.Now().Add(-time.Second)}))
	assert.Nil(t, resolved.Update(map[string]interface{}{"expires_at": time.Now().Add(-time.Minute)}))

	requests, err := ExpiredPendingRequests()
	assert.Nil(t, err)
	assert.Len(t, requests, 1, "only pending requests strictly past expiry are eligible")
	assert.Equal(t, expired.Reference, requests[0].Reference)
}
