package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/beaconhq/beacon/server/dispatch"
	"github.com/beaconhq/beacon/server/models"
	"github.com/beaconhq/beacon/version"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type ContactsPayload struct {
	Success  bool     `json:"success"`
	Contacts []string `json:"contacts"`
}

type NotificationsPayload struct {
	Success bool                  `json:"success"`
	Count   int                   `json:"count"`
	Data    []models.Notification `json:"data"`
}

type manualSOSParams struct {
	UserEmail string   `json:"userEmail" validate:"required,email"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type locationRequestParams struct {
	UserEmail     string `json:"userEmail" validate:"required,email"`
	ReceiverEmail string `json:"receiverEmail" validate:"required,contact_email"`
}

type acceptRequestParams struct {
	RequestID string   `json:"requestId" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Accuracy  *float64 `json:"accuracy"`
}

type denyRequestParams struct {
	RequestID string `json:"requestId" validate:"required"`
}

type contactParams struct {
	UserEmail    string `json:"userEmail" validate:"required,email"`
	ContactEmail string `json:"contactEmail" validate:"required"`
}

type contactListParams struct {
	UserEmail string   `json:"userEmail" validate:"required,email"`
	Contacts  []string `json:"contacts" validate:"required"`
}

type markReadParams struct {
	NotificationID uint `json:"notificationId" validate:"required"`
}

type markAllReadParams struct {
	Email string `json:"email" validate:"required,email"`
}

func triggerManualSOS(rw http.ResponseWriter, r *http.Request) {
	params := manualSOSParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	user, err := models.FindUserBy("email", strings.ToLower(params.UserEmail))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	contacts, err := user.EmergencyContactEmails()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if len(contacts) == 0 {
		writeResponse(rw,
			ResponsePayload{Errors: []string{"no emergency contacts on file"}},
			http.StatusBadRequest)
		return
	}

	result := dispatcher.Broadcast(
		dispatch.SOSAlert(user.Email, *params.Latitude, *params.Longitude), contacts)

	data := map[string]interface{}{
		"totalContacts": result.TotalRecipients,
		"successful":    len(result.Successful),
		"failed":        len(result.Failed),
		"details":       result,
	}

	switch {
	case result.AllFailed():
		writeResponse(rw,
			ResponsePayload{Errors: []string{"alert delivery failed for every contact"}, Data: data},
			http.StatusInternalServerError)
	case result.PartialFailure():
		writeResponse(rw, ResponsePayload{Success: true, Data: data}, http.StatusMultiStatus)
	default:
		json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: data})
	}
}

func requestLocation(rw http.ResponseWriter, r *http.Request) {
	params := locationRequestParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	user, err := models.FindUserBy("email", strings.ToLower(params.UserEmail))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	// An empty contact list is a setup problem, not an authorization one,
	// so it's reported before the membership check
	contacts, err := user.EmergencyContactEmails()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if len(contacts) == 0 {
		writeResponse(rw,
			ResponsePayload{Errors: []string{"no emergency contacts on file"}},
			http.StatusBadRequest)
		return
	}

	authorized, err := user.IsEmergencyContact(params.ReceiverEmail)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if !authorized {
		writeResponse(rw,
			ResponsePayload{Errors: []string{"receiver is not an emergency contact of this user"}},
			http.StatusForbidden)
		return
	}

	request, err := models.CreateLocationRequest(user.Email, strings.ToLower(params.ReceiverEmail))

	var pendingErr *models.RequestAlreadyPendingError
	if errors.As(err, &pendingErr) {
		writeResponse(rw, ResponsePayload{
			Errors: []string{pendingErr.Error()},
			Data: map[string]interface{}{
				"requestId": pendingErr.Existing.Reference,
				"expiresAt": pendingErr.Existing.ExpiresAt,
			},
		}, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	// The request stands even if the heads-up to the subject can't be
	// recorded or delivered; the escalation sweep is what enforces the
	// deadline
	var notificationID interface{}
	notification, err := models.CreateNotification(
		request.UserEmail,
		models.LOCATION_REQUEST_NOTIFICATION,
		fmt.Sprintf("%v is requesting your location", request.ReceiverEmail),
		map[string]interface{}{
			"requestId":     request.Reference,
			"receiverEmail": request.ReceiverEmail,
			"expiresAt":     request.ExpiresAt,
		})
	if err != nil {
		logg.Errorf("location request notification for %v: %v", request.UserEmail, err)
	} else {
		notificationID = notification.ID
	}

	subject, body := dispatch.LocationRequestEmail(request.ReceiverEmail, request.ExpiresAt)
	if _, err := mailClient.SendEmail(request.UserEmail, subject, body); err != nil {
		logg.Errorf("location request email to %v: %v", request.UserEmail, err)
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]interface{}{
		"requestId":      request.Reference,
		"userEmail":      request.UserEmail,
		"expiresAt":      request.ExpiresAt,
		"notificationId": notificationID,
	}})
}

func acceptLocationRequest(rw http.ResponseWriter, r *http.Request) {
	params := acceptRequestParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	request, err := models.FindLocationRequest(params.RequestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"location request not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	user, err := models.FindUserBy("email", request.UserEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	// Authorization is re-checked against the contact list as it stands
	// NOW. A requester removed mid-flight gets a denial, not a location.
	authorized, err := user.IsEmergencyContact(request.ReceiverEmail)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}
	if !authorized {
		if err := denyResolvedOrConflict(rw, request); err != nil {
			return
		}

		writeResponse(rw,
			ResponsePayload{Errors: []string{"requester is no longer an emergency contact; request denied"}},
			http.StatusForbidden)
		return
	}

	err = request.Accept(*params.Latitude, *params.Longitude, params.Accuracy)

	var resolvedErr *models.AlreadyResolvedError
	if errors.As(err, &resolvedErr) {
		writeResponse(rw, ResponsePayload{
			Errors: []string{resolvedErr.Error()},
			Data:   map[string]interface{}{"currentStatus": resolvedErr.Status},
		}, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	location := map[string]interface{}{
		"latitude":  *params.Latitude,
		"longitude": *params.Longitude,
		"accuracy":  params.Accuracy,
		"sharedAt":  request.RespondedAt,
	}

	if _, err := models.CreateNotification(
		request.ReceiverEmail,
		models.LOCATION_SHARED_NOTIFICATION,
		fmt.Sprintf("%v has shared their location with you", request.UserEmail),
		map[string]interface{}{"requestId": request.Reference, "location": location},
	); err != nil {
		logg.Errorf("location shared notification for %v: %v", request.ReceiverEmail, err)
	}

	subject, body := dispatch.LocationSharedEmail(
		request.UserEmail, *params.Latitude, *params.Longitude, params.Accuracy)
	if _, err := mailClient.SendEmail(request.ReceiverEmail, subject, body); err != nil {
		logg.Errorf("location shared email to %v: %v", request.ReceiverEmail, err)
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]interface{}{
		"requestId": request.Reference,
		"sentTo":    request.ReceiverEmail,
		"location":  location,
	}})
}

func denyLocationRequest(rw http.ResponseWriter, r *http.Request) {
	params := denyRequestParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	request, err := models.FindLocationRequest(params.RequestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"location request not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err := denyResolvedOrConflict(rw, request); err != nil {
		return
	}

	// An explicit deny is a response; nothing escalates from here
	if _, err := models.CreateNotification(
		request.ReceiverEmail,
		models.LOCATION_DENIED_NOTIFICATION,
		fmt.Sprintf("%v has denied your location request", request.UserEmail),
		map[string]interface{}{"requestId": request.Reference},
	); err != nil {
		logg.Errorf("location denied notification for %v: %v", request.ReceiverEmail, err)
	}

	subject, body := dispatch.LocationDeniedEmail(request.UserEmail)
	if _, err := mailClient.SendEmail(request.ReceiverEmail, subject, body); err != nil {
		logg.Errorf("location denied email to %v: %v", request.ReceiverEmail, err)
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]interface{}{
		"requestId":  request.Reference,
		"notifiedTo": request.ReceiverEmail,
	}})
}

// denyResolvedOrConflict transitions request to DENIED, writing the
// state-conflict response itself when the request is already resolved.
// A non-nil return means a response has been written.
func denyResolvedOrConflict(rw http.ResponseWriter, request *models.LocationRequest) error {
	err := request.Deny()

	var resolvedErr *models.AlreadyResolvedError
	if errors.As(err, &resolvedErr) {
		writeResponse(rw, ResponsePayload{
			Errors: []string{resolvedErr.Error()},
			Data:   map[string]interface{}{"currentStatus": resolvedErr.Status},
		}, http.StatusBadRequest)
		return err
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return err
	}

	return nil
}

func getContacts(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := models.FindUserBy("email", strings.ToLower(vars["userEmail"]))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	contacts, err := user.EmergencyContactEmails()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ContactsPayload{Success: true, Contacts: contacts})
}

func addContact(rw http.ResponseWriter, r *http.Request) {
	params := contactParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	user, found := findUserOr404(rw, params.UserEmail)
	if !found {
		return
	}

	contacts, err := user.AddEmergencyContact(params.ContactEmail)
	if errors.Is(err, models.ErrInvalidContactEmail) || errors.Is(err, models.ErrDuplicateContact) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ContactsPayload{Success: true, Contacts: contacts})
}

func removeContact(rw http.ResponseWriter, r *http.Request) {
	params := contactParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	user, found := findUserOr404(rw, params.UserEmail)
	if !found {
		return
	}

	contacts, err := user.RemoveEmergencyContact(params.ContactEmail)
	if errors.Is(err, models.ErrContactNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ContactsPayload{Success: true, Contacts: contacts})
}

func setContacts(rw http.ResponseWriter, r *http.Request) {
	params := contactListParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	user, found := findUserOr404(rw, params.UserEmail)
	if !found {
		return
	}

	contacts, err := user.SetEmergencyContacts(params.Contacts)
	if errors.Is(err, models.ErrInvalidContactEmail) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ContactsPayload{Success: true, Contacts: contacts})
}

func findUserOr404(rw http.ResponseWriter, email string) (*models.User, bool) {
	user, err := models.FindUserBy("email", strings.ToLower(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"user not found"}}, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return nil, false
	}

	return user, true
}

func getNotifications(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	email := strings.ToLower(vars["email"])
	if !models.IsValidContactEmail(email) {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid email"}}, http.StatusBadRequest)
		return
	}

	notifications, err := models.UnreadNotifications(email)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(NotificationsPayload{
		Success: true,
		Count:   len(notifications),
		Data:    notifications,
	})
}

func markNotificationRead(rw http.ResponseWriter, r *http.Request) {
	params := markReadParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	notification, err := models.FindNotification(params.NotificationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"notification not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err := notification.MarkAsRead(); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true})
}

func markAllNotificationsRead(rw http.ResponseWriter, r *http.Request) {
	params := markAllReadParams{}
	if !decodeJSONBody(rw, r, &params) || !validatePayload(rw, &params) {
		return
	}

	count, err := models.MarkAllAsRead(strings.ToLower(params.Email))
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]interface{}{"count": count}})
}

func healthCheck(rw http.ResponseWriter, r *http.Request) {
	json.NewEncoder(rw).Encode(ResponsePayload{Success: true, Data: map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	}})
}
