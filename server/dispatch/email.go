package dispatch

import (
	"fmt"
	"time"

	"github.com/beaconhq/beacon/server/models"
)

// SOSAlert is the broadcast for a user-triggered emergency
func SOSAlert(userEmail string, latitude, longitude float64) Alert {
	return Alert{
		Type:         models.SOS_NOTIFICATION,
		Message:      fmt.Sprintf("EMERGENCY SOS from %v", userEmail),
		EmailSubject: "EMERGENCY SOS ALERT",
		EmailBody: fmt.Sprintf(`
			<h1>Emergency SOS Alert</h1>
			<p><strong>%v</strong> has triggered an emergency SOS alert and needs immediate assistance.</p>
			<ul>
				<li><strong>Latitude:</strong> %v</li>
				<li><strong>Longitude:</strong> %v</li>
				<li><strong>Time:</strong> %v</li>
			</ul>
			<p><a href="%v">View location on Google Maps</a></p>
			<p>This is an automated emergency alert. Please take immediate action.</p>`,
			userEmail, latitude, longitude, time.Now().Format(time.RFC1123), mapsLink(latitude, longitude)),
		Data: map[string]interface{}{
			"userEmail": userEmail,
			"latitude":  latitude,
			"longitude": longitude,
			"timestamp": time.Now(),
		},
	}
}

// AutoSOSAlert is the broadcast sent on behalf of a subject who never
// responded to a location request.
func AutoSOSAlert(request *models.LocationRequest) Alert {
	return Alert{
		Type: models.AUTO_SOS_NOTIFICATION,
		Message: fmt.Sprintf("AUTO SOS: %v did not respond to a location request within %v minutes",
			request.UserEmail, int(models.LocationRequestTTL.Minutes())),
		EmailSubject: "AUTOMATIC SOS ALERT - No Response",
		EmailBody: fmt.Sprintf(`
			<h1>Automatic SOS Alert</h1>
			<p><strong>%v</strong> did not respond to a location request within the %v-minute window.
			This may indicate an emergency situation.</p>
			<ul>
				<li><strong>%v</strong> requested their location at %v</li>
				<li>The request expired at %v</li>
				<li>No response was received</li>
			</ul>
			<p>As an emergency contact, please attempt to reach them immediately through other
			means, and contact emergency services if you cannot.</p>`,
			request.UserEmail, int(models.LocationRequestTTL.Minutes()),
			request.ReceiverEmail,
			request.CreatedAt.Format(time.RFC1123),
			request.ExpiresAt.Format(time.RFC1123)),
		Data: map[string]interface{}{
			"userEmail":         request.UserEmail,
			"requestId":         request.Reference,
			"expiredAt":         request.ExpiresAt,
			"triggeredAt":       time.Now(),
			"originalRequester": request.ReceiverEmail,
		},
	}
}

// LocationRequestEmail informs the subject of the response deadline & the
// consequence of missing it.
func LocationRequestEmail(receiverEmail string, expiresAt time.Time) (subject, body string) {
	subject = "Location Request from Emergency Contact"
	body = fmt.Sprintf(`
		<h1>Location Request</h1>
		<p><strong>%v</strong> (one of your emergency contacts) is requesting your current location.</p>
		<p>You have <strong>%v minutes</strong> to respond. If you don't, an automatic SOS
		will be sent to ALL your emergency contacts.</p>
		<p><strong>Expires at:</strong> %v</p>
		<p>Please log in to your account to accept or deny this request.</p>`,
		receiverEmail, int(models.LocationRequestTTL.Minutes()), expiresAt.Format(time.RFC1123))
	return subject, body
}

func LocationSharedEmail(userEmail string, latitude, longitude float64, accuracy *float64) (subject, body string) {
	accuracyText := "Unknown"
	if accuracy != nil {
		accuracyText = fmt.Sprintf("%.2f meters", *accuracy)
	}

	subject = "Location Shared"
	body = fmt.Sprintf(`
		<h1>Location Shared</h1>
		<p><strong>%v</strong> has accepted your location request and shared their current location.</p>
		<ul>
			<li><strong>Latitude:</strong> %v</li>
			<li><strong>Longitude:</strong> %v</li>
			<li><strong>Accuracy:</strong> %v</li>
		</ul>
		<p><a href="%v">View location on Google Maps</a></p>`,
		userEmail, latitude, longitude, accuracyText, mapsLink(latitude, longitude))
	return subject, body
}

func LocationDeniedEmail(userEmail string) (subject, body string) {
	subject = "Location Request Denied"
	body = fmt.Sprintf(`
		<h1>Location Request Denied</h1>
		<p><strong>%v</strong> has declined your location request.</p>
		<p>The user has actively responded, so no automatic SOS will be triggered.</p>`,
		userEmail)
	return subject, body
}

func mapsLink(latitude, longitude float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", latitude, longitude)
}
