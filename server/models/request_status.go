package models

const (
	PENDING_REQUEST  = "PENDING"
	ACCEPTED_REQUEST = "ACCEPTED"
	DENIED_REQUEST   = "DENIED"
	TIMEOUT_REQUEST  = "TIMEOUT"
)

var RequestStatusNameMap = map[string]bool{
	PENDING_REQUEST:  true,
	ACCEPTED_REQUEST: true,
	DENIED_REQUEST:   true,
	TIMEOUT_REQUEST:  true,
}

type RequestStatus struct {
	BaseModel
	Name             string            `json:"name"`
	LocationRequests []LocationRequest `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func FindRequestStatus(name string) (*RequestStatus, error) {
	requestStatus := RequestStatus{}
	err := db.Select("id", "name").First(&requestStatus, "name = ?", name).Error
	if err != nil {
		return nil, err
	}

	return &requestStatus, nil
}
