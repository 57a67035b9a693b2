package bus

import "encoding/json"

// Type identifies a bus message.
type Type string

const (
	TypeActivateLicense   Type = "ACTIVATE_LICENSE"
	TypeDeactivateLicense Type = "DEACTIVATE_LICENSE"
	TypeGetLicenseStatus  Type = "GET_LICENSE_STATUS"
	TypeCheckFeature      Type = "CHECK_FEATURE"
	TypeRecordUsage       Type = "RECORD_USAGE"
	TypeStartTrial        Type = "START_TRIAL"
	TypeGetTrialStatus    Type = "GET_TRIAL_STATUS"
	TypeMarkTrialPaid     Type = "MARK_TRIAL_CONVERTED"
)

// Request is a message received from the host bus. Payload is the
// type-specific JSON body, absent for parameterless messages.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the uniform reply envelope. Data carries the type-specific
// result on success; Error carries a message the host can branch on.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ActivateLicensePayload is the body of an ACTIVATE_LICENSE request.
type ActivateLicensePayload struct {
	LicenseKey string `json:"licenseKey"`
}

// FeaturePayload is the body of CHECK_FEATURE and RECORD_USAGE requests.
type FeaturePayload struct {
	FeatureID string `json:"featureId"`
}

// TrialStatusData is the body of a GET_TRIAL_STATUS response.
type TrialStatusData struct {
	State         string `json:"state"`
	StartedAt     string `json:"startedAt,omitempty"`
	ExpiresAt     string `json:"expiresAt,omitempty"`
	DaysRemaining int    `json:"daysRemaining"`
}
