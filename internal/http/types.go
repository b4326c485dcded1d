package http

import "mdac/internal/model"

// RegisterRequest is the payload for POST /v1/register: one traveler
// record plus the per-job knobs.
type RegisterRequest struct {
	model.RegisterInput
	// Record overrides the configured capture toggles for this job.
	Record *model.RecordFlags `json:"record,omitempty"`
	// Pause parks the job before submission until the returned pause
	// token is resumed (headed deployments with a human at the CAPTCHA).
	Pause *bool `json:"pause,omitempty"`
	// Sync makes the request block until the job reaches a terminal
	// status instead of returning 202 immediately.
	Sync *bool `json:"sync,omitempty"`
}

// RetrieveRequest is the payload for POST /v1/retrieve.
type RetrieveRequest struct {
	model.RetrieveInput
	Record *model.RecordFlags `json:"record,omitempty"`
	Sync   *bool              `json:"sync,omitempty"`
}

// ErrorResponse is the error envelope shape shared by all endpoints.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JobResponse wraps a job submission or lookup result.
type JobResponse struct {
	Success    bool             `json:"success"`
	ID         string           `json:"id,omitempty"`
	Status     string           `json:"status,omitempty"`
	PauseToken string           `json:"pauseToken,omitempty"`
	Data       *model.JobOutput `json:"data,omitempty"`
	Code       string           `json:"code,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// ResumeResponse reports the outcome of POST /v1/resume/:token.
type ResumeResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}
