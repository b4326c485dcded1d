package model

// RegisterInput is one traveler record for a registration job. Field
// names mirror the upload/JSON contract; optional fields are filled
// from site defaults when absent.
type RegisterInput struct {
	Passport           string `json:"passport"`
	Nationality        string `json:"nationality"`
	FullName           string `json:"fullName"`
	Gender             string `json:"gender"`
	DateOfBirth        string `json:"dateOfBirth"`
	PassportExpiryDate string `json:"passportExpiryDate"`
	ArrivalDate        string `json:"arrivalDate"`
	DepartureDate      string `json:"departureDate"`
	ArrivalMode        string `json:"arrivalMode,omitempty"`
	FlightNo           string `json:"flightNo,omitempty"`
	Embarkation        string `json:"embarkation,omitempty"`
	Phone              string `json:"phone,omitempty"`
	RegionCode         string `json:"regionCode,omitempty"`
	Mobile             string `json:"mobile,omitempty"`
	Email              string `json:"email,omitempty"`

	AccommodationStay     string `json:"accommodationStay,omitempty"`
	AccommodationAddress1 string `json:"accommodationAddress1,omitempty"`
	AccommodationAddress2 string `json:"accommodationAddress2,omitempty"`
	AccommodationState    string `json:"accommodationState,omitempty"`
	AccommodationCity     string `json:"accommodationCity,omitempty"`
	AccommodationPostcode string `json:"accommodationPostcode,omitempty"`
}

// RecordFlags optionally overrides the configured diagnostic captures
// for one job. Nil fields keep the process-wide defaults.
type RecordFlags struct {
	Network *bool `json:"network,omitempty"`
	Trace   *bool `json:"trace,omitempty"`
	Video   *bool `json:"video,omitempty"`
}

// RetrieveInput identifies a completed registration whose confirmation
// slip should be downloaded.
type RetrieveInput struct {
	Passport    string `json:"passport"`
	Nationality string `json:"nationality"`
	Pin         string `json:"pin"`
}

// ArtifactSet holds the on-disk locations of the diagnostic and result
// files produced for one job. Paths are empty when the corresponding
// capture was disabled or nothing was produced.
type ArtifactSet struct {
	NetworkLog  string   `json:"networkLog,omitempty"`
	Trace       string   `json:"trace,omitempty"`
	Video       string   `json:"video,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
	Download    string   `json:"download,omitempty"`
}

// Confirmation is extracted from the result page when the gate waiter
// observes the success indicator.
type Confirmation struct {
	Pin     string `json:"pin,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// JobOutput is the structured result persisted into the job row and
// returned to API callers.
type JobOutput struct {
	Status       string        `json:"status"`
	Passport     string        `json:"passport,omitempty"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	Artifacts    ArtifactSet   `json:"artifacts"`
	Error        string        `json:"error,omitempty"`
}
