// Package intake implements the patient intake wizard: six ordered steps,
// each validated before the wizard moves on, and the final submission to the
// backend.
package intake

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// Step is a position in the wizard.
type Step int

const (
	StepAppointmentType Step = iota + 1
	StepConsent
	StepPersonalDetails
	StepMedicalDetails
	StepReferralDetails
	StepReview
)

var stepTitles = map[Step]string{
	StepAppointmentType: "Appointment Type",
	StepConsent:         "Privacy & Consent",
	StepPersonalDetails: "Personal Details",
	StepMedicalDetails:  "Medical Details",
	StepReferralDetails: "Referral Details",
	StepReview:          "Review & Submit",
}

func (s Step) String() string {
	if t, ok := stepTitles[s]; ok {
		return t
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Steps lists every step in order.
func Steps() []Step {
	return []Step{StepAppointmentType, StepConsent, StepPersonalDetails, StepMedicalDetails, StepReferralDetails, StepReview}
}

// AppointmentType is the kind of visit being booked.
type AppointmentType string

const (
	AppointmentNewPatient     AppointmentType = "new-patient"
	AppointmentFollowUpLong   AppointmentType = "follow-up-12-plus"
	AppointmentFollowUpRecent AppointmentType = "follow-up-12-less"
)

// Valid reports whether t is a known appointment type.
func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentNewPatient, AppointmentFollowUpLong, AppointmentFollowUpRecent:
		return true
	}
	return false
}

// Consent records the patient's agreements. Terms and privacy are required.
type Consent struct {
	Terms     bool `json:"terms" validate:"eq=true"`
	Privacy   bool `json:"privacy" validate:"eq=true"`
	Marketing bool `json:"marketing"`
}

// PersonalDetails are the patient's identity and contact fields.
type PersonalDetails struct {
	FirstName              string `json:"first_name" validate:"required,max=100"`
	LastName               string `json:"last_name" validate:"required,max=100"`
	DateOfBirth            string `json:"date_of_birth" validate:"required,datetime=02/01/2006"`
	Gender                 string `json:"gender" validate:"required,oneof='Male' 'Female' 'Other' 'Prefer not to say'"`
	PhoneNumber            string `json:"phone_number" validate:"required,min=6,max=20"`
	Email                  string `json:"email" validate:"required,email"`
	HomeAddress            string `json:"home_address" validate:"required,max=300"`
	EmergencyContactName   string `json:"emergency_contact_name" validate:"required,max=100"`
	EmergencyContactNumber string `json:"emergency_contact_number" validate:"required,min=6,max=20"`
}

// MedicalDetails is free-text history. Every field is optional.
type MedicalDetails struct {
	Conditions  string `json:"conditions,omitempty" validate:"max=2000"`
	Medications string `json:"medications,omitempty" validate:"max=2000"`
	Allergies   string `json:"allergies,omitempty" validate:"max=2000"`
}

// Referral carries the referring practitioner and the optional document.
type Referral struct {
	ReferringDoctor string    `json:"referring_doctor,omitempty" validate:"max=200"`
	Document        *Document `json:"-"`
	Skipped         bool      `json:"document_skipped"`
}

// Form is everything the wizard collects.
type Form struct {
	AppointmentType AppointmentType `json:"appointment_type"`
	Consent         Consent         `json:"consent"`
	Personal        PersonalDetails `json:"personal"`
	Medical         MedicalDetails  `json:"medical"`
	Referral        Referral        `json:"referral"`
}

// MaxDocumentSize is the largest accepted medical document.
const MaxDocumentSize = 10 << 20

var allowedDocumentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

var (
	ErrDocumentTooLarge = errors.New("file size must be less than 10MB")
	ErrDocumentType     = errors.New("please select a JPG, PNG, or PDF file")
	ErrDocumentEmpty    = errors.New("file is empty")
)

// Document is an uploaded medical document with its sniffed content type.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewDocument checks size and content type. The type comes from the bytes,
// not the file name.
func NewDocument(name string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrDocumentEmpty
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrDocumentTooLarge
	}
	mtype := mimetype.Detect(data)
	for _, allowed := range allowedDocumentTypes {
		if mtype.Is(allowed) {
			return &Document{Name: name, ContentType: allowed, Data: data}, nil
		}
	}
	return nil, fmt.Errorf("%w: detected %s", ErrDocumentType, mtype.String())
}

// ValidationError lists the fields that failed a step's checks.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("%s is incomplete (%s)", e.Step, strings.Join(parts, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// structError converts validator output into a ValidationError.
func structError(step Step, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Step: step, Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "eq":
		return "must be accepted"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in DD/MM/YYYY format"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
