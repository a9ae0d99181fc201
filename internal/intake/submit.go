package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vietddude/intake/internal/fetch"
)

// DuplicatePatientError is returned when the backend already holds a
// matching patient.
type DuplicatePatientError struct {
	Message  string
	Existing map[string]any
	Err      *fetch.RequestError
}

func (e *DuplicatePatientError) Error() string {
	return e.Message
}

func (e *DuplicatePatientError) Unwrap() error {
	return e.Err
}

// Submission is the outcome of a successful Submit.
type Submission struct {
	PatientID        string
	DocumentUploaded bool
	Patient          map[string]any
}

type patientPayload struct {
	AppointmentType AppointmentType `json:"appointment_type"`
	PersonalDetails
	Consent         Consent         `json:"consent"`
	Medical         MedicalDetails  `json:"medical"`
	ReferringDoctor string          `json:"referring_doctor,omitempty"`
}

// Submit creates the patient and then uploads the document, if any. A
// document upload failure is returned together with the created patient so
// the caller can retry the upload alone.
func (w *Wizard) Submit(ctx context.Context, client *fetch.Client) (*Submission, error) {
	if err := w.Ready(); err != nil {
		return nil, err
	}

	payload := patientPayload{
		AppointmentType: w.form.AppointmentType,
		PersonalDetails: w.form.Personal,
		Consent:         w.form.Consent,
		Medical:         w.form.Medical,
		ReferringDoctor: w.form.Referral.ReferringDoctor,
	}
	var created map[string]any
	if err := client.PostJSON(ctx, "/api/patients", payload, &created); err != nil {
		return nil, duplicate(err)
	}

	id := patientID(created)
	if id == "" {
		return nil, errors.New("patient created without an id")
	}
	sub := &Submission{PatientID: id, Patient: created}
	slog.Info("Patient created", "patient_id", id, "appointment_type", string(w.form.AppointmentType))

	if err := UploadDocument(ctx, client, id, w.form.Referral.Document); err != nil {
		return sub, err
	}
	sub.DocumentUploaded = w.form.Referral.Document != nil
	return sub, nil
}

// UploadDocument attaches doc to an existing patient. A nil doc is a no-op.
func UploadDocument(ctx context.Context, client *fetch.Client, patientID string, doc *Document) error {
	if doc == nil {
		return nil
	}
	path := fmt.Sprintf("/api/patients/%s/documents", url.PathEscape(patientID))
	_, err := client.Upload(ctx, path, nil, fetch.File{
		Field:       "document",
		Name:        doc.Name,
		ContentType: doc.ContentType,
		Data:        doc.Data,
	})
	if err != nil {
		return fmt.Errorf("upload document: %w", err)
	}
	return nil
}

func duplicate(err error) error {
	reqErr, ok := fetch.AsRequestError(err)
	if !ok || reqErr.Status != http.StatusConflict {
		return err
	}
	existing, _ := reqErr.Body["existing_patient"].(map[string]any)
	return &DuplicatePatientError{
		Message:  reqErr.UserMessage,
		Existing: existing,
		Err:      reqErr,
	}
}

// patientID reads the id from {"id": ...} or {"patient": {"id": ...}}.
func patientID(body map[string]any) string {
	if body == nil {
		return ""
	}
	if nested, ok := body["patient"].(map[string]any); ok {
		if id := idString(nested["id"]); id != "" {
			return id
		}
	}
	return idString(body["id"])
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}
