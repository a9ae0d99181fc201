package intake

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

var (
	ErrFirstStep  = errors.New("already at the first step")
	ErrLastStep   = errors.New("already at the last step")
	ErrNotReady   = errors.New("form is not ready to submit")
	ErrNoDocument = errors.New("attach a document or skip this step")
)

// Wizard walks a Form through the intake steps.
type Wizard struct {
	form     Form
	step     Step
	validate *validator.Validate
}

// NewWizard starts a wizard at the first step.
func NewWizard() *Wizard {
	return &Wizard{step: StepAppointmentType, validate: newValidator()}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	return w.step
}

// Form returns the collected data.
func (w *Wizard) Form() Form {
	return w.form
}

// Completed lists the steps before the current one.
func (w *Wizard) Completed() []Step {
	var done []Step
	for _, s := range Steps() {
		if s >= w.step {
			break
		}
		done = append(done, s)
	}
	return done
}

// SetAppointmentType selects the visit type.
func (w *Wizard) SetAppointmentType(t AppointmentType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown appointment type %q", t)
	}
	w.form.AppointmentType = t
	return nil
}

// SetConsent records the consent checkboxes.
func (w *Wizard) SetConsent(c Consent) {
	w.form.Consent = c
}

// SetPersonal records the personal details.
func (w *Wizard) SetPersonal(p PersonalDetails) {
	w.form.Personal = p
}

// SetMedical records the medical history.
func (w *Wizard) SetMedical(m MedicalDetails) {
	w.form.Medical = m
}

// SetReferringDoctor records the referring practitioner.
func (w *Wizard) SetReferringDoctor(name string) {
	w.form.Referral.ReferringDoctor = name
}

// AttachDocument validates and attaches a medical document.
func (w *Wizard) AttachDocument(name string, data []byte) error {
	doc, err := NewDocument(name, data)
	if err != nil {
		return err
	}
	w.form.Referral.Document = doc
	w.form.Referral.Skipped = false
	return nil
}

// RemoveDocument detaches the document.
func (w *Wizard) RemoveDocument() {
	w.form.Referral.Document = nil
}

// SkipDocument continues without a document.
func (w *Wizard) SkipDocument() {
	w.form.Referral.Document = nil
	w.form.Referral.Skipped = true
}

// Validate checks the data a step collects.
func (w *Wizard) Validate(step Step) error {
	switch step {
	case StepAppointmentType:
		if !w.form.AppointmentType.Valid() {
			return &ValidationError{Step: step, Fields: map[string]string{"appointment_type": "is required"}}
		}
	case StepConsent:
		return w.check(step, w.form.Consent)
	case StepPersonalDetails:
		return w.check(step, w.form.Personal)
	case StepMedicalDetails:
		return w.check(step, w.form.Medical)
	case StepReferralDetails:
		if err := w.check(step, w.form.Referral); err != nil {
			return err
		}
		if w.form.Referral.Document == nil && !w.form.Referral.Skipped {
			return &ValidationError{Step: step, Fields: map[string]string{"document": ErrNoDocument.Error()}}
		}
	case StepReview:
		for _, s := range Steps()[:len(Steps())-1] {
			if err := w.Validate(s); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown step %d", step)
	}
	return nil
}

func (w *Wizard) check(step Step, v any) error {
	if err := w.validate.Struct(v); err != nil {
		return structError(step, err)
	}
	return nil
}

// Next validates the current step and advances.
func (w *Wizard) Next() error {
	if w.step == StepReview {
		return ErrLastStep
	}
	if err := w.Validate(w.step); err != nil {
		return err
	}
	w.step++
	slog.Debug("Intake step advanced", "step", w.step.String())
	return nil
}

// Previous goes back one step without validation.
func (w *Wizard) Previous() error {
	if w.step == StepAppointmentType {
		return ErrFirstStep
	}
	w.step--
	return nil
}

// Ready reports whether the wizard is on the review step with every step
// valid.
func (w *Wizard) Ready() error {
	if w.step != StepReview {
		return fmt.Errorf("%w: on step %s", ErrNotReady, w.step)
	}
	return w.Validate(StepReview)
}
