package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vietddude/intake/internal/control"
	"github.com/vietddude/intake/internal/intake"
)

var submitDocument string

var submitCmd = &cobra.Command{
	Use:   "submit [form.json]",
	Short: "Walk an intake form through every step and create the patient",
	Args:  cobra.ExactArgs(1),
	Run:   runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitDocument, "document", "", "referral document (jpeg, png or pdf)")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) {
	w, err := wizardFromFile(args[0], submitDocument)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	withApp("Intake submission failed", func(ctx context.Context, app *control.App) error {
		sub, err := w.Submit(ctx, app.Client)
		if sub != nil {
			fmt.Printf("patient %s created\n", sub.PatientID)
		}
		return err
	})
}

// wizardFromFile fills a wizard from a JSON form and advances it to review.
func wizardFromFile(path, document string) (*intake.Wizard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var form intake.Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	w := intake.NewWizard()
	if err := w.SetAppointmentType(form.AppointmentType); err != nil {
		return nil, err
	}
	w.SetConsent(form.Consent)
	w.SetPersonal(form.Personal)
	w.SetMedical(form.Medical)
	w.SetReferringDoctor(form.Referral.ReferringDoctor)

	if document != "" {
		doc, err := os.ReadFile(document)
		if err != nil {
			return nil, err
		}
		if err := w.AttachDocument(filepath.Base(document), doc); err != nil {
			return nil, err
		}
	} else {
		w.SkipDocument()
	}

	for w.Step() != intake.StepReview {
		if err := w.Next(); err != nil {
			return nil, err
		}
	}
	return w, nil
}
