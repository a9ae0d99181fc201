package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/intake/internal/fetch"
)

const (
	soloPlan        = "solo"
	soloPackageName = "Individual"
	defaultTrialLen = 14
)

// Trial describes the organization's trial period.
type Trial struct {
	Status           string `json:"status"`
	DaysRemaining    int    `json:"days_remaining"`
	IsExpired        bool   `json:"is_expired"`
	AccessRestricted bool   `json:"access_restricted"`
	HasSubscription  bool   `json:"has_subscription"`
	EndDate          string `json:"end_date,omitempty"`
}

// TrialStatus is the body of GET /api/trial/status.
type TrialStatus struct {
	Success bool  `json:"success"`
	Trial   Trial `json:"trial"`
}

// DefaultTrialStatus is assumed when the backend cannot report a trial.
func DefaultTrialStatus() *TrialStatus {
	return &TrialStatus{
		Success: true,
		Trial: Trial{
			Status:        "active",
			DaysRemaining: defaultTrialLen,
		},
	}
}

// Subscription is the organization's paid plan.
type Subscription struct {
	ID                string `json:"id,omitempty"`
	Status            string `json:"status"`
	PackageType       string `json:"package_type"`
	PackageName       string `json:"package_name"`
	Quantity          int    `json:"quantity,omitempty"`
	CurrentPeriodEnd  string `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end,omitempty"`
}

// SubscriptionDetails is the body of GET /api/subscriptions.
type SubscriptionDetails struct {
	Success      bool          `json:"success"`
	Subscription *Subscription `json:"subscription"`
}

// Package is a seat package selected for UpdateSeats.
type Package struct {
	Type                  string `json:"type"`
	PriceID               string `json:"price_id,omitempty"`
	BasePriceID           string `json:"base_price_id,omitempty"`
	AdditionalSeatPriceID string `json:"additional_seat_price_id,omitempty"`
	AdditionalSeats       int    `json:"additional_seats,omitempty"`
}

// Subscriptions wraps the billing endpoints.
type Subscriptions struct {
	client *fetch.Client
}

// NewSubscriptions creates the billing endpoint wrapper.
func NewSubscriptions(client *fetch.Client) *Subscriptions {
	return &Subscriptions{client: client}
}

// TrialStatus fetches the trial. A 404 means the backend has not created the
// trial yet, so the request is repeated once; if that also fails a default
// active trial is returned.
func (s *Subscriptions) TrialStatus(ctx context.Context) (*TrialStatus, error) {
	var out TrialStatus
	err := s.client.GetJSON(ctx, "/api/trial/status", &out)
	if err == nil {
		return &out, nil
	}
	if reqErr, ok := fetch.AsRequestError(err); !ok || reqErr.Status != http.StatusNotFound {
		return nil, err
	}

	slog.Info("No trial found, retrying after auto-creation")
	out = TrialStatus{}
	if err := s.client.GetJSON(ctx, "/api/trial/status", &out); err != nil {
		slog.Warn("Trial status retry failed, assuming default trial", "error", err)
		return DefaultTrialStatus(), nil
	}
	return &out, nil
}

// Details fetches the subscription. Every plan is presented as the solo
// package.
func (s *Subscriptions) Details(ctx context.Context) (*SubscriptionDetails, error) {
	var out SubscriptionDetails
	if err := s.client.GetJSON(ctx, "/api/subscriptions", &out); err != nil {
		return nil, err
	}
	if out.Success && out.Subscription != nil {
		out.Subscription.PackageType = soloPlan
		out.Subscription.PackageName = soloPackageName
	}
	return &out, nil
}

// Cancel cancels the subscription, at period end unless immediately is set.
func (s *Subscriptions) Cancel(ctx context.Context, reason string, immediately bool) (Result, error) {
	payload := map[string]any{
		"reason":             nullable(reason),
		"cancel_immediately": immediately,
	}
	var out Result
	if err := s.client.PostJSON(ctx, "/api/subscriptions/cancel", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reactivate undoes a pending cancellation.
func (s *Subscriptions) Reactivate(ctx context.Context) (Result, error) {
	var out Result
	if err := s.client.PostJSON(ctx, "/api/subscriptions/reactivate", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConvertTrial turns the trial into a solo subscription, carrying over the
// remaining trial days.
func (s *Subscriptions) ConvertTrial(ctx context.Context, successURL, cancelURL string) (Result, error) {
	trial, err := s.TrialStatus(ctx)
	if err != nil {
		return nil, err
	}
	days := trial.Trial.DaysRemaining

	payload := map[string]any{
		"plan_name":            soloPlan,
		"quantity":             1,
		"trial_days_remaining": days,
		"success_url":          successURL,
		"cancel_url":           cancelURL,
	}
	var out Result
	if err := s.client.PostJSON(ctx, "/api/subscriptions/convert-trial", payload, &out); err != nil {
		return nil, err
	}
	if serverDays, ok := out["trial_days"].(float64); ok && int(serverDays) != days {
		slog.Info("Server recalculated trial days", "server", int(serverDays), "client", days)
	}
	return out, nil
}

// Checkout creates a checkout session and returns its URL, which may be
// empty when the backend completed the change without one.
func (s *Subscriptions) Checkout(ctx context.Context, trialConversion bool, successURL, cancelURL string) (string, error) {
	payload := map[string]any{
		"plan_name":        soloPlan,
		"quantity":         1,
		"trial_conversion": trialConversion,
		"success_url":      successURL,
		"cancel_url":       cancelURL,
	}
	var out struct {
		Success     bool   `json:"success"`
		CheckoutURL string `json:"checkout_url"`
		Error       string `json:"error"`
	}
	if err := s.client.PostJSON(ctx, "/api/subscriptions/checkout", payload, &out); err != nil {
		return "", err
	}
	if !out.Success {
		if out.Error != "" {
			return "", errors.New(out.Error)
		}
		return "", errors.New("failed to create checkout")
	}
	return out.CheckoutURL, nil
}

// TeamMembers lists the organization's members.
func (s *Subscriptions) TeamMembers(ctx context.Context) (Result, error) {
	return s.get(ctx, "/api/team-members")
}

// Info fetches the subscription summary.
func (s *Subscriptions) Info(ctx context.Context) (Result, error) {
	return s.get(ctx, "/api/subscription-info")
}

// PaymentMethods is always empty: payment is collected during checkout.
func (s *Subscriptions) PaymentMethods(context.Context) (Result, error) {
	return Result{"success": true, "payment_methods": []any{}}, nil
}

// Packages fetches the package options for a seat count.
func (s *Subscriptions) Packages(ctx context.Context, seats int) (Result, error) {
	return s.get(ctx, fmt.Sprintf("/api/packages?seats=%d", seats))
}

// UpdateSeats changes the seat count under the selected package.
func (s *Subscriptions) UpdateSeats(ctx context.Context, seats int, pkg Package) (Result, error) {
	payload := map[string]any{
		"seat_count":   seats,
		"package_type": pkg.Type,
	}
	if pkg.Type == "standard" {
		payload["price_id"] = pkg.PriceID
	} else {
		payload["base_price_id"] = pkg.BasePriceID
		payload["additional_seat_price_id"] = pkg.AdditionalSeatPriceID
		payload["additional_seats"] = pkg.AdditionalSeats
	}
	var out Result
	if err := s.client.PostJSON(ctx, "/api/subscriptions/update-seats", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Subscriptions) get(ctx context.Context, path string) (Result, error) {
	var out Result
	if err := s.client.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
