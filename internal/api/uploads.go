package api

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/intake/internal/fetch"
)

// Uploads sends images to the backend's object storage endpoints.
type Uploads struct {
	client *fetch.Client
	now    func() time.Time
}

// NewUploads creates the upload service.
func NewUploads(client *fetch.Client) *Uploads {
	return &Uploads{client: client, now: time.Now}
}

// UploadDoctorSignature uploads a doctor's signature image.
func (u *Uploads) UploadDoctorSignature(ctx context.Context, doctorID int, file fetch.File) (Result, error) {
	file.Field = "signature"
	return u.upload(ctx, fmt.Sprintf("/api/doctors/%d/signature", doctorID), file)
}

// UploadOrganizationLogo uploads the organization's logo.
func (u *Uploads) UploadOrganizationLogo(ctx context.Context, file fetch.File) (Result, error) {
	file.Field = "logo"
	return u.upload(ctx, "/api/organization/logo", file)
}

func (u *Uploads) upload(ctx context.Context, path string, file fetch.File) (Result, error) {
	resp, err := u.client.Upload(ctx, path, nil, file)
	if err != nil {
		return nil, err
	}
	var out Result
	if len(resp.Body) == 0 {
		return Result{"success": true}, nil
	}
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// DoctorSignatureURL returns a cache-busted URL for a doctor's signature.
func (u *Uploads) DoctorSignatureURL(doctorID int) string {
	return u.bust(fmt.Sprintf("/api/doctor/%d/signature", doctorID))
}

// OrganizationLogoURL returns a cache-busted URL for the organization logo.
func (u *Uploads) OrganizationLogoURL() string {
	return u.bust("/api/organization/logo")
}

func (u *Uploads) bust(path string) string {
	return fmt.Sprintf("%s?t=%d", u.client.Executor().ResolveURL(path), u.now().UnixMilli())
}
