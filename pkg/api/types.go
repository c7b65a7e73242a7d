package api

import (
	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/cert"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username      string  `json:"username"`
	Password      string  `json:"password"`
	Role          string  `json:"role"`
	CompanyName   *string `json:"company_name,omitempty"`
	ContactNumber *string `json:"contact_number,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the login response: a bearer token plus the identity it
// belongs to, so clients need no second round-trip.
type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        auth.Identity `json:"user"`
}

// CertificateCreateRequest is the body of POST /api/certificates. The owner,
// id, certificate number, and timestamps are assigned server-side.
type CertificateCreateRequest struct {
	DealerName     string              `json:"dealer_name"`
	DealerLicense  string              `json:"dealer_license"`
	VehicleDetails cert.VehicleDetails `json:"vehicle_details"`
	OwnerDetails   cert.OwnerDetails   `json:"owner_details"`
	FitmentDetails cert.FitmentDetails `json:"fitment_details"`
	Status         string              `json:"status"`
}

// CertificateUpdateRequest is the body of PUT /api/certificates/{id}.
// Absent fields are left untouched; a detail group, when present, replaces
// that group whole.
type CertificateUpdateRequest struct {
	DealerName     *string              `json:"dealer_name"`
	DealerLicense  *string              `json:"dealer_license"`
	VehicleDetails *cert.VehicleDetails `json:"vehicle_details"`
	OwnerDetails   *cert.OwnerDetails   `json:"owner_details"`
	FitmentDetails *cert.FitmentDetails `json:"fitment_details"`
	Status         *string              `json:"status"`
}

// UploadImageResponse acknowledges a successful image attachment.
type UploadImageResponse struct {
	Message   string `json:"message"`
	ImageType string `json:"image_type"`
}
