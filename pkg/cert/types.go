// Package cert defines the fitment certificate domain model: one record per
// conspicuity-tape fitment event on a vehicle, owned by exactly one retailer.
package cert

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the two-value certificate state. There are no transition rules;
// the field is a flat flag.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// Valid reports whether s is a defined status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusSubmitted
}

// ImageTag identifies one of the four photographed vehicle sides.
type ImageTag string

const (
	TagFront ImageTag = "front"
	TagBack  ImageTag = "back"
	TagSide1 ImageTag = "side1"
	TagSide2 ImageTag = "side2"
)

// Valid reports whether t is one of the four defined tags.
func (t ImageTag) Valid() bool {
	switch t {
	case TagFront, TagBack, TagSide1, TagSide2:
		return true
	}
	return false
}

// VehicleDetails describes the vehicle the tape was fitted to.
type VehicleDetails struct {
	RegistrationNo   string `json:"registration_no"`
	ChassisNo        string `json:"chassis_no"`
	VehicleMake      string `json:"vehicle_make"`
	VehicleModel     string `json:"vehicle_model"`
	RegistrationYear int    `json:"registration_year"`
	EngineNo         string `json:"engine_no"`
}

// OwnerDetails identifies the vehicle owner.
type OwnerDetails struct {
	OwnerName     string `json:"owner_name"`
	ContactNumber string `json:"contact_number"`
}

// FitmentDetails records the fitted tape lengths and plate counts.
type FitmentDetails struct {
	// Conspicuity tapes, 20mm, lengths in metres
	Red20mm    float64 `json:"red_20mm"`
	White20mm  float64 `json:"white_20mm"`
	Yellow20mm float64 `json:"yellow_20mm"`
	// Conspicuity tapes, 50mm
	Red50mm    float64 `json:"red_50mm"`
	White50mm  float64 `json:"white_50mm"`
	Yellow50mm float64 `json:"yellow_50mm"`
	// Rear marking plates
	C3Plates int `json:"c3_plates"`
	C4Plates int `json:"c4_plates"`
}

// Certificate is one fitment record. RetailerID and CertificateNo are set at
// creation and never change; UpdatedAt is bumped by every mutation including
// image attachment. Images holds base64 payloads keyed by tag.
type Certificate struct {
	ID             string              `json:"id"`
	CertificateNo  string              `json:"certificate_no"`
	RetailerID     string              `json:"retailer_id"`
	DealerName     string              `json:"dealer_name"`
	DealerLicense  string              `json:"dealer_license"`
	VehicleDetails VehicleDetails      `json:"vehicle_details"`
	OwnerDetails   OwnerDetails        `json:"owner_details"`
	FitmentDetails FitmentDetails      `json:"fitment_details"`
	FitmentDate    time.Time           `json:"fitment_date"`
	Images         map[ImageTag]string `json:"images"`
	Status         Status              `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NewCertificateNo generates a human-displayable certificate number.
// Format: CERT followed by the uppercased first 8 hex chars of a UUID.
func NewCertificateNo() string {
	return "CERT" + strings.ToUpper(uuid.NewString()[:8])
}
