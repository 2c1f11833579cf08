package models

import "time"

// Profile holds the role-specific details captured at registration.
// Specialty and LicenseNumber are only meaningful for doctors.
type Profile struct {
	ID            string    `json:"-"`
	UserID        string    `json:"-"`
	Role          Role      `json:"role"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Specialty     string    `json:"specialty,omitempty"`
	LicenseNumber string    `json:"licenseNumber,omitempty"`
	CreatedAt     time.Time `json:"-"`
}
