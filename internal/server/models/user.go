// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the account type. Admins are created out of band.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// User is the credential record owned by the users repository.
//
// The e-mail verification and password reset tokens are stored as SHA-256
// hashes; the raw values only exist in the e-mail sent to the user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role

	IsEmailVerified               bool
	EmailVerificationTokenHash    *string
	EmailVerificationTokenExpires *time.Time
	PasswordResetTokenHash        *string
	PasswordResetTokenExpires     *time.Time

	IsTwoFactorEnabled bool
	TwoFactorSecret    *string

	LoginAttempts int
	LockedUntil   *time.Time
	LastLogin     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy; pointer fields do not alias the receiver's.
func (u *User) Clone() *User {
	c := *u
	c.EmailVerificationTokenHash = cloneString(u.EmailVerificationTokenHash)
	c.EmailVerificationTokenExpires = cloneTime(u.EmailVerificationTokenExpires)
	c.PasswordResetTokenHash = cloneString(u.PasswordResetTokenHash)
	c.PasswordResetTokenExpires = cloneTime(u.PasswordResetTokenExpires)
	c.TwoFactorSecret = cloneString(u.TwoFactorSecret)
	c.LockedUntil = cloneTime(u.LockedUntil)
	c.LastLogin = cloneTime(u.LastLogin)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// IsLocked reports whether the lockout window is still open at now, and how
// much of it remains.
func (u *User) IsLocked(now time.Time) (bool, time.Duration) {
	if u.LockedUntil == nil || !u.LockedUntil.After(now) {
		return false, 0
	}
	return true, u.LockedUntil.Sub(now)
}

// UserSummary is the public view returned by register and login.
type UserSummary struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Role            Role   `json:"role"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:              u.ID,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
	}
}

// SanitizedUser is the caller's own record as returned by /me. It never
// carries hashes, tokens or the TOTP secret.
type SanitizedUser struct {
	UserSummary
	IsTwoFactorEnabled bool       `json:"isTwoFactorEnabled"`
	LastLogin          *time.Time `json:"lastLogin"`
	CreatedAt          time.Time  `json:"createdAt"`
	Profile            *Profile   `json:"profile,omitempty"`
}

func (u *User) Sanitized(p *Profile) *SanitizedUser {
	return &SanitizedUser{
		UserSummary:        u.Summary(),
		IsTwoFactorEnabled: u.IsTwoFactorEnabled,
		LastLogin:          u.LastLogin,
		CreatedAt:          u.CreatedAt,
		Profile:            p,
	}
}
