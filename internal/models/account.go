package models

import (
	"time"
)

// Realm separates the user and admin account populations. Each realm has its
// own tables, rate-limit key namespace and token audience.
type Realm string

const (
	RealmUser  Realm = "user"
	RealmAdmin Realm = "admin"
)

// AccountStatus is the activation lifecycle of an account
type AccountStatus string

const (
	StatusPending AccountStatus = "PENDING"
	StatusActive  AccountStatus = "ACTIVE"
)

type Account struct {
	ID           string
	Email        string // always lowercase
	PasswordHash string
	FullName     *string
	BirthDate    *time.Time
	Image        *string
	Gender       *string // "male" or "female"
	Status       AccountStatus
	TokenKey     string // Per-account secret mixed into session signing
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account completed OTP activation
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// ProfileUpdate carries the optional profile fields; nil means unchanged
type ProfileUpdate struct {
	FullName  *string
	BirthDate *time.Time
	Gender    *string
}

// Profile is the public view of an account returned to clients
type Profile struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	BirthDate *string `json:"birth_date"`
	Image     *string `json:"image"`
	Gender    *string `json:"gender"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// ToProfile converts an account to its public representation
func (a *Account) ToProfile() *Profile {
	p := &Profile{
		ID:        a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		Image:     a.Image,
		Gender:    a.Gender,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
	if a.BirthDate != nil {
		bd := a.BirthDate.Format("2006-01-02")
		p.BirthDate = &bd
	}
	return p
}
