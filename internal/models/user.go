package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles of a user profile.
const (
	RoleResident = "resident"
	RoleOfficial = "official"
	RoleAdmin    = "admin"
)

// UserAccount holds the credentials of a registered user.
type UserAccount struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate generates a UUID for the account if the ID is not set yet.
func (u *UserAccount) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// UserProfile is the public-facing profile of a user, keyed by the account ID.
type UserProfile struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	FullName    string    `gorm:"type:text" json:"full_name"`
	PhoneNumber string    `gorm:"type:text" json:"phone_number"`
	Points      int       `gorm:"not null;default:0" json:"points"`
	Role        string    `gorm:"type:text;not null;default:resident" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOfficial reports whether the profile may triage complaints.
func (p *UserProfile) IsOfficial() bool {
	return p.Role == RoleOfficial || p.Role == RoleAdmin
}

// Award ledger states.
const (
	AwardPending = "pending"
	AwardApplied = "applied"
)

// PointAward records the loyalty points owed for one identified submission.
// The unique complaint code makes applying an award idempotent.
type PointAward struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ComplaintCode string    `gorm:"uniqueIndex;not null" json:"complaint_code"`
	UserID        string    `gorm:"index;not null" json:"user_id"`
	Amount        int       `gorm:"not null" json:"amount"`
	Status        string    `gorm:"type:text;not null;default:pending;index" json:"status"`
	Attempts      int       `gorm:"not null;default:0" json:"attempts"`
	LastError     string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
