package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel         `bun:"table:users,alias:usr"`
	ID                    uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username              string     `bun:"username,notnull,unique" json:"username"`
	Email                 string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash          string     `bun:"password_hash,notnull" json:"-"`
	Role                  UserRole   `bun:"user_role,notnull" json:"role"`
	VerificationCode      *string    `bun:"verification_code" json:"-"`
	VerificationExpiresAt *time.Time `bun:"verification_expires_at" json:"-"`
	Verified              bool       `bun:"verified,notnull" json:"verified"`
	CreatedAt             time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt             time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// SetVerificationCode stores a fresh code that expires after ttl
func (u *User) SetVerificationCode(code string, now time.Time, ttl time.Duration) {
	exp := now.Add(ttl)
	u.VerificationCode = &code
	u.VerificationExpiresAt = &exp
	u.UpdatedAt = now
}

// MarkVerified flips the verified flag and clears the pending code
func (u *User) MarkVerified(now time.Time) {
	u.Verified = true
	u.VerificationCode = nil
	u.VerificationExpiresAt = nil
	u.UpdatedAt = now
}

// VerificationExpired reports whether the pending code is past its expiry
func (u *User) VerificationExpired(now time.Time) bool {
	if u.VerificationExpiresAt == nil {
		return false
	}
	return !now.Before(*u.VerificationExpiresAt)
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type authIdentity struct {
	id       string
	username string
	email    string
	role     string
	verified bool
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Username() string {
	return a.username
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

func (a authIdentity) Verified() bool {
	return a.verified
}

var _ Identity = authIdentity{}

// IdentityFromUser builds an Identity view of a user record
func IdentityFromUser(u *User) Identity {
	return authIdentity{
		id:       u.ID.String(),
		username: u.Username,
		email:    u.Email,
		role:     string(u.Role),
		verified: u.Verified,
	}
}
