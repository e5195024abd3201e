package model

import "time"

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleUser  UserRole = "user"  // Default role, forced on signup
	UserRoleAdmin UserRole = "admin" // Manages tours and users
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// Password policy
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit in bytes
)

// User represents a user account
type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                string     `json:"photo,omitempty"`
	Role                 UserRole   `json:"role"`
	PasswordHash         string     `json:"-"` // Never expose password hash
	PasswordChangedAt    *time.Time `json:"passwordChangedAt,omitempty"`
	PasswordResetToken   string     `json:"-"` // SHA-256 hex of the raw reset token
	PasswordResetExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// iatSlack absorbs the float rounding of a decoded millisecond iat, which
// can land one millisecond early.
const iatSlack = time.Millisecond

// ChangedPasswordAfter reports whether the password changed after a token
// issued at iat was signed. Both sides are compared at millisecond precision.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Millisecond).After(iat.Truncate(time.Millisecond).Add(iatSlack))
}

// UserSummary is the populated view of a user referenced from another document
type UserSummary struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Photo string   `json:"photo,omitempty"`
	Role  UserRole `json:"role,omitempty"`
}

// Summary returns the populated view of u
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// SignupRequest is the body of POST /users/signup
type SignupRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Photo           string `json:"photo,omitempty" validate:"omitempty,max=500"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginRequest is the body of POST /users/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /users/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of PATCH /users/reset-password/{token}
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdatePasswordRequest is the body of PATCH /users/update-password
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdateMeRequest is the body of PATCH /users/update-me. Only name, email and
// photo can change; password fields are present so they can be rejected.
type UpdateMeRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Photo           *string `json:"photo,omitempty" validate:"omitempty,max=500"`
	Password        *string `json:"password,omitempty"`
	PasswordConfirm *string `json:"passwordConfirm,omitempty"`
}

// UserUpdate holds the whitelisted fields that may be changed on a user
type UserUpdate struct {
	Name  *string
	Email *string
	Photo *string
}

// IsEmpty reports whether the update changes nothing
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Photo == nil
}

// AuthResult is returned by every operation that logs a user in
type AuthResult struct {
	Token string
	User  *User
}
