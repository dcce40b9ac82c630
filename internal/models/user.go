package models

import "time"

type Role string

const (
	RoleBusiness Role = "business"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	return r == RoleBusiness || r == RoleCustomer
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	DateJoined   time.Time `json:"date_joined"`
}

// Profile is the role and contact data attached 1:1 to a user.
// Username and Email are read from the users table.
type Profile struct {
	UserID       int64     `json:"user"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Type         Role      `json:"type"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Bio          string    `json:"bio"`
	Location     string    `json:"location"`
	Tel          string    `json:"tel"`
	Description  string    `json:"description"`
	WorkingHours string    `json:"working_hours"`
	File         string    `json:"file"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// ProfilePatch carries the profile fields a PATCH may change. Nil means untouched.
type ProfilePatch struct {
	FirstName    *string
	LastName     *string
	Bio          *string
	Location     *string
	Tel          *string
	Description  *string
	WorkingHours *string
	File         *string
	Email        *string
}

// Account is a user together with its profile and the token issued to it.
type Account struct {
	User    User
	Profile Profile
	Token   string
}

// UserRole is the minimal user lookup needed by permission checks.
type UserRole struct {
	UserID  int64
	Role    Role
	IsStaff bool
}
