package model

import (
	"strings"
	"time"
)

// DefaultRole is assigned to every account created through registration.
const DefaultRole = "user"

// Longest accepted values, in characters. They match the users table.
const (
	MaxNameLen  = 100
	MaxEmailLen = 255
	MaxPhoneLen = 32
)

// User is the account record owned by the user store. Handlers only hold
// transient copies for the duration of a request.
//
// PasswordHash carries a `json:"-"` tag so that no response, regardless of
// which handler writes it, can serialize the hash. Handlers return User
// values directly and rely on this tag for sanitization.
type User struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	DateOfBirth        *time.Time `json:"dateOfBirth,omitempty"`
	PhoneNo            string     `json:"phoneNo,omitempty"`
	Roles              []string   `json:"role"`
	EmailNotifications bool       `json:"emailNotifications"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// UserPatch describes a partial update. Nil fields are left untouched.
type UserPatch struct {
	Name               *string
	FirstName          *string
	LastName           *string
	Email              *string
	PasswordHash       *string
	DateOfBirth        *time.Time
	PhoneNo            *string
	EmailNotifications *bool
}

// Apply copies every non-nil patch field onto u.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		u.DateOfBirth = &dob
	}
	if p.PhoneNo != nil {
		u.PhoneNo = *p.PhoneNo
	}
	if p.EmailNotifications != nil {
		u.EmailNotifications = *p.EmailNotifications
	}
}

// FullName joins first and last name the way the stored name is derived.
func FullName(firstName, lastName string) string {
	return firstName + " " + lastName
}

// NormalizeEmail lower-cases and trims an address before lookups and writes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRoles drops blank and repeated labels, keeping first-seen order.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// RoleString renders the value of the role cookie: the normalized labels
// joined by a single space.
func RoleString(roles []string) string {
	return strings.Join(NormalizeRoles(roles), " ")
}
