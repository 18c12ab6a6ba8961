package config

import "net/http"

// CookieConfig holds the attributes shared by the session cookies. The
// same values must be used to set and to clear a cookie, otherwise some
// clients keep the old one.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}
