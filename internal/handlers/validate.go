// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits for admin API inputs.
const (
	maxEmailLen    = 254
	maxPasswordLen = 128
	totpDigits     = 6
)

// validateLogin checks login inputs and returns the first error found.
func validateLogin(email, password, code string) string {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "Email and password are required."
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		return "Email is too long."
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Email is not valid."
	}
	if utf8.RuneCountInString(password) > maxPasswordLen {
		return "Password is too long."
	}
	if code != "" {
		return validateCode(code)
	}
	return ""
}

// validateCode checks that a TOTP code is six digits.
func validateCode(code string) string {
	if len(code) != totpDigits {
		return "Code must be 6 digits."
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return "Code must be 6 digits."
		}
	}
	return ""
}
