// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"
	"testing"
)

func TestValidateLogin(t *testing.T) {
	tests := []struct {
		name, email, password, code string
		wantErr                     bool
	}{
		{"valid", "admin@example.com", "secret", "", false},
		{"valid with code", "admin@example.com", "secret", "123456", false},
		{"missing email", "", "secret", "", true},
		{"missing password", "admin@example.com", "", "", true},
		{"bad email", "not-an-email", "secret", "", true},
		{"long email", strings.Repeat("a", 250) + "@example.com", "secret", "", true},
		{"long password", "admin@example.com", strings.Repeat("p", maxPasswordLen+1), "", true},
		{"bad code", "admin@example.com", "secret", "12a456", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateLogin(tt.email, tt.password, tt.code)
			if (got != "") != tt.wantErr {
				t.Errorf("validateLogin() = %q, wantErr %v", got, tt.wantErr)
			}
		})
	}
}

func TestValidateCode(t *testing.T) {
	tests := map[string]bool{
		"123456":  true,
		"000000":  true,
		"12345":   false,
		"1234567": false,
		"abcdef":  false,
		"":        false,
	}
	for code, ok := range tests {
		if got := validateCode(code) == ""; got != ok {
			t.Errorf("validateCode(%q) ok = %v, want %v", code, got, ok)
		}
	}
}
