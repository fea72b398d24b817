// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package middleware provides HTTP middleware for the SME Insights server.
package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the status/message envelope the admin API returns.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// writeError sends a JSON error envelope with the given status code.
func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorBody{Status: "error", Message: message})
}
