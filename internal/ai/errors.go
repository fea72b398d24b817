// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies router failures so callers can branch without parsing
// provider wording.
type Kind int

const (
	KindMissingKey Kind = iota + 1
	KindInvalidModel
	KindAuthFailed
	KindRateLimited
	KindQuotaExceeded
	KindAPIError
	KindTransport
	KindNoModels
	KindFallbackUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindMissingKey:
		return "missing_key"
	case KindInvalidModel:
		return "invalid_model"
	case KindAuthFailed:
		return "auth_failed"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindAPIError:
		return "api_error"
	case KindTransport:
		return "transport"
	case KindNoModels:
		return "no_models"
	case KindFallbackUnavailable:
		return "fallback_unavailable"
	default:
		return "unknown"
	}
}

// Error is the only error type GenerateContent returns. Message is
// user-facing and ends up in the admin UI and run records.
type Error struct {
	Kind     Kind
	Provider Provider
	Model    string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != ProviderUnknown {
		b.WriteString(e.Provider.String())
	} else {
		b.WriteString("ai")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// terminal reports whether a provider attempt loop must stop at e.
// Bad keys and exhausted quotas are the same for every model of a provider.
func (e *Error) terminal() bool {
	if e.Provider == ProviderGoogle {
		return false
	}
	switch e.Kind {
	case KindAuthFailed, KindRateLimited, KindQuotaExceeded:
		return true
	}
	return false
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsQuota reports whether err means the provider refused for rate or
// quota reasons.
func IsQuota(err error) bool {
	k := KindOf(err)
	return k == KindRateLimited || k == KindQuotaExceeded
}

// IsProviderError reports whether err came back from talking to a
// provider, as opposed to local misconfiguration. Batches back off
// a little longer after these.
func IsProviderError(err error) bool {
	switch KindOf(err) {
	case KindAuthFailed, KindRateLimited, KindQuotaExceeded, KindAPIError,
		KindTransport, KindNoModels, KindFallbackUnavailable:
		return true
	}
	return false
}
