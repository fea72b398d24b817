// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"smeinsights/internal/generator"
	"smeinsights/internal/middleware"
	"smeinsights/internal/models"
	"smeinsights/internal/scheduler"
	"smeinsights/internal/session"
)

var errBoom = errors.New("boom")

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// testSession creates a session.Data for testing.
func testSession(userID uuid.UUID, email, role string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       email,
		DisplayName: "Test User",
		Role:        role,
		TwoFADone:   twoFADone,
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return env
}

// fakeSessions records what the handlers did with the session.
type fakeSessions struct {
	created   *session.Data
	updated   *session.Data
	destroyed bool
	err       error
}

func (f *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = data
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "sid"})
	return "sid", nil
}

func (f *fakeSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	if f.err != nil {
		return f.err
	}
	f.updated = data
	return nil
}

func (f *fakeSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	f.destroyed = true
	return f.err
}

// fakeUsers is an in-memory UserRepo with plain-text passwords.
type fakeUsers struct {
	byID      map[uuid.UUID]*models.User
	passwords map[uuid.UUID]string
	err       error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*models.User{}, passwords: map[uuid.UUID]string{}}
}

func (f *fakeUsers) add(email, password string, role models.Role) *models.User {
	u := &models.User{ID: uuid.New(), Email: email, DisplayName: "Operator", Role: role}
	f.byID[u.ID] = u
	f.passwords[u.ID] = password
	return u
}

func (f *fakeUsers) FindByEmail(email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

func (f *fakeUsers) SetTOTPSecret(id uuid.UUID, secret string) error {
	u := f.byID[id]
	u.TOTPSecret = &secret
	u.TOTPEnabled = false
	return nil
}

func (f *fakeUsers) EnableTOTP(id uuid.UUID) error {
	f.byID[id].TOTPEnabled = true
	return nil
}

func (f *fakeUsers) CheckPassword(u *models.User, password string) bool {
	return f.passwords[u.ID] == password
}

// fakeRunner stands in for the scheduler.
type fakeRunner struct {
	result      *generator.Result
	err         error
	state       scheduler.State
	statusErr   error
	activated   bool
	deactivated bool
	rescheduled bool
}

func (f *fakeRunner) RunNow(context.Context) (*generator.Result, error) { return f.result, f.err }
func (f *fakeRunner) Status() (scheduler.State, error)                  { return f.state, f.statusErr }

func (f *fakeRunner) Activate(context.Context) (scheduler.State, error) {
	f.activated = true
	next := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	f.state = scheduler.State{Active: true, Interval: scheduler.IntervalDaily, NextRun: &next}
	return f.state, f.statusErr
}

func (f *fakeRunner) Reschedule(context.Context) (scheduler.State, error) {
	f.rescheduled = true
	return f.state, f.statusErr
}

func (f *fakeRunner) Deactivate(context.Context) error {
	f.deactivated = true
	f.state = scheduler.State{}
	return f.statusErr
}

type fakeCounter struct {
	n   int
	err error
}

func (f fakeCounter) Count(context.Context, time.Time) (int, error) { return f.n, f.err }

type fakeRuns struct {
	runs []models.GenerationRun
	err  error
}

func (f fakeRuns) Recent(int) ([]models.GenerationRun, error) { return f.runs, f.err }

func (f fakeRuns) FindByID(id uuid.UUID) (*models.GenerationRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, nil
}

type fakeSettings struct {
	values models.SiteSettings
	err    error
	saved  map[string]string
}

func (f *fakeSettings) All() (models.SiteSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := models.SiteSettings{}
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSettings) SetMany(values map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.saved = values
	if f.values == nil {
		f.values = models.SiteSettings{}
	}
	for k, v := range values {
		f.values[k] = v
	}
	return nil
}

// fakePosts serves content by slug.
type fakePosts struct {
	bySlug map[string]*models.Content
	recent []models.Content
	err    error
}

func (f *fakePosts) FindBySlug(slug string) (*models.Content, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySlug[slug], nil
}

func (f *fakePosts) ListRecentPublished(int) ([]models.Content, error) {
	return f.recent, f.err
}

type fakeCategories map[uuid.UUID]*models.Category

func (f fakeCategories) FindByID(id uuid.UUID) (*models.Category, error) { return f[id], nil }

type fakeMedia map[uuid.UUID]*models.Media

func (f fakeMedia) FindByID(id uuid.UUID) (*models.Media, error) { return f[id], nil }

// memPages is an in-memory PageStore.
type memPages struct {
	pages map[string][]byte
	sets  int
}

func newMemPages() *memPages { return &memPages{pages: map[string][]byte{}} }

func (m *memPages) Get(_ context.Context, key string) ([]byte, bool) {
	b, ok := m.pages[key]
	return b, ok
}

func (m *memPages) Set(_ context.Context, key string, html []byte) {
	m.sets++
	m.pages[key] = html
}
