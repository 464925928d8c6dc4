package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/propertyflow/propertyflow/internal/directory"
	"github.com/propertyflow/propertyflow/internal/identity"
)

type fakeVerifier struct {
	ident *identity.Identity
	err   error
}

func (f *fakeVerifier) Verify(ctx context.Context, rawToken string) (*identity.Identity, error) {
	return f.ident, f.err
}

func (f *fakeVerifier) Provider() string { return "fake" }

type fakeSyncer struct {
	user *directory.User
	err  error
	got  *identity.Identity
}

func (f *fakeSyncer) Sync(ctx context.Context, ident *identity.Identity) (*directory.User, error) {
	f.got = ident
	return f.user, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return resp.Error.Code
}

func TestMiddlewareAttachesUser(t *testing.T) {
	ident := &identity.Identity{Subject: "sub-1", Email: "a@b.com"}
	syncer := &fakeSyncer{user: &directory.User{ID: "sub-1", Email: "a@b.com"}}

	var got *directory.User
	handler := Middleware(&fakeVerifier{ident: ident}, syncer, discard(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = UserFromContext(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || got.ID != "sub-1" {
		t.Errorf("expected synced user on context, got %+v", got)
	}
	if syncer.got != ident {
		t.Error("syncer should receive the verified identity")
	}
}

func TestMiddlewareMissingHeader(t *testing.T) {
	handler := Middleware(&fakeVerifier{}, &fakeSyncer{}, discard(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec.Body); code != "unauthorized" {
		t.Errorf("expected unauthorized code, got %q", code)
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	var verifyOK []bool
	handler := Middleware(
		&fakeVerifier{err: errors.New("expired")},
		&fakeSyncer{},
		discard(),
		func(provider string, ok bool) { verifyOK = append(verifyOK, ok) },
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if len(verifyOK) != 1 || verifyOK[0] {
		t.Errorf("expected one failed verification observation, got %v", verifyOK)
	}
}

func TestMiddlewareSyncFailureIs500(t *testing.T) {
	handler := Middleware(
		&fakeVerifier{ident: &identity.Identity{Subject: "sub-1"}},
		&fakeSyncer{err: errors.New("db down")},
		discard(),
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Verified credential plus storage failure must not masquerade as 401.
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if code := errorCode(t, rec.Body); code != "internal_error" {
		t.Errorf("expected internal_error code, got %q", code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"well formed", "Bearer abc123", "abc123", true},
		{"case insensitive scheme", "bearer abc123", "abc123", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic abc123", "", false},
		{"empty token", "Bearer ", "", false},
		{"scheme only", "Bearer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(req)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("BearerToken() = (%q, %v); want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
