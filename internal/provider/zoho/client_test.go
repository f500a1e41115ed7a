package zoho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRefreshSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Fatalf("unexpected grant_type: %s", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "refresh-1" {
			t.Fatalf("unexpected refresh_token: %s", r.PostForm.Get("refresh_token"))
		}
		if r.PostForm.Get("client_id") != "client" || r.PostForm.Get("client_secret") != "secret" {
			t.Fatalf("client credentials not forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-token","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	client := NewClient(srv.URL, "client", "secret",
		WithHTTPClient(srv.Client()),
		WithClock(func() time.Time { return fixed }),
	)

	tok, err := client.Refresh(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if tok.AccessToken != "fresh-token" {
		t.Fatalf("unexpected access token: %s", tok.AccessToken)
	}
	if tok.ExpiresAt != fixed.Unix()+3600 {
		t.Fatalf("unexpected expiry: %d", tok.ExpiresAt)
	}
}

func TestRefreshErrorField(t *testing.T) {
	// Zoho reports invalid refresh tokens with HTTP 200 and an error field.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"invalid_code"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "client", "secret", WithHTTPClient(srv.Client()))
	if _, err := client.Refresh(context.Background(), "stale"); err == nil {
		t.Fatal("expected error for rejected refresh")
	}
}

func TestRefreshHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "client", "secret", WithHTTPClient(srv.Client()))
	if _, err := client.Refresh(context.Background(), "refresh-1"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestRefreshEmptyToken(t *testing.T) {
	client := NewClient("http://unused.invalid", "client", "secret")
	if _, err := client.Refresh(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty refresh token")
	}
}
