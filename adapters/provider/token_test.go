package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestStaticToken(t *testing.T) {
	tok, err := NewStaticToken("secret-123").GetAccessToken(context.Background())
	if err != nil {
		t.Fatalf("GetAccessToken: %v", err)
	}
	if tok != "secret-123" {
		t.Errorf("token = %q", tok)
	}
}

func TestStaticToken_EmptyIsError(t *testing.T) {
	if _, err := NewStaticToken("").GetAccessToken(context.Background()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestClientCredentials_ExchangeAndCache(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)

		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("client_id"); got != "app-1" {
			t.Errorf("client_id = %q", got)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-abc",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	cc := NewClientCredentials(ClientCredentialsConfig{
		TokenURL:     srv.URL,
		ClientID:     "app-1",
		ClientSecret: "hunter2",
	})

	for i := 0; i < 3; i++ {
		tok, err := cc.GetAccessToken(context.Background())
		if err != nil {
			t.Fatalf("GetAccessToken: %v", err)
		}
		if tok != "tok-abc" {
			t.Errorf("token = %q", tok)
		}
	}

	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("token endpoint called %d times, want 1 (cached)", n)
	}
}

func TestClientCredentials_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	defer srv.Close()

	cc := NewClientCredentials(ClientCredentialsConfig{TokenURL: srv.URL, ClientID: "x", ClientSecret: "y"})
	if _, err := cc.GetAccessToken(context.Background()); err == nil {
		t.Fatal("expected error for 401 from token endpoint")
	}
}

func TestClientCredentials_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"expires_in": 3600})
	}))
	defer srv.Close()

	cc := NewClientCredentials(ClientCredentialsConfig{TokenURL: srv.URL, ClientID: "x", ClientSecret: "y"})
	if _, err := cc.GetAccessToken(context.Background()); err == nil {
		t.Fatal("expected error when response has no access_token")
	}
}
