package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientFetchesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/owner-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"owner-1","first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","phone":"+15550100"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL + "/")
	p, err := client.GetOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("get owner: %v", err)
	}
	if p.Email != "ada@example.com" || p.FirstName != "Ada" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestHTTPClientMapsFailuresToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL)
	if _, err := client.GetOwner(context.Background(), "owner-2"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	srv.Close()
	if _, err := client.GetOwner(context.Background(), "owner-2"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable after shutdown, got %v", err)
	}
}
