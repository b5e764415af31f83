package trendmint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSubmitLaunchSendsAPIKey(t *testing.T) {
	submitted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/launches" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Fatalf("expected bearer key, got %q", r.Header.Get("Authorization"))
		}
		var submission LaunchSubmission
		if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if submission.Trend != "AI" {
			t.Fatalf("unexpected trend: %q", submission.Trend)
		}
		submitted = true
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(Launch{ID: "launch-1", Trend: "AI", Status: "pending"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	created, err := client.SubmitLaunch(context.Background(), LaunchSubmission{Trend: "AI"})
	if err != nil {
		t.Fatalf("submit launch: %v", err)
	}
	if created.ID != "launch-1" || created.Status != "pending" {
		t.Fatalf("unexpected launch: %+v", created)
	}
	if !submitted {
		t.Fatal("launch was not submitted")
	}
}

func TestGetLaunchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/launches/launch-404" {
			http.Error(w, "launch not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetLaunch(context.Background(), "launch-404")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", apiErr.StatusCode)
	}
}

func TestListLaunchesQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("limit") != "5" || query.Get("status") != "failed,succeeded" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]Launch{{ID: "a", Status: "failed"}})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	launches, err := client.ListLaunches(context.Background(), ListParams{
		Limit:    5,
		Statuses: []string{"failed", "succeeded"},
	})
	if err != nil {
		t.Fatalf("list launches: %v", err)
	}
	if len(launches) != 1 || launches[0].ID != "a" {
		t.Fatalf("unexpected launches: %+v", launches)
	}
}

func TestWaitForLaunchPollsUntilTerminal(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := "running"
		var result *TokenRecord
		if calls >= 3 {
			status = "succeeded"
			result = &TokenRecord{Ticker: "TRND", MintAddress: "0xabc"}
		}
		_ = json.NewEncoder(w).Encode(Launch{ID: "launch-1", Status: status, Result: result})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done, err := client.WaitForLaunch(ctx, "launch-1", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait for launch: %v", err)
	}
	if done.Status != "succeeded" || done.Result == nil || done.Result.Ticker != "TRND" {
		t.Fatalf("unexpected terminal launch: %+v", done)
	}
	if calls < 3 {
		t.Fatalf("expected at least 3 polls, got %d", calls)
	}
}
