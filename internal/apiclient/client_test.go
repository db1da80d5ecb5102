package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"rdFolio/internal/config"
	"rdFolio/internal/portfolio"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(config.BackendConfig{BaseURL: srv.URL + "/api/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestFetchSkillsKeepsBackendOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/skills", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("X-Correlation-ID"); got != "corr-1" {
			t.Errorf("expected correlation id header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":3,"name":"Excel","category":"Tools","proficiency":90,"created_at":"2024-01-01T00:00:00"},
			{"id":1,"name":"Python","category":"Languages","proficiency":120,"created_at":"2024-01-01T00:00:00"}
		]`))
	})
	client := newTestClient(t, mux)

	ctx := WithCorrelationID(context.Background(), "corr-1")
	skills, err := client.FetchSkills(ctx)
	if err != nil {
		t.Fatalf("fetch skills: %v", err)
	}
	if len(skills) != 2 || skills[0].ID != 3 || skills[1].ID != 1 {
		t.Fatalf("unexpected skills %+v", skills)
	}
	if skills[1].Proficiency != 120 {
		t.Fatalf("proficiency should pass through, got %d", skills[1].Proficiency)
	}
}

func TestFetchExperiencesAndEducation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/experiences", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"company":"Acme","position":"Analyst","duration":"2021 - Present","description":"a\nb","is_current":true,"created_at":"2024-01-01T00:00:00Z"}]`))
	})
	mux.HandleFunc("/api/education", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":7,"institution":"U","degree":"MS","field_of_study":"IS","gpa":"3.8/4.0","graduation_date":"May 2023","location":"MN","created_at":"2024-01-01 00:00:00"}]`))
	})
	client := newTestClient(t, mux)

	experiences, err := client.FetchExperiences(context.Background())
	if err != nil {
		t.Fatalf("fetch experiences: %v", err)
	}
	if len(experiences) != 1 || !experiences[0].IsCurrent || experiences[0].Company != "Acme" {
		t.Fatalf("unexpected experiences %+v", experiences)
	}

	education, err := client.FetchEducation(context.Background())
	if err != nil {
		t.Fatalf("fetch education: %v", err)
	}
	if len(education) != 1 || education[0].GPA != "3.8/4.0" {
		t.Fatalf("unexpected education %+v", education)
	}
}

func TestFetchProjectsNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.FetchProjects(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsResponse(err) {
		t.Fatalf("expected response error, got %T: %v", err, err)
	}
	if IsTransport(err) {
		t.Fatal("response error must not be classified as transport error")
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", StatusCode(err))
	}
}

func TestFetchProjectsMalformedPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))

	_, err := client.FetchProjects(context.Background())
	if !IsResponse(err) {
		t.Fatalf("expected response error for malformed payload, got %v", err)
	}
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.Err == nil {
		t.Fatalf("expected wrapped decode error, got %+v", respErr)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client, err := New(config.BackendConfig{BaseURL: baseURL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.FetchEducation(context.Background())
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestFetchCancelledContextIsTransportError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchSkills(ctx)
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestSubmitContactMessage(t *testing.T) {
	var received portfolio.ContactMessage
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/contact" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Message sent successfully"}`))
	}))

	msg := portfolio.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "hello"}
	if err := client.SubmitContactMessage(context.Background(), msg); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if received != msg {
		t.Fatalf("backend received %+v", received)
	}
}

func TestSubmitContactMessagePropagatesFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"invalid email"}`, http.StatusUnprocessableEntity)
	}))

	err := client.SubmitContactMessage(context.Background(), portfolio.ContactMessage{Name: "x", Email: "bad", Message: "y"})
	if StatusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 response error, got %v", err)
	}
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	if _, err := New(config.BackendConfig{BaseURL: "localhost:8000"}); err == nil {
		t.Fatal("expected error for base url without scheme")
	}
}
