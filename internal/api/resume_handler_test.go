package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"rdFolio/internal/storage"
)

type fakeResumeStorage struct {
	statErr    error
	presignErr error
	filename   string
	ttl        time.Duration
}

func (s *fakeResumeStorage) StatObject(_ context.Context, objectKey string) (storage.ObjectInfo, error) {
	if s.statErr != nil {
		return storage.ObjectInfo{}, s.statErr
	}
	return storage.ObjectInfo{Key: objectKey, Size: 1024, ContentType: "application/pdf"}, nil
}

func (s *fakeResumeStorage) PresignDownload(_ context.Context, objectKey, filename string, ttl time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	s.filename = filename
	s.ttl = ttl
	return "https://files.example.com/portfolio/" + objectKey + "?X-Amz-Signature=abc", nil
}

func TestResumeDownloadRedirects(t *testing.T) {
	fake := &fakeResumeStorage{}
	h := NewResumeHandler(fake, "static/Rishikesh_Deshetty_Resume.pdf", 10*time.Minute)
	r := newTestEngine(Handlers{Resume: h})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/Rishikesh_Deshetty_Resume.pdf", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d body=%s", w.Code, w.Body.String())
	}
	want := "https://files.example.com/portfolio/static/Rishikesh_Deshetty_Resume.pdf?X-Amz-Signature=abc"
	if got := w.Header().Get("Location"); got != want {
		t.Fatalf("unexpected location %q", got)
	}
	if fake.filename != "Rishikesh_Deshetty_Resume.pdf" || fake.ttl != 10*time.Minute {
		t.Fatalf("unexpected presign args filename=%q ttl=%s", fake.filename, fake.ttl)
	}
}

func TestResumeDownloadMissingObject(t *testing.T) {
	fake := &fakeResumeStorage{statErr: minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}}
	r := newTestEngine(Handlers{Resume: NewResumeHandler(fake, "static/resume.pdf", time.Minute)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resume.pdf", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestResumeDownloadStorageError(t *testing.T) {
	fake := &fakeResumeStorage{presignErr: errors.New("signature failure")}
	r := newTestEngine(Handlers{Resume: NewResumeHandler(fake, "static/resume.pdf", time.Minute)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resume.pdf", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", w.Code)
	}
}
