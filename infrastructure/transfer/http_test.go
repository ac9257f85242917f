package transfer

import (
	"chat-session/domain"
	"chat-session/errors"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTransfer() *HTTPTransfer {
	return NewHTTPTransfer(logs.GetLoggerFromLevel(slog.LevelDebug), time.Second)
}

func serve(t *testing.T, r *chi.Mux) string {
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestUpload_Puts_File_With_Headers(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "report.pdf")
	req.NoError(os.WriteFile(path, []byte("%PDF-1.4 content"), 0o600))

	type received struct {
		body          string
		contentType   string
		contentLength int64
	}
	got := make(chan received, 1)
	r := chi.NewRouter()
	r.Put("/upload", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: string(body), contentType: r.Header.Get("Content-Type"), contentLength: r.ContentLength}
		w.WriteHeader(http.StatusOK)
	})
	url := serve(t, r)

	target := domain.UploadTarget{
		AttachmentID: "att-1",
		URL:          url + "/upload",
		Headers:      map[string]string{"Content-Type": "application/pdf"},
	}
	req.NoError(newTransfer().Upload(context.Background(), target, path))

	call := <-got
	req.Equal("%PDF-1.4 content", call.body)
	req.Equal("application/pdf", call.contentType)
	req.Equal(int64(16), call.contentLength)
}

func TestUpload_Errors(t *testing.T) {
	req := require.New(t)
	r := chi.NewRouter()
	r.Put("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	url := serve(t, r)
	path := filepath.Join(t.TempDir(), "note.txt")
	req.NoError(os.WriteFile(path, []byte("hello"), 0o600))

	err := newTransfer().Upload(context.Background(), domain.UploadTarget{URL: url + "/upload"}, path)
	req.ErrorIs(err, errors.ErrUnexpectedResponse)

	err = newTransfer().Upload(context.Background(), domain.UploadTarget{URL: url + "/upload"}, filepath.Join(t.TempDir(), "missing.txt"))
	req.ErrorIs(err, errors.ErrFileUnreadable)
}

func TestDownload_Replaces_Existing_File(t *testing.T) {
	req := require.New(t)
	r := chi.NewRouter()
	r.Get("/att-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh bytes"))
	})
	url := serve(t, r)
	destination := filepath.Join(t.TempDir(), "attachments", "invoice.pdf")
	req.NoError(os.MkdirAll(filepath.Dir(destination), 0o700))
	req.NoError(os.WriteFile(destination, []byte("stale"), 0o600))

	req.NoError(newTransfer().Download(context.Background(), url+"/att-1", destination))

	content, err := os.ReadFile(destination)
	req.NoError(err)
	req.Equal("fresh bytes", string(content))
	entries, err := os.ReadDir(filepath.Dir(destination))
	req.NoError(err)
	req.Len(entries, 1)
}

func TestDownload_Failure_Keeps_Previous_File(t *testing.T) {
	req := require.New(t)
	r := chi.NewRouter()
	r.Get("/att-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	url := serve(t, r)
	destination := filepath.Join(t.TempDir(), "invoice.pdf")
	req.NoError(os.WriteFile(destination, []byte("previous"), 0o600))

	err := newTransfer().Download(context.Background(), url+"/att-1", destination)

	req.ErrorIs(err, errors.ErrUnexpectedResponse)
	content, err := os.ReadFile(destination)
	req.NoError(err)
	req.Equal("previous", string(content))
}
