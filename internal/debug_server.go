package internal

import (
	"chat-session/domain"
	"chat-session/errors"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	ID          string
	Kind        string
	Timestamp   string
	Participant string
	Status      string
	Detail      string
}

type TranscriptProvider func(ctx context.Context) ([]domain.TranscriptItem, error)
type StatsProvider func() map[string]any

type PageData struct {
	Kind  string
	Items []InspectRow
	Stats map[string]any
	Error string
}

// NewDebugRouter serves the live transcript on /inspect and Prometheus metrics on /metrics.
// /inspect?kind=MESSAGE keeps only one kind of item.
func NewDebugRouter(transcript TranscriptProvider, stats StatsProvider, gatherer prometheus.Gatherer) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	r := chi.NewRouter()
	r.Get("/inspect", func(w http.ResponseWriter, r *http.Request) {
		kind := strings.ToUpper(r.URL.Query().Get("kind"))
		data := PageData{Kind: kind, Stats: make(map[string]any)}
		if stats != nil {
			data.Stats = stats()
		}

		items, err := transcript(r.Context())
		if err != nil {
			data.Error = err.Error()
		}
		data.Items = lo.FilterMap(items, func(item domain.TranscriptItem, _ int) (InspectRow, bool) {
			return RowFor(item), kind == "" || item.Kind.String() == kind
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// StartDebugServer serves handler on addr until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, addr string, handler http.Handler) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Debug server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Debug server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// RowFor flattens a transcript item for display.
func RowFor(item domain.TranscriptItem) InspectRow {
	row := InspectRow{
		ID:        item.ID,
		Kind:      item.Kind.String(),
		Timestamp: "--:--:--",
		Detail:    item.ContentType,
	}
	if t, err := time.Parse(time.RFC3339Nano, item.Timestamp); err == nil {
		row.Timestamp = t.Format("15:04:05")
	}

	switch item.Kind {
	case domain.KindMessage:
		row.Participant = lo.CoalesceOrEmpty(item.Message.DisplayName, string(item.Message.ParticipantRole))
		row.Status = string(item.Message.Status)
		row.Detail = item.Message.Text
		if item.Message.AttachmentID != "" {
			row.Detail = "[attachment " + item.Message.AttachmentID + "] " + row.Detail
		}
	case domain.KindEvent:
		row.Participant = lo.CoalesceOrEmpty(item.Event.DisplayName, string(item.Event.ParticipantRole))
	case domain.KindMetadata:
		row.Status = string(item.Metadata.Status)
		row.Detail = fmt.Sprintf("%d receipt(s)", len(item.Metadata.Receipts))
	}
	if item.FromPastSession {
		row.Detail += " (history)"
	}
	return row
}
