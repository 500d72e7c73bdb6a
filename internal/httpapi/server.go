package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/shameotron/internal/domain"
	apimw "github.com/hamed0406/shameotron/internal/httpapi/middleware"
	"github.com/hamed0406/shameotron/internal/notify"
	"github.com/hamed0406/shameotron/internal/report"
)

// Prober runs one probe pass; *pipeline.Runner satisfies it.
type Prober interface {
	Run(ctx context.Context, candidate string, group domain.HostGroup) []domain.HostStatus
}

type Server struct {
	Logger   *zap.Logger
	Prober   Prober
	Renderer report.Renderer
	Notifier notify.Notifier // optional
}

func NewServer(l *zap.Logger, p Prober, r report.Renderer, n notify.Notifier) *Server {
	return &Server{Logger: l, Prober: p, Renderer: r, Notifier: n}
}

// Router wires the routes. allowedOrigins empty means any origin; every
// /api/shame call fans out to the network, so those routes are rate limited
// per client (ratePerMin <= 0 disables the limit).
func (s *Server) Router(keys []string, allowedOrigins []string, ratePerMin, burst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireKey(keys))
		r.Use(apimw.RateLimit(ratePerMin, burst))
		r.Get("/api/shame", s.handleShameQuery)
		r.Post("/api/shame", s.handleShameMembers)
	})

	return r
}

type shamePayload struct {
	Candidate string   `json:"candidate"`
	Members   []string `json:"members"`
	Notify    bool     `json:"notify"`
}

type hostJSON struct {
	Host        string     `json:"host"`
	Status      string     `json:"status"`
	Version     string     `json:"version"`
	CertExpires *time.Time `json:"cert_expires,omitempty"`
	Warning     string     `json:"warning,omitempty"`
}

type shameResponse struct {
	Report  string     `json:"report"`
	Hosts   []hostJSON `json:"hosts"`
	Invalid []string   `json:"invalid_members,omitempty"`
}

// GET /api/shame?candidate=host probes a single host.
func (s *Server) handleShameQuery(w http.ResponseWriter, r *http.Request) {
	candidate := r.URL.Query().Get("candidate")
	if candidate == "" {
		http.Error(w, "candidate required", http.StatusBadRequest)
		return
	}
	s.respond(w, r, shamePayload{Candidate: candidate}, nil, nil)
}

// POST /api/shame probes an explicit candidate or the servers of the given
// room members.
func (s *Server) handleShameMembers(w http.ResponseWriter, r *http.Request) {
	var p shamePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if p.Candidate == "" && len(p.Members) == 0 {
		http.Error(w, "candidate or members required", http.StatusBadRequest)
		return
	}
	group, invalid := domain.GroupMembers(p.Members)
	if len(invalid) > 0 {
		s.Logger.Warn("invalid_members", zap.Strings("members", invalid))
	}
	s.respond(w, r, p, group, invalid)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, p shamePayload, group domain.HostGroup, invalid []string) {
	statuses := s.Prober.Run(r.Context(), p.Candidate, group)
	text := s.Renderer.Render(statuses)

	if p.Notify && s.Notifier != nil {
		if err := s.Notifier.Send(r.Context(), "Shame-o-Tron", text); err != nil {
			s.Logger.Warn("notify_failed", zap.Error(err))
		}
	}

	s.Logger.Info("shame_report",
		zap.String("candidate", p.Candidate),
		zap.Int("members", len(p.Members)),
		zap.Int("hosts", len(statuses)),
	)

	resp := shameResponse{Report: text, Hosts: make([]hostJSON, 0, len(statuses)), Invalid: invalid}
	for _, st := range statuses {
		h := hostJSON{
			Host:    string(st.Host),
			Status:  st.Version.Kind.String(),
			Version: st.Version.Text(),
			Warning: st.Warning,
		}
		if st.Certificate.Available() {
			exp := st.Certificate.Expiry.UTC()
			h.CertExpires = &exp
		}
		resp.Hosts = append(resp.Hosts, h)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
