package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/domain"
	"github-profile-miner/internal/port"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server 把 ProfileService 暴露为 HTTP 接口
type Server struct {
	svc    port.ProfileService
	token  string
	logger *log.Logger
}

// NewServer token 是服务端配置的 GitHub token，可以为空
func NewServer(svc port.ProfileService, token string, logger *log.Logger) *Server {
	if logger == nil {
		logger = common.NopLogger()
	}
	return &Server{
		svc:    svc,
		token:  token,
		logger: logger.With("component", "http"),
	}
}

// Routes 构造路由
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/profile", s.handleProfile)
	r.Get("/profile/{username}/export", s.handleExport)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeError(w, common.NewError(common.ErrCodeInvalidInput, "Please enter a username"))
		return
	}

	profile, err := s.svc.BuildProfile(r.Context(), username, s.token)
	if err != nil {
		s.logger.Warn("build profile failed", "username", username, "status", common.StatusOf(err), "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	format := domain.FormatJSON
	if raw := r.URL.Query().Get("format"); raw != "" {
		format = domain.ExportFormat(raw)
	}

	file, err := s.svc.ExportProfile(r.Context(), username, format)
	if err != nil {
		s.logger.Warn("export profile failed", "username", username, "format", format, "err", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Payload)
}

// requestLogger 每个请求一行访问日志
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError 只返回状态码和简短原因，不暴露内部错误
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, common.StatusOf(err), errorBody{Error: common.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
