package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"blackbox/api/internal/contact"
	"blackbox/api/internal/content"
	"blackbox/api/internal/export"
	"blackbox/api/internal/rbac"
	"blackbox/api/internal/search"
	"blackbox/api/internal/util"

	"go.uber.org/zap"
)

const (
	msgContactCreated = "Contact form submitted successfully"
	msgContactFailed  = "An error occurred while processing your request"
	msgContactList    = "An error occurred while fetching contact submissions"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	log        *zap.Logger
	limiter    *ipLimiter
	proxies    []netip.Prefix
}

type ServerOption func(*HTTPServer)

// WithTrustedProxies lets peers in proxies supply the client address through
// X-Forwarded-For. Without it the header is ignored.
func WithTrustedProxies(proxies []netip.Prefix) ServerOption {
	return func(s *HTTPServer) { s.proxies = proxies }
}

// WithRateLimit limits form posts per client IP. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *HTTPServer) { s.limiter = newIPLimiter(rps, burst) }
}

func NewHTTPServer(service *Service, corsOrigin string, opts ...ServerOption) *HTTPServer {
	s := &HTTPServer{service: service, corsOrigin: corsOrigin, log: service.log.Named("http")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ok, checks := s.service.Ready(ctx)
		status, statusCode := "ready", http.StatusOK
		if !ok {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     ok,
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" {
		s.service.metrics.Handler().ServeHTTP(w, r)
		return
	}

	if r.URL.Path == "/api/contact" {
		switch r.Method {
		case http.MethodPost:
			s.handleContactSubmit(w, r)
		case http.MethodGet:
			s.handleContactList(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/assistant" {
		var body struct {
			Message string `json:"message"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reply": s.service.Reply(body.Message)})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/admin/signin" {
		s.handleAdminSignIn(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "admin" {
		s.handleAdmin(w, r, parts[2:])
		return
	}

	if r.Method == http.MethodGet && len(parts) >= 2 && parts[0] == "api" && parts[1] == "blog" {
		s.handleBlog(w, r, parts[2:])
		return
	}

	if r.Method == http.MethodGet && len(parts) >= 2 && parts[0] == "api" && parts[1] == "portfolio" {
		s.handlePortfolio(w, r, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleBlog(w http.ResponseWriter, r *http.Request, rest []string) {
	query := r.URL.Query()
	refresh := wantsRefresh(r)

	switch {
	case len(rest) == 0:
		listing, err := s.service.ListArticles(r.Context(), query.Get("category"), query.Get("q"), refresh)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	case len(rest) == 1 && rest[0] == "featured":
		posts, state, err := s.service.FeaturedArticles(r.Context(), refresh)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "state": state})
	case len(rest) == 1:
		detail, err := s.service.Article(r.Context(), rest[0], refresh)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case len(rest) == 2 && rest[1] == "export":
		format, err := export.ParseFormat(query.Get("format"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		result, err := s.service.ExportArticle(r.Context(), rest[0], format)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handlePortfolio(w http.ResponseWriter, r *http.Request, rest []string) {
	query := r.URL.Query()
	refresh := wantsRefresh(r)

	switch {
	case len(rest) == 0:
		listing, err := s.service.ListPortfolio(r.Context(), query.Get("type"), query.Get("q"), refresh)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	case len(rest) == 1 && rest[0] == "featured":
		projects, state, err := s.service.FeaturedPortfolio(r.Context(), refresh)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects, "state": state})
	case len(rest) == 1:
		detail, err := s.service.PortfolioEntry(r.Context(), rest[0], refresh)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// queryLimit reads ?limit in 1..100. An absent value yields fallback; anything
// else writes a 400 and reports false.
func queryLimit(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100", nil)
		return 0, false
	}
	return limit, true
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resultType, ok := search.ParseResultType(query.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_TYPE", "type must be 'article' or 'portfolio'", nil)
		return
	}
	limit, ok := queryLimit(w, r, 20)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(search.Query{
		Text:  strings.TrimSpace(query.Get("q")),
		Type:  resultType,
		Facet: query.Get("facet"),
		Limit: limit,
	}))
}

func (s *HTTPServer) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r, s.proxies)) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many submissions, please try again later", nil)
		return
	}

	var in contact.Input
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	receipt, err := s.service.SubmitContact(r.Context(), in)
	if err != nil {
		var validationErr *contact.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation error", validationErr.Fields)
			return
		}
		s.log.Error("contact submission failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", msgContactFailed, nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    msgContactCreated,
		"submission": receipt.Submission,
		"relay":      receipt.Relay,
	})
}

func (s *HTTPServer) handleContactList(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, rbac.ActionListSubmissions); !ok {
		return
	}
	submissions, err := s.service.ListSubmissions(r.Context())
	if err != nil {
		s.log.Error("list submissions failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", msgContactList, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": submissions})
}

func (s *HTTPServer) handleAdminSignIn(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r, s.proxies)) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many attempts, please try again later", nil)
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	token, expiresAt, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.Unix(),
	})
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, rest []string) {
	principal, ok := s.authorize(w, r, rbac.ActionManageContent)
	if !ok {
		return
	}

	switch {
	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "content" && rest[1] == "purge":
		if err := s.service.PurgeContent(r.Context()); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case r.Method == http.MethodGet && len(rest) == 2 && rest[0] == "content" && rest[1] == "history":
		limit, ok := queryLimit(w, r, 0)
		if !ok {
			return
		}
		commits, err := s.service.ContentHistory(limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"commits": commits})
	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "content":
		var body struct {
			Message  string              `json:"message"`
			Document content.RawDocument `json:"document"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		commit, err := s.service.PublishDocument(r.Context(), principal.Subject, content.Variant(rest[1]), body.Document, body.Message)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"commit": commit})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// authorize resolves the caller and checks action, writing 401/403 itself.
func (s *HTTPServer) authorize(w http.ResponseWriter, r *http.Request, action rbac.Action) (Principal, bool) {
	principal, err := s.service.PrincipalFromRequest(r)
	if err == nil {
		err = s.service.Authorize(principal, action)
	}
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return Principal{}, false
	}
	return principal, true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		s.service.metrics.RequestObserved(routeLabel(r.URL.Path), r.Method, writer.status, elapsed)
		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routeLabel collapses slugs so metric cardinality stays bounded.
func routeLabel(path string) string {
	parts := splitPath(path)
	if len(parts) >= 3 && parts[0] == "api" && (parts[1] == "blog" || parts[1] == "portfolio") && parts[2] != "featured" {
		parts[2] = "{slug}"
	}
	if len(parts) > 4 {
		parts = parts[:4]
	}
	return "/" + strings.Join(parts, "/")
}

func wantsRefresh(r *http.Request) bool {
	switch r.URL.Query().Get("refresh") {
	case "1", "true":
		return true
	default:
		return false
	}
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		response["errors"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
