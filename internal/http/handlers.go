package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"finsight/internal/api"
	"finsight/internal/log"
)

type appMetrics struct {
	uptime          time.Time
	formSubmissions int64
	apiErrors       int64
	sessionExpired  int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// page carries what the layout needs on every full page.
type page struct {
	Title    string
	Active   string
	LoggedIn bool
}

func (s *Server) newPage(r *http.Request, title, active string) page {
	return page{
		Title:    title,
		Active:   active,
		LoggedIn: s.guard.HasSession(r),
	}
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.NewStructuredLogger(s.logger).LogError(r.Context(), "Template execution failed", err,
			log.ComponentTemplate, log.OpRender, log.LogFields{log.FieldTemplate: name})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderPartial renders a named template through the HTMX response builder.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.NewStructuredLogger(s.logger).LogError(r.Context(), "Partial template execution failed", err,
			log.ComponentTemplate, log.OpRender, log.LogFields{log.FieldTemplate: name})
		InternalServerError("Rendering failed").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

// errorStatus maps a backend failure onto the status we answer with.
func errorStatus(apiErr *api.APIError) int {
	if apiErr.IsTransport() {
		return http.StatusBadGateway
	}
	if apiErr.StatusCode < 400 || apiErr.StatusCode > 599 {
		return http.StatusBadGateway
	}
	return apiErr.StatusCode
}

// handleAPIError reports a failed backend call. A 401 means the provider
// session expired: the browser is sent to login.
func (s *Server) handleAPIError(w http.ResponseWriter, r *http.Request, err error, component, op string) {
	apiErr := api.FromError(err)
	s.backendFailed(r, apiErr, component, op)
	s.respondFormError(w, r, apiErr, "", nil)
}

func (s *Server) logAPIError(r *http.Request, apiErr *api.APIError, component, op string) {
	logger := log.FromContext(r.Context()).WithComponent(component)
	fields := log.NewFields().WithOperation(op)
	fields[log.FieldStatusCode] = apiErr.StatusCode
	if apiErr.Detail != "" {
		fields[log.FieldErrorDetail] = apiErr.Detail
	}
	fields = fields.WithError(apiErr)

	level := logger.WarnContext
	if apiErr.IsTransport() || apiErr.StatusCode >= 500 {
		level = logger.ErrorContext
	}
	level(r.Context(), "Backend call failed", fields.ToSlice()...)
}

type errorPage struct {
	page
	Status  int
	Message string
}

func (s *Server) renderErrorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", errorPage{
		page:    s.newPage(r, http.StatusText(status), ""),
		Status:  status,
		Message: message,
	})
}

// validationError shapes a local form failure like the backend's own
// validation problem so both render the same way.
func validationError(err error) *api.APIError {
	apiErr := &api.APIError{
		Message:    "Validation failed",
		StatusCode: http.StatusUnprocessableEntity,
		Detail:     err.Error(),
	}
	var fe *FormError
	if errors.As(err, &fe) {
		apiErr.Fields = map[string]string{fe.Field: fe.Error()}
	}
	return apiErr
}

func notFound(detail string) *api.APIError {
	return &api.APIError{
		Message:    "Not Found",
		StatusCode: http.StatusNotFound,
		Detail:     detail,
	}
}

// backendFailed counts and logs a failed backend call. Expired sessions are
// counted by respondFormError instead.
func (s *Server) backendFailed(r *http.Request, apiErr *api.APIError, component, op string) {
	if api.IsUnauthorized(apiErr) {
		return
	}
	atomic.AddInt64(&s.appMetrics.apiErrors, 1)
	s.logAPIError(r, apiErr, component, op)
}

// respondFormError answers a failed submission. HTMX gets the form partial
// back with the error and the failure status; plain posts get the error page.
func (s *Server) respondFormError(w http.ResponseWriter, r *http.Request, apiErr *api.APIError, partial string, data any) {
	if api.IsUnauthorized(apiErr) {
		atomic.AddInt64(&s.appMetrics.sessionExpired, 1)
		s.guard.RedirectToLogin(w, r)
		return
	}
	status := errorStatus(apiErr)
	if !isHTMX(r) {
		s.renderErrorPage(w, r, status, apiErr.UserMessage())
		return
	}
	if partial == "" {
		ErrorResponse(status, apiErr.UserMessage()).
			TriggerErrorNotification(apiErr.UserMessage()).
			Write(w)
		return
	}
	s.renderPartial(w, r,
		NewHTMXResponse().
			Status(status).
			TriggerErrorNotification(apiErr.UserMessage()),
		partial, data)
}

func (s *Server) parseForm(r *http.Request) (*RequestBodyParser, *api.APIError) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, &api.APIError{
			Message:    "Bad Request",
			StatusCode: http.StatusBadRequest,
			Detail:     "Invalid request format",
			Err:        err,
		}
	}
	return p, nil
}

// redirectAfterPost finishes a successful non-HTMX form post.
func redirectAfterPost(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// respondChanged answers a successful write on resource. HTMX gets an empty
// body and the events that refresh the list; plain posts are redirected.
func respondChanged(w http.ResponseWriter, r *http.Request, resource, message, target string) {
	if !isHTMX(r) {
		redirectAfterPost(w, r, target)
		return
	}
	NewHTMXResponse().
		TriggerChanged(resource).
		TriggerFormReset().
		TriggerSuccessNotification(message).
		Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").
		TriggerErrorNotification("Too many requests. Please try again later.").
		Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports whether the server can render pages and knows where
// the backend is.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil || s.templates.Lookup("dashboard.html") == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	checks["backend"] = s.client.BaseURL()

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_request_duration_avg_ms", "Average request duration in milliseconds", "gauge",
		traceMetrics.AverageResponseTime().Milliseconds())
	metric("form_submissions_total", "Form submissions forwarded to the backend", "counter",
		atomic.LoadInt64(&s.appMetrics.formSubmissions))
	metric("backend_errors_total", "Backend calls that failed", "counter",
		atomic.LoadInt64(&s.appMetrics.apiErrors))
	metric("session_expired_total", "Backend answers that required a new login", "counter",
		atomic.LoadInt64(&s.appMetrics.sessionExpired))
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateLimitMetrics.TotalHits)
	metric("rate_limit_active_clients", "Clients tracked by the rate limiter", "gauge", rateLimitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "Requests flagged as suspicious", "counter", securityMetrics.SuspiciousRequests)
	metric("security_invalid_ip_attempts_total", "Forwarded headers with invalid IPs", "counter", securityMetrics.InvalidIPAttempts)
	metric("uptime_seconds", "Time since the server started", "gauge",
		int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", s.newPage(r, "Welcome", "home"))
}

// handleLogin hands the browser to the identity provider.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	returnTo := safeReturnPath(r.URL.Query().Get("returnTo"))
	s.logger.DebugContext(r.Context(), "Redirecting to identity provider",
		log.FieldOperation, log.OpLogin)
	http.Redirect(w, r, s.client.LoginURL(returnTo), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.logger.DebugContext(r.Context(), "Redirecting to identity provider logout",
		log.FieldOperation, log.OpLogout)
	http.Redirect(w, r, s.client.LogoutURL(), http.StatusFound)
}
