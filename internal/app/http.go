package app

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"skyline/api/internal/export"
	"skyline/api/internal/session"
	"skyline/api/internal/store"
)

const maxBodyBytes = 1 << 20

// HTTPServer exposes the service over JSON HTTP.
type HTTPServer struct {
	svc           *Service
	corsOrigin    string
	webhookSecret string
}

func NewHTTPServer(svc *Service, corsOrigin, webhookSecret string) *HTTPServer {
	return &HTTPServer{svc: svc, corsOrigin: corsOrigin, webhookSecret: webhookSecret}
}

// Handler wraps the dispatch in the request-id, CORS and access-log
// middleware.
func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	segments := splitPath(r.URL.Path)
	if len(segments) == 0 || segments[0] != "api" {
		s.fail(w, http.StatusNotFound, "Not found")
		return
	}
	route := strings.Join(segments[1:], "/")

	switch {
	case route == "health" && r.Method == http.MethodGet:
		s.handleHealth(w, r)
	case route == "contact" && r.Method == http.MethodPost:
		s.handleContact(w, r)
	case route == "google-ads/webhook" && r.Method == http.MethodPost:
		s.handleAdsWebhook(w, r)

	case route == "admin/login" && r.Method == http.MethodPost:
		s.handleAdminLogin(w, r)
	case route == "admin/logout" && r.Method == http.MethodPost:
		s.handleLogout(w, r)
	case route == "admin/verify" && r.Method == http.MethodGet:
		s.handleVerify(w, r)
	case route == "admin/refresh" && r.Method == http.MethodPost:
		s.handleRefresh(w, r)

	case route == "manager/login" && r.Method == http.MethodPost:
		s.handleManagerLogin(w, r)
	case route == "manager/leads" && r.Method == http.MethodGet:
		s.handleManagerLeads(w, r)

	case route == "leads" && r.Method == http.MethodGet:
		s.handleLeads(w, r)
	case route == "leads/delete" && r.Method == http.MethodPost:
		s.handleLeadDelete(w, r)
	case route == "leads/delete/bulk" && r.Method == http.MethodPost:
		s.handleLeadDeleteBulk(w, r)
	case route == "leads/assign" && r.Method == http.MethodPost:
		s.handleLeadAssign(w, r)
	case route == "leads/download/csv" && r.Method == http.MethodPost:
		s.handleDownloadCSV(w, r)
	case route == "leads/download/excel" && r.Method == http.MethodPost:
		s.handleDownloadExcel(w, r)

	case route == "managers" && r.Method == http.MethodGet:
		s.handleManagers(w, r)
	case route == "managers/create" && r.Method == http.MethodPost:
		s.handleManagerCreate(w, r)
	case route == "managers/update" && r.Method == http.MethodPost:
		s.handleManagerUpdate(w, r)
	case route == "managers/delete" && r.Method == http.MethodPost:
		s.handleManagerDelete(w, r)

	case route == "website/config" && r.Method == http.MethodGet:
		s.handleWebsiteConfig(w, r)
	case route == "website/update" && r.Method == http.MethodPost:
		s.handleWebsiteUpdate(w, r)

	default:
		s.fail(w, http.StatusNotFound, "Not found")
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health(r.Context()))
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var sub LeadSubmission
	if !s.decodeBody(w, r, &sub) {
		return
	}
	result, err := s.svc.SubmitLead(r.Context(), sub, clientIP(r), r.UserAgent())
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"message":           "Thank you for your inquiry! We will contact you within 24 hours.",
		"email_sent":        result.EmailSent,
		"confirmation_sent": result.ConfirmationSent,
	})
}

func (s *HTTPServer) handleAdsWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.webhookAuthorized(r) {
		s.fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload AdsWebhookPayload
	if !s.decodeBody(w, r, &payload) {
		return
	}
	result, err := s.svc.HandleAdsWebhook(r.Context(), payload, clientIP(r), r.UserAgent())
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"lead_id": result.LeadID,
	})
}

// webhookAuthorized accepts the shared secret via the X-Goog-Signature
// header or the key query parameter. An unconfigured secret rejects
// everything rather than opening the endpoint.
func (s *HTTPServer) webhookAuthorized(r *http.Request) bool {
	if s.webhookSecret == "" {
		return false
	}
	candidate := r.Header.Get("X-Goog-Signature")
	if candidate == "" {
		candidate = r.URL.Query().Get("key")
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.webhookSecret)) == 1
}

func (s *HTTPServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	sess, err := s.svc.AdminLogin(r.Context(), body.Username, body.Password)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   sess.Token,
	})
}

func (s *HTTPServer) handleManagerLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	sess, err := s.svc.ManagerLogin(r.Context(), body.Username, body.Password)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Login successful",
		"token":     sess.Token,
		"username":  sess.Username,
		"expiresIn": int64(sess.ExpiresAt.Sub(sess.CreatedAt).Seconds()),
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token != "" {
		if err := s.svc.Logout(r.Context(), token); err != nil {
			s.failWith(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out",
	})
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Token is valid",
	})
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		s.fail(w, http.StatusUnauthorized, "Unauthorized access. Please login.")
		return
	}
	sess, err := s.svc.RefreshSession(r.Context(), token)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Session refreshed",
		"expiresIn": int64(time.Until(sess.ExpiresAt).Seconds()),
	})
}

func (s *HTTPServer) handleManagerLeads(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireRole(w, r, session.RoleManager)
	if !ok {
		return
	}
	leads, err := s.svc.ManagerLeads(r.Context(), sess.Username)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"leads":   leads,
		"count":   len(leads),
	})
}

func (s *HTTPServer) handleLeads(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	leads, err := s.svc.Leads(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"leads":   leads,
		"count":   len(leads),
	})
}

func (s *HTTPServer) handleLeadDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	var body struct {
		LeadID string `json:"leadId"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.LeadID == "" {
		s.fail(w, http.StatusBadRequest, "leadId is required")
		return
	}
	if err := s.svc.DeleteLead(r.Context(), body.LeadID); err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Lead deleted",
	})
}

func (s *HTTPServer) handleLeadDeleteBulk(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	var body struct {
		LeadIDs []string `json:"leadIds"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	deleted, err := s.svc.DeleteLeadsBulk(r.Context(), body.LeadIDs)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("Deleted %d leads", deleted),
		"deletedCount": deleted,
	})
}

func (s *HTTPServer) handleLeadAssign(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	var body struct {
		LeadID          string  `json:"leadId"`
		ManagerUsername *string `json:"managerUsername"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.LeadID == "" {
		s.fail(w, http.StatusBadRequest, "leadId is required")
		return
	}
	message, err := s.svc.AssignLead(r.Context(), body.LeadID, body.ManagerUsername)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

func (s *HTTPServer) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	leads, err := s.svc.Leads(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	data, err := export.LeadsCSV(leads)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeAttachment(w, data, "text/csv", export.Filename("csv"))
}

func (s *HTTPServer) handleDownloadExcel(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	leads, err := s.svc.Leads(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	data, err := export.LeadsXLSX(leads)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeAttachment(w, data,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.Filename("xlsx"))
}

func (s *HTTPServer) handleManagers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	managers, err := s.svc.Managers(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"managers": managers,
		"count":    len(managers),
	})
}

func (s *HTTPServer) handleManagerCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if err := s.svc.CreateManager(r.Context(), body.Username, body.Password, body.Email); err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Manager created",
	})
}

func (s *HTTPServer) handleManagerUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	var body struct {
		Username string `json:"username"`
		ManagerUpdate
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.Username == "" {
		s.fail(w, http.StatusBadRequest, "username is required")
		return
	}
	if err := s.svc.UpdateManager(r.Context(), body.Username, body.ManagerUpdate); err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Manager updated",
	})
}

func (s *HTTPServer) handleManagerDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	var body struct {
		Username string `json:"username"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.Username == "" {
		s.fail(w, http.StatusBadRequest, "username is required")
		return
	}
	if err := s.svc.DeleteManager(r.Context(), body.Username); err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Manager deleted",
	})
}

func (s *HTTPServer) handleWebsiteConfig(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	cfg, err := s.svc.WebsiteConfig(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config":  cfg,
	})
}

func (s *HTTPServer) handleWebsiteUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, session.RoleAdmin); !ok {
		return
	}
	var patch WebsitePatch
	if !s.decodeBody(w, r, &patch) {
		return
	}
	cfg, err := s.svc.UpdateWebsiteConfig(r.Context(), patch)
	if err != nil {
		s.failWith(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Website configuration updated",
		"config":  cfg,
	})
}

// authenticate resolves the request's token to a live session or writes a
// generic 401.
func (s *HTTPServer) authenticate(w http.ResponseWriter, r *http.Request) (store.Session, bool) {
	token := requestToken(r)
	if token == "" {
		s.fail(w, http.StatusUnauthorized, "Unauthorized access. Please login.")
		return store.Session{}, false
	}
	sess, err := s.svc.ValidateToken(r.Context(), token)
	if err != nil {
		s.fail(w, http.StatusUnauthorized, "Unauthorized access. Please login.")
		return store.Session{}, false
	}
	return sess, true
}

// requireRole authenticates and checks the role. Wrong-role requests get the
// same generic 401 as missing tokens.
func (s *HTTPServer) requireRole(w http.ResponseWriter, r *http.Request, role string) (store.Session, bool) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return store.Session{}, false
	}
	if sess.Role != role {
		s.fail(w, http.StatusUnauthorized, "Unauthorized access. Please login.")
		return store.Session{}, false
	}
	return sess, true
}

// requestToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter on GET requests only.
func requestToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("token")
	}
	return ""
}

func (s *HTTPServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		s.fail(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) failWith(w http.ResponseWriter, err error) {
	status, message := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	s.fail(w, status, message)
}

func (s *HTTPServer) fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeAttachment(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("write attachment: %v", err)
	}
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// clientIP prefers the first X-Forwarded-For hop so the stored address is
// the caller's, not the proxy's.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		s.setCORSHeaders(w)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Printf(`{"request_id":%q,"method":%q,"path":%q,"status":%d,"duration_ms":%d}`,
			requestID, r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
	})
}

func (s *HTTPServer) setCORSHeaders(w http.ResponseWriter) {
	origin := s.corsOrigin
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Goog-Signature")
}
