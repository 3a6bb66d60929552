package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"skyline/api/internal/authpw"
	"skyline/api/internal/session"
	"skyline/api/internal/store"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

type dataStore interface {
	SaveLead(ctx context.Context, lead store.Lead) (string, error)
	ListLeads(ctx context.Context) ([]store.Lead, error)
	ListLeadsByManager(ctx context.Context, username string) ([]store.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	DeleteLeadsBulk(ctx context.Context, ids []string) (int64, error)
	AssignLead(ctx context.Context, id, username string) error
	UnassignLead(ctx context.Context, id string) error
	CreateManager(ctx context.Context, manager store.Manager) error
	GetManager(ctx context.Context, username string) (store.Manager, error)
	ListManagers(ctx context.Context) ([]store.Manager, error)
	UpdateManager(ctx context.Context, username string, fields map[string]any) error
	DeleteManager(ctx context.Context, username string) error
	GetWebsiteConfig(ctx context.Context) (store.WebsiteConfig, error)
	SaveWebsiteConfig(ctx context.Context, cfg store.WebsiteConfig) error
	Ping(ctx context.Context) error
	DatabaseName() string
}

type mailer interface {
	IsConfigured() bool
	SendLeadNotification(lead store.Lead) error
	SendLeadConfirmation(lead store.Lead) error
}

type geoLookup interface {
	Lookup(ctx context.Context, ip string) (code, name string)
}

// Service implements the lead-capture and dashboard operations on top of the
// store, the session authority and the outbound integrations.
type Service struct {
	store    dataStore
	sessions *session.Authority
	admin    authpw.Admin
	mailer   mailer
	geo      geoLookup
}

func New(dataStore dataStore, sessions *session.Authority, admin authpw.Admin, mailer mailer, geo geoLookup) *Service {
	return &Service{store: dataStore, sessions: sessions, admin: admin, mailer: mailer, geo: geo}
}

// IntakeResult reports the stored lead id and whether each outbound email
// actually went out. Email failures never fail the intake.
type IntakeResult struct {
	LeadID           string
	EmailSent        bool
	ConfirmationSent bool
}

// SubmitLead validates a submission, enriches it with the caller's detected
// country, persists it and sends best-effort notification emails.
func (s *Service) SubmitLead(ctx context.Context, sub LeadSubmission, ip, userAgent string) (IntakeResult, error) {
	if err := validateSubmission(sub); err != nil {
		return IntakeResult{}, err
	}

	code, name := s.geo.Lookup(ctx, ip)
	now := time.Now().UTC()
	lead := store.Lead{
		FirstName:           strings.TrimSpace(sub.FirstName),
		LastName:            strings.TrimSpace(sub.LastName),
		Email:               strings.TrimSpace(sub.Email),
		Whatsapp:            normalizePhone(sub.Whatsapp),
		Country:             sub.Country,
		ContactMethod:       sub.ContactMethod,
		Timeframe:           sub.Timeframe,
		PropertyType:        sub.PropertyType,
		Source:              sub.Source,
		CampaignID:          sub.CampaignID,
		ExternalLeadID:      sub.ExternalLeadID,
		IPAddress:           ip,
		UserAgent:           userAgent,
		DetectedCountryCode: code,
		DetectedCountry:     name,
		Status:              "new",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if lead.Source == "" {
		lead.Source = "Website Contact Form"
	}

	id, err := s.store.SaveLead(ctx, lead)
	if err != nil {
		return IntakeResult{}, err
	}
	lead.ID = id

	result := IntakeResult{LeadID: id}
	if s.mailer != nil && s.mailer.IsConfigured() {
		if err := s.mailer.SendLeadNotification(lead); err != nil {
			log.Printf("lead notification email failed: %v", err)
		} else {
			result.EmailSent = true
		}
		if err := s.mailer.SendLeadConfirmation(lead); err != nil {
			log.Printf("lead confirmation email failed: %v", err)
		} else {
			result.ConfirmationSent = true
		}
	}
	return result, nil
}

// AdsWebhookPayload is the Google Ads lead-form webhook body.
type AdsWebhookPayload struct {
	GoogleKey      string            `json:"google_key"`
	LeadID         string            `json:"lead_id"`
	UserColumnData map[string]string `json:"user_column_data"`
}

// mapAdsPayload translates the webhook's column data into a submission. The
// fields the form never collects get fixed defaults.
func mapAdsPayload(payload AdsWebhookPayload) LeadSubmission {
	columns := payload.UserColumnData
	country := columns["COUNTRY"]
	if country == "" {
		country = "Not specified"
	}
	return LeadSubmission{
		FirstName:      columns["FIRST_NAME"],
		LastName:       columns["LAST_NAME"],
		Email:          columns["EMAIL"],
		Whatsapp:       columns["PHONE_NUMBER"],
		Country:        country,
		ContactMethod:  "WhatsApp",
		Timeframe:      "As soon as possible",
		PropertyType:   columns["PROPERTY_TYPE"],
		Source:         "Google Ads Lead Form",
		CampaignID:     payload.GoogleKey,
		ExternalLeadID: payload.LeadID,
	}
}

// HandleAdsWebhook maps a webhook payload through the same validation and
// intake pipeline as the contact form. The shared-secret check happens in the
// HTTP layer before the body is even decoded.
func (s *Service) HandleAdsWebhook(ctx context.Context, payload AdsWebhookPayload, ip, userAgent string) (IntakeResult, error) {
	return s.SubmitLead(ctx, mapAdsPayload(payload), ip, userAgent)
}

// AdminLogin checks the configured admin credentials and issues a session.
func (s *Service) AdminLogin(ctx context.Context, username, password string) (store.Session, error) {
	if !s.admin.Check(username, password) {
		return store.Session{}, invalidCredentialsError()
	}
	return s.sessions.Issue(ctx, username, session.RoleAdmin)
}

// ManagerLogin authenticates a manager account. Unknown, mismatched and
// deactivated accounts all fail with the same message.
func (s *Service) ManagerLogin(ctx context.Context, username, password string) (store.Session, error) {
	manager, err := s.store.GetManager(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Session{}, invalidCredentialsError()
		}
		return store.Session{}, err
	}
	if !manager.Active || !authpw.CheckPassword(manager.PasswordHash, password) {
		return store.Session{}, invalidCredentialsError()
	}
	return s.sessions.Issue(ctx, username, session.RoleManager)
}

func (s *Service) ValidateToken(ctx context.Context, token string) (store.Session, error) {
	return s.sessions.Validate(ctx, token)
}

func (s *Service) RefreshSession(ctx context.Context, token string) (store.Session, error) {
	return s.sessions.Extend(ctx, token)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *Service) Leads(ctx context.Context) ([]store.Lead, error) {
	return s.store.ListLeads(ctx)
}

// ManagerLeads returns only the leads assigned to the given manager.
func (s *Service) ManagerLeads(ctx context.Context, username string) ([]store.Lead, error) {
	return s.store.ListLeadsByManager(ctx, username)
}

func (s *Service) DeleteLead(ctx context.Context, id string) error {
	if err := s.store.DeleteLead(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Lead not found")
		}
		return err
	}
	return nil
}

func (s *Service) DeleteLeadsBulk(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, validationError("No lead ids provided")
	}
	return s.store.DeleteLeadsBulk(ctx, ids)
}

// AssignLead assigns a lead to a manager, or unassigns it when the manager
// username is nil. Assignment requires an existing, active manager.
func (s *Service) AssignLead(ctx context.Context, leadID string, managerUsername *string) (string, error) {
	if managerUsername == nil {
		if err := s.store.UnassignLead(ctx, leadID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", notFoundError("Lead not found")
			}
			return "", err
		}
		return "Lead unassigned", nil
	}

	manager, err := s.store.GetManager(ctx, *managerUsername)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", notFoundError("Manager not found")
		}
		return "", err
	}
	if !manager.Active {
		return "", validationError("Manager %q is not active", manager.Username)
	}
	if err := s.store.AssignLead(ctx, leadID, manager.Username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", notFoundError("Lead not found")
		}
		return "", err
	}
	return "Lead assigned to " + manager.Username, nil
}

func (s *Service) CreateManager(ctx context.Context, username, password, email string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return validationError("Username and password are required")
	}
	if _, err := s.store.GetManager(ctx, username); err == nil {
		return validationError("Username already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := authpw.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.store.CreateManager(ctx, store.Manager{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         session.RoleManager,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *Service) Managers(ctx context.Context) ([]store.Manager, error) {
	return s.store.ListManagers(ctx)
}

// ManagerUpdate carries the updatable manager fields. Nil pointers mean
// "leave unchanged"; a non-nil password is hashed before storage.
type ManagerUpdate struct {
	Password *string `json:"password"`
	Email    *string `json:"email"`
	Active   *bool   `json:"active"`
}

func (s *Service) UpdateManager(ctx context.Context, username string, update ManagerUpdate) error {
	fields := map[string]any{}
	if update.Password != nil {
		if *update.Password == "" {
			return validationError("Password cannot be empty")
		}
		hash, err := authpw.HashPassword(*update.Password)
		if err != nil {
			return err
		}
		fields["password_hash"] = hash
	}
	if update.Email != nil {
		fields["email"] = *update.Email
	}
	if update.Active != nil {
		fields["active"] = *update.Active
	}
	if len(fields) == 0 {
		return validationError("No fields to update")
	}
	if err := s.store.UpdateManager(ctx, username, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Manager not found")
		}
		return err
	}
	return nil
}

func (s *Service) DeleteManager(ctx context.Context, username string) error {
	if err := s.store.DeleteManager(ctx, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Manager not found")
		}
		return err
	}
	return nil
}

func (s *Service) WebsiteConfig(ctx context.Context) (store.WebsiteConfig, error) {
	return s.store.GetWebsiteConfig(ctx)
}

// WebsitePatch is a partial website-config update. Only the sections present
// are touched, and within a section only the keys present are replaced.
type WebsitePatch struct {
	Content map[string]any `json:"content"`
	Design  map[string]any `json:"design"`
	Images  map[string]any `json:"images"`
}

func (s *Service) UpdateWebsiteConfig(ctx context.Context, patch WebsitePatch) (store.WebsiteConfig, error) {
	current, err := s.store.GetWebsiteConfig(ctx)
	if err != nil {
		return store.WebsiteConfig{}, err
	}
	current.Content = mergeSection(current.Content, patch.Content)
	current.Design = mergeSection(current.Design, patch.Design)
	current.Images = mergeSection(current.Images, patch.Images)
	current.LastUpdated = time.Now().UTC()
	if err := s.store.SaveWebsiteConfig(ctx, current); err != nil {
		return store.WebsiteConfig{}, err
	}
	return current, nil
}

func mergeSection(current, patch map[string]any) map[string]any {
	if len(patch) == 0 {
		return current
	}
	if current == nil {
		current = map[string]any{}
	}
	for key, value := range patch {
		current[key] = value
	}
	return current
}

// HealthStatus is the health endpoint body.
type HealthStatus struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	Version          string `json:"version"`
	MongoDBConnected bool   `json:"mongodb_connected"`
	DatabaseName     string `json:"database_name"`
}

func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      Version,
		DatabaseName: s.store.DatabaseName(),
	}
	if err := s.store.Ping(ctx); err != nil {
		status.Status = "degraded"
	} else {
		status.MongoDBConnected = true
	}
	return status
}
