package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"skyline/api/internal/store"
)

func TestSubmitLeadRejectsMissingFields(t *testing.T) {
	svc := newTestService(&fakeStore{
		saveLead: func(ctx context.Context, lead store.Lead) (string, error) {
			t.Fatal("lead saved despite failed validation")
			return "", nil
		},
	}, nil)

	sub := validSubmission()
	sub.FirstName = ""
	sub.Timeframe = " "

	_, err := svc.SubmitLead(context.Background(), sub, "1.2.3.4", "ua")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", domainErr.Status)
	}
	if !strings.Contains(domainErr.Message, "firstName") || !strings.Contains(domainErr.Message, "timeframe") {
		t.Fatalf("message should name both missing fields, got %q", domainErr.Message)
	}
	if strings.Contains(domainErr.Message, "lastName") {
		t.Fatalf("message names a field that was present: %q", domainErr.Message)
	}
}

func TestSubmitLeadRejectsBadFormats(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)

	sub := validSubmission()
	sub.Email = "not-an-email"
	if _, err := svc.SubmitLead(context.Background(), sub, "1.2.3.4", "ua"); err == nil {
		t.Fatal("expected invalid email to be rejected")
	}

	sub = validSubmission()
	sub.Whatsapp = "abc"
	if _, err := svc.SubmitLead(context.Background(), sub, "1.2.3.4", "ua"); err == nil {
		t.Fatal("expected invalid phone to be rejected")
	}

	sub = validSubmission()
	sub.Email = "a@b.co"
	sub.Whatsapp = "+971501234567"
	if _, err := svc.SubmitLead(context.Background(), sub, "1.2.3.4", "ua"); err != nil {
		t.Fatalf("minimal valid email/phone rejected: %v", err)
	}
}

func TestSubmitLeadEnrichesAndPersists(t *testing.T) {
	var saved store.Lead
	svc := newTestService(&fakeStore{
		saveLead: func(ctx context.Context, lead store.Lead) (string, error) {
			saved = lead
			return "abc123", nil
		},
	}, nil)

	result, err := svc.SubmitLead(context.Background(), validSubmission(), "9.9.9.9", "test-agent")
	if err != nil {
		t.Fatalf("SubmitLead: %v", err)
	}
	if result.LeadID != "abc123" {
		t.Fatalf("LeadID = %q, want abc123", result.LeadID)
	}
	if saved.Whatsapp != "+971501234567" {
		t.Fatalf("phone not normalized: %q", saved.Whatsapp)
	}
	if saved.DetectedCountryCode != "AE" || saved.DetectedCountry != "United Arab Emirates" {
		t.Fatalf("geo enrichment missing: %q %q", saved.DetectedCountryCode, saved.DetectedCountry)
	}
	if saved.Status != "new" {
		t.Fatalf("status = %q, want new", saved.Status)
	}
	if saved.Source != "Website Contact Form" {
		t.Fatalf("default source = %q", saved.Source)
	}
	if saved.IPAddress != "9.9.9.9" || saved.UserAgent != "test-agent" {
		t.Fatalf("request metadata not stored: %q %q", saved.IPAddress, saved.UserAgent)
	}
	if saved.CreatedAt.IsZero() || !saved.CreatedAt.Equal(saved.UpdatedAt) {
		t.Fatal("timestamps not set together")
	}
}

func TestSubmitLeadEmailFailureDoesNotFailIntake(t *testing.T) {
	mailer := &fakeMailer{configured: true, notifyErr: errBoom}
	svc := newTestService(&fakeStore{}, mailer)

	result, err := svc.SubmitLead(context.Background(), validSubmission(), "1.2.3.4", "ua")
	if err != nil {
		t.Fatalf("intake failed on email error: %v", err)
	}
	if result.EmailSent {
		t.Fatal("EmailSent should be false when notification fails")
	}
	if !result.ConfirmationSent {
		t.Fatal("confirmation should still be attempted and succeed")
	}
	if len(mailer.confirmations) != 1 {
		t.Fatalf("confirmations sent = %d, want 1", len(mailer.confirmations))
	}
}

func TestSubmitLeadSkipsEmailWhenUnconfigured(t *testing.T) {
	mailer := &fakeMailer{configured: false}
	svc := newTestService(&fakeStore{}, mailer)

	result, err := svc.SubmitLead(context.Background(), validSubmission(), "1.2.3.4", "ua")
	if err != nil {
		t.Fatalf("SubmitLead: %v", err)
	}
	if result.EmailSent || result.ConfirmationSent {
		t.Fatal("no emails should be reported when SMTP is unconfigured")
	}
	if len(mailer.notifications) != 0 || len(mailer.confirmations) != 0 {
		t.Fatal("mailer should not be invoked when unconfigured")
	}
}

func TestHandleAdsWebhookMapsColumns(t *testing.T) {
	var saved store.Lead
	svc := newTestService(&fakeStore{
		saveLead: func(ctx context.Context, lead store.Lead) (string, error) {
			saved = lead
			return "id-1", nil
		},
	}, nil)

	payload := AdsWebhookPayload{
		GoogleKey: "campaign-77",
		LeadID:    "gads-lead-9",
		UserColumnData: map[string]string{
			"FIRST_NAME":   "Omar",
			"LAST_NAME":    "Farouk",
			"EMAIL":        "omar@example.com",
			"PHONE_NUMBER": "+971 (50) 765-4321",
		},
	}
	if _, err := svc.HandleAdsWebhook(context.Background(), payload, "8.8.8.8", "google"); err != nil {
		t.Fatalf("HandleAdsWebhook: %v", err)
	}

	if saved.Country != "Not specified" {
		t.Fatalf("missing COUNTRY should default, got %q", saved.Country)
	}
	if saved.ContactMethod != "WhatsApp" || saved.Timeframe != "As soon as possible" {
		t.Fatalf("fixed defaults not applied: %q %q", saved.ContactMethod, saved.Timeframe)
	}
	if saved.Source != "Google Ads Lead Form" {
		t.Fatalf("source = %q", saved.Source)
	}
	if saved.CampaignID != "campaign-77" || saved.ExternalLeadID != "gads-lead-9" {
		t.Fatalf("campaign/lead ids not mapped: %q %q", saved.CampaignID, saved.ExternalLeadID)
	}
	if saved.Whatsapp != "+971507654321" {
		t.Fatalf("webhook phone not normalized: %q", saved.Whatsapp)
	}
}

func TestHandleAdsWebhookValidatesMappedFields(t *testing.T) {
	svc := newTestService(&fakeStore{
		saveLead: func(ctx context.Context, lead store.Lead) (string, error) {
			t.Fatal("invalid webhook payload reached the store")
			return "", nil
		},
	}, nil)

	payload := AdsWebhookPayload{
		UserColumnData: map[string]string{"FIRST_NAME": "Omar"},
	}
	_, err := svc.HandleAdsWebhook(context.Background(), payload, "8.8.8.8", "google")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestManagerLoginRejectsInactiveAccount(t *testing.T) {
	hash := mustHash(t, "pw123456")
	svc := newTestService(&fakeStore{
		getManager: func(ctx context.Context, username string) (store.Manager, error) {
			return store.Manager{Username: username, PasswordHash: hash, Active: false}, nil
		},
	}, nil)

	_, err := svc.ManagerLogin(context.Background(), "sara", "pw123456")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnauthorized {
		t.Fatalf("inactive manager should get 401, got %v", err)
	}
}

func TestManagerLoginIssuesSession(t *testing.T) {
	hash := mustHash(t, "pw123456")
	svc := newTestService(&fakeStore{
		getManager: func(ctx context.Context, username string) (store.Manager, error) {
			return store.Manager{Username: username, PasswordHash: hash, Active: true}, nil
		},
	}, nil)

	sess, err := svc.ManagerLogin(context.Background(), "sara", "pw123456")
	if err != nil {
		t.Fatalf("ManagerLogin: %v", err)
	}
	if sess.Role != "manager" || sess.Username != "sara" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if _, err := svc.ValidateToken(context.Background(), sess.Token); err != nil {
		t.Fatalf("issued token should validate: %v", err)
	}

	if _, err := svc.ManagerLogin(context.Background(), "sara", "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestAssignLeadRequiresExistingActiveManager(t *testing.T) {
	assigned := false
	st := &fakeStore{
		getManager: func(ctx context.Context, username string) (store.Manager, error) {
			if username == "active" {
				return store.Manager{Username: "active", Active: true}, nil
			}
			if username == "dormant" {
				return store.Manager{Username: "dormant", Active: false}, nil
			}
			return store.Manager{}, store.ErrNotFound
		},
		assignLead: func(ctx context.Context, id, username string) error {
			assigned = true
			return nil
		},
	}
	svc := newTestService(st, nil)

	ghost := "ghost"
	_, err := svc.AssignLead(context.Background(), "lead-1", &ghost)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusNotFound {
		t.Fatalf("unknown manager should 404, got %v", err)
	}
	if domainErr.Message != "Manager not found" {
		t.Fatalf("message = %q, want manager-specific not-found", domainErr.Message)
	}
	if assigned {
		t.Fatal("lead was assigned to a nonexistent manager")
	}

	dormant := "dormant"
	if _, err := svc.AssignLead(context.Background(), "lead-1", &dormant); err == nil {
		t.Fatal("inactive manager accepted")
	}

	active := "active"
	message, err := svc.AssignLead(context.Background(), "lead-1", &active)
	if err != nil {
		t.Fatalf("AssignLead: %v", err)
	}
	if !assigned {
		t.Fatal("store assign not called")
	}
	if !strings.Contains(message, "active") {
		t.Fatalf("message = %q", message)
	}
}

func TestAssignLeadNilManagerUnassigns(t *testing.T) {
	unassigned := false
	svc := newTestService(&fakeStore{
		unassignLead: func(ctx context.Context, id string) error {
			unassigned = true
			return nil
		},
		getManager: func(ctx context.Context, username string) (store.Manager, error) {
			t.Fatal("unassign should not look up a manager")
			return store.Manager{}, nil
		},
	}, nil)

	if _, err := svc.AssignLead(context.Background(), "lead-1", nil); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if !unassigned {
		t.Fatal("store unassign not called")
	}
}

func TestAssignLeadDistinguishesLeadNotFound(t *testing.T) {
	active := "active"
	svc := newTestService(&fakeStore{
		getManager: func(ctx context.Context, username string) (store.Manager, error) {
			return store.Manager{Username: username, Active: true}, nil
		},
		assignLead: func(ctx context.Context, id, username string) error {
			return store.ErrNotFound
		},
	}, nil)

	_, err := svc.AssignLead(context.Background(), "missing", &active)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Message != "Lead not found" {
		t.Fatalf("message = %q, want lead-specific not-found", domainErr.Message)
	}
}

func TestCreateManagerRejectsDuplicate(t *testing.T) {
	svc := newTestService(&fakeStore{
		getManager: func(ctx context.Context, username string) (store.Manager, error) {
			return store.Manager{Username: username}, nil
		},
		createManager: func(ctx context.Context, manager store.Manager) error {
			t.Fatal("duplicate manager reached the store")
			return nil
		},
	}, nil)

	err := svc.CreateManager(context.Background(), "sara", "pw123456", "sara@example.com")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusBadRequest {
		t.Fatalf("duplicate should 400, got %v", err)
	}
}

func TestCreateManagerHashesPassword(t *testing.T) {
	var created store.Manager
	svc := newTestService(&fakeStore{
		createManager: func(ctx context.Context, manager store.Manager) error {
			created = manager
			return nil
		},
	}, nil)

	if err := svc.CreateManager(context.Background(), "sara", "pw123456", "sara@example.com"); err != nil {
		t.Fatalf("CreateManager: %v", err)
	}
	if created.PasswordHash == "" || created.PasswordHash == "pw123456" {
		t.Fatal("password stored without hashing")
	}
	if !created.Active || created.Role != "manager" {
		t.Fatalf("defaults not applied: %+v", created)
	}
}

func TestUpdateManagerRehashesPassword(t *testing.T) {
	var fields map[string]any
	svc := newTestService(&fakeStore{
		updateManager: func(ctx context.Context, username string, updates map[string]any) error {
			fields = updates
			return nil
		},
	}, nil)

	password := "newpw9876"
	active := false
	err := svc.UpdateManager(context.Background(), "sara", ManagerUpdate{Password: &password, Active: &active})
	if err != nil {
		t.Fatalf("UpdateManager: %v", err)
	}
	if _, ok := fields["password"]; ok {
		t.Fatal("plaintext password leaked into update")
	}
	hash, ok := fields["password_hash"].(string)
	if !ok || hash == "" || hash == password {
		t.Fatalf("password_hash = %v", fields["password_hash"])
	}
	if fields["active"] != false {
		t.Fatalf("active = %v", fields["active"])
	}
}

func TestUpdateWebsiteConfigShallowMerges(t *testing.T) {
	existing := store.WebsiteConfig{
		Content: map[string]any{"title": "Skyline", "tagline": "Invest in Dubai"},
		Design:  map[string]any{"primaryColor": "#123456"},
	}
	var saved store.WebsiteConfig
	svc := newTestService(&fakeStore{
		getWebsiteConfig: func(ctx context.Context) (store.WebsiteConfig, error) {
			return existing, nil
		},
		saveWebsiteConfig: func(ctx context.Context, cfg store.WebsiteConfig) error {
			saved = cfg
			return nil
		},
	}, nil)

	before := time.Now().UTC()
	_, err := svc.UpdateWebsiteConfig(context.Background(), WebsitePatch{
		Content: map[string]any{"title": "Skyline Invest"},
		Images:  map[string]any{"hero": "hero.jpg"},
	})
	if err != nil {
		t.Fatalf("UpdateWebsiteConfig: %v", err)
	}

	if saved.Content["title"] != "Skyline Invest" {
		t.Fatalf("patched key not replaced: %v", saved.Content["title"])
	}
	if saved.Content["tagline"] != "Invest in Dubai" {
		t.Fatal("untouched key in patched section was lost")
	}
	if saved.Design["primaryColor"] != "#123456" {
		t.Fatal("unpatched section was lost")
	}
	if saved.Images["hero"] != "hero.jpg" {
		t.Fatal("new section not created")
	}
	if saved.LastUpdated.Before(before) {
		t.Fatal("lastUpdated not refreshed")
	}
}

func TestDeleteLeadsBulkRejectsEmpty(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	_, err := svc.DeleteLeadsBulk(context.Background(), nil)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusBadRequest {
		t.Fatalf("empty id list should 400, got %v", err)
	}
}

func TestHealthReportsMongoState(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	status := svc.Health(context.Background())
	if status.Status != "healthy" || !status.MongoDBConnected {
		t.Fatalf("healthy store reported %+v", status)
	}
	if status.DatabaseName != "testdb" || status.Version != Version {
		t.Fatalf("unexpected health body %+v", status)
	}

	svc = newTestService(&fakeStore{
		ping: func(ctx context.Context) error { return errBoom },
	}, nil)
	status = svc.Health(context.Background())
	if status.Status != "degraded" || status.MongoDBConnected {
		t.Fatalf("failing ping reported %+v", status)
	}
}
