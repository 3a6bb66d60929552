package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"skyline/api/internal/authpw"
	"skyline/api/internal/session"
	"skyline/api/internal/store"
)

// fakeStore implements dataStore with overridable function fields, so each
// test wires only the calls it cares about.
type fakeStore struct {
	saveLead           func(ctx context.Context, lead store.Lead) (string, error)
	listLeads          func(ctx context.Context) ([]store.Lead, error)
	listLeadsByManager func(ctx context.Context, username string) ([]store.Lead, error)
	deleteLead         func(ctx context.Context, id string) error
	deleteLeadsBulk    func(ctx context.Context, ids []string) (int64, error)
	assignLead         func(ctx context.Context, id, username string) error
	unassignLead       func(ctx context.Context, id string) error
	createManager      func(ctx context.Context, manager store.Manager) error
	getManager         func(ctx context.Context, username string) (store.Manager, error)
	listManagers       func(ctx context.Context) ([]store.Manager, error)
	updateManager      func(ctx context.Context, username string, fields map[string]any) error
	deleteManager      func(ctx context.Context, username string) error
	getWebsiteConfig   func(ctx context.Context) (store.WebsiteConfig, error)
	saveWebsiteConfig  func(ctx context.Context, cfg store.WebsiteConfig) error
	ping               func(ctx context.Context) error
}

func (f *fakeStore) SaveLead(ctx context.Context, lead store.Lead) (string, error) {
	if f.saveLead == nil {
		return "lead-1", nil
	}
	return f.saveLead(ctx, lead)
}

func (f *fakeStore) ListLeads(ctx context.Context) ([]store.Lead, error) {
	if f.listLeads == nil {
		return nil, nil
	}
	return f.listLeads(ctx)
}

func (f *fakeStore) ListLeadsByManager(ctx context.Context, username string) ([]store.Lead, error) {
	if f.listLeadsByManager == nil {
		return nil, nil
	}
	return f.listLeadsByManager(ctx, username)
}

func (f *fakeStore) DeleteLead(ctx context.Context, id string) error {
	if f.deleteLead == nil {
		return nil
	}
	return f.deleteLead(ctx, id)
}

func (f *fakeStore) DeleteLeadsBulk(ctx context.Context, ids []string) (int64, error) {
	if f.deleteLeadsBulk == nil {
		return int64(len(ids)), nil
	}
	return f.deleteLeadsBulk(ctx, ids)
}

func (f *fakeStore) AssignLead(ctx context.Context, id, username string) error {
	if f.assignLead == nil {
		return nil
	}
	return f.assignLead(ctx, id, username)
}

func (f *fakeStore) UnassignLead(ctx context.Context, id string) error {
	if f.unassignLead == nil {
		return nil
	}
	return f.unassignLead(ctx, id)
}

func (f *fakeStore) CreateManager(ctx context.Context, manager store.Manager) error {
	if f.createManager == nil {
		return nil
	}
	return f.createManager(ctx, manager)
}

func (f *fakeStore) GetManager(ctx context.Context, username string) (store.Manager, error) {
	if f.getManager == nil {
		return store.Manager{}, store.ErrNotFound
	}
	return f.getManager(ctx, username)
}

func (f *fakeStore) ListManagers(ctx context.Context) ([]store.Manager, error) {
	if f.listManagers == nil {
		return nil, nil
	}
	return f.listManagers(ctx)
}

func (f *fakeStore) UpdateManager(ctx context.Context, username string, fields map[string]any) error {
	if f.updateManager == nil {
		return nil
	}
	return f.updateManager(ctx, username, fields)
}

func (f *fakeStore) DeleteManager(ctx context.Context, username string) error {
	if f.deleteManager == nil {
		return nil
	}
	return f.deleteManager(ctx, username)
}

func (f *fakeStore) GetWebsiteConfig(ctx context.Context) (store.WebsiteConfig, error) {
	if f.getWebsiteConfig == nil {
		return store.WebsiteConfig{}, nil
	}
	return f.getWebsiteConfig(ctx)
}

func (f *fakeStore) SaveWebsiteConfig(ctx context.Context, cfg store.WebsiteConfig) error {
	if f.saveWebsiteConfig == nil {
		return nil
	}
	return f.saveWebsiteConfig(ctx, cfg)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.ping == nil {
		return nil
	}
	return f.ping(ctx)
}

func (f *fakeStore) DatabaseName() string { return "testdb" }

type fakeMailer struct {
	configured    bool
	notifyErr     error
	confirmErr    error
	notifications []store.Lead
	confirmations []store.Lead
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func (f *fakeMailer) SendLeadNotification(lead store.Lead) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifications = append(f.notifications, lead)
	return nil
}

func (f *fakeMailer) SendLeadConfirmation(lead store.Lead) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmations = append(f.confirmations, lead)
	return nil
}

type fakeGeo struct {
	code string
	name string
}

func (f fakeGeo) Lookup(ctx context.Context, ip string) (string, string) {
	if f.code == "" {
		return "AE", "United Arab Emirates"
	}
	return f.code, f.name
}

const (
	testAdminUser     = "admin"
	testAdminPassword = "super-secret"

	testSessionTTL    = 24 * time.Hour
	testRefreshWindow = time.Hour
)

func newTestService(st *fakeStore, mailer *fakeMailer) *Service {
	admin, err := authpw.NewAdmin(testAdminUser, testAdminPassword)
	if err != nil {
		panic(err)
	}
	authority := session.NewAuthority(nil, testSessionTTL, testRefreshWindow)
	if mailer == nil {
		mailer = &fakeMailer{}
	}
	return New(st, authority, admin, mailer, fakeGeo{})
}

var errBoom = errors.New("boom")

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := authpw.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func validSubmission() LeadSubmission {
	return LeadSubmission{
		FirstName:     "Amina",
		LastName:      "Khalid",
		Email:         "amina@example.com",
		Whatsapp:      "+971 50 123 4567",
		Country:       "UAE",
		ContactMethod: "WhatsApp",
		Timeframe:     "1-3 months",
		PropertyType:  "Apartment",
	}
}
