package store

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Lead is a captured prospective-customer inquiry. The string ID is the hex
// form of the Mongo ObjectID; OID is the native identifier and never leaves
// the store package boundary in API responses.
type Lead struct {
	OID bson.ObjectID `bson:"_id,omitempty" json:"-"`
	ID  string        `bson:"-" json:"_id"`

	FirstName     string `bson:"firstName" json:"firstName"`
	LastName      string `bson:"lastName" json:"lastName"`
	Email         string `bson:"email" json:"email"`
	Whatsapp      string `bson:"whatsapp" json:"whatsapp"`
	Country       string `bson:"country" json:"country"`
	ContactMethod string `bson:"contactMethod" json:"contactMethod"`
	Timeframe     string `bson:"timeframe" json:"timeframe"`
	PropertyType  string `bson:"propertyType" json:"propertyType"`

	Source              string `bson:"source" json:"source"`
	CampaignID          string `bson:"campaign_id" json:"campaign_id"`
	ExternalLeadID      string `bson:"lead_id" json:"lead_id"`
	IPAddress           string `bson:"ip_address" json:"ip_address"`
	UserAgent           string `bson:"user_agent" json:"user_agent"`
	DetectedCountryCode string `bson:"detected_country_code" json:"detected_country_code"`
	DetectedCountry     string `bson:"detected_country" json:"detected_country"`

	Status     string     `bson:"status" json:"status"`
	AssignedTo *string    `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	AssignedAt *time.Time `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"timestamp"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Manager is a dashboard account with the fixed "manager" role. PasswordHash
// is a bcrypt hash and is never serialized to API responses.
type Manager struct {
	OID bson.ObjectID `bson:"_id,omitempty" json:"-"`

	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Email        string    `bson:"email" json:"email"`
	Role         string    `bson:"role" json:"role"`
	Active       bool      `bson:"active" json:"active"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Session is a bearer-token session. Only manager sessions are persisted;
// admin sessions live in the in-process tier of the session authority.
type Session struct {
	Token     string    `bson:"token" json:"token"`
	Username  string    `bson:"username" json:"username"`
	Role      string    `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// WebsiteConfig is the single mutable site-content document. Updates are
// shallow merges per top-level key, last write wins.
type WebsiteConfig struct {
	Content     map[string]any `bson:"content,omitempty" json:"content,omitempty"`
	Design      map[string]any `bson:"design,omitempty" json:"design,omitempty"`
	Images      map[string]any `bson:"images,omitempty" json:"images,omitempty"`
	LastUpdated time.Time      `bson:"lastUpdated,omitempty" json:"lastUpdated,omitempty"`
}
