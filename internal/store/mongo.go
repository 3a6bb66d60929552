// Package store wraps the MongoDB collections backing leads, managers,
// sessions, and the website configuration document. Identifiers cross the
// package boundary as opaque hex strings; ObjectIDs stay internal.
//
// Policy: MongoDB is required. Open fails when the server is unreachable and
// the process is expected to abort rather than run degraded.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	collectionLeads    = "leads"
	collectionManagers = "managers"
	collectionSessions = "sessions"
	collectionConfig   = "website_config"

	connectTimeout = 10 * time.Second
)

var ErrNotFound = errors.New("not found")

// Open connects to MongoDB and verifies the server is reachable.
func Open(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(dbName)}
}

// EnsureIndexes establishes the unique manager-username constraint and the
// secondary indexes that keep lead lookups and session expiry sweeps cheap.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	leadIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := s.db.Collection(collectionLeads).Indexes().CreateMany(ctx, leadIndexes); err != nil {
		return fmt.Errorf("lead indexes: %w", err)
	}

	managerIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := s.db.Collection(collectionManagers).Indexes().CreateMany(ctx, managerIndexes); err != nil {
		return fmt.Errorf("manager indexes: %w", err)
	}

	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := s.db.Collection(collectionSessions).Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("session indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) DatabaseName() string {
	return s.db.Name()
}

// Leads

func (s *MongoStore) SaveLead(ctx context.Context, lead Lead) (string, error) {
	now := time.Now()
	lead.OID = bson.NewObjectID()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = "new"
	}
	if _, err := s.db.Collection(collectionLeads).InsertOne(ctx, lead); err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return lead.OID.Hex(), nil
}

func (s *MongoStore) ListLeads(ctx context.Context) ([]Lead, error) {
	return s.findLeads(ctx, bson.D{})
}

func (s *MongoStore) ListLeadsByManager(ctx context.Context, username string) ([]Lead, error) {
	return s.findLeads(ctx, bson.D{{Key: "assigned_to", Value: username}})
}

func (s *MongoStore) findLeads(ctx context.Context, filter bson.D) ([]Lead, error) {
	cursor, err := s.db.Collection(collectionLeads).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find leads: %w", err)
	}
	var leads []Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("decode leads: %w", err)
	}
	for i := range leads {
		leads[i].ID = leads[i].OID.Hex()
	}
	return leads, nil
}

func (s *MongoStore) GetLead(ctx context.Context, id string) (Lead, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return Lead{}, ErrNotFound
	}
	var lead Lead
	err = s.db.Collection(collectionLeads).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&lead)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("find lead: %w", err)
	}
	lead.ID = lead.OID.Hex()
	return lead, nil
}

// AssignLead sets assigned_to and assigned_at in a single document update so
// the pair can never be observed half-written.
func (s *MongoStore) AssignLead(ctx context.Context, id, username string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	now := time.Now()
	result, err := s.db.Collection(collectionLeads).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "assigned_to", Value: username},
			{Key: "assigned_at", Value: now},
			{Key: "updated_at", Value: now},
		}}})
	if err != nil {
		return fmt.Errorf("assign lead: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UnassignLead clears assigned_to and assigned_at together.
func (s *MongoStore) UnassignLead(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := s.db.Collection(collectionLeads).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{
			{Key: "$unset", Value: bson.D{
				{Key: "assigned_to", Value: ""},
				{Key: "assigned_at", Value: ""},
			}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now()}}},
		})
	if err != nil {
		return fmt.Errorf("unassign lead: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteLead(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := s.db.Collection(collectionLeads).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLeadsBulk deletes every id that exists and reports how many were
// removed; unknown or malformed ids are skipped, not errors.
func (s *MongoStore) DeleteLeadsBulk(ctx context.Context, ids []string) (int64, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return 0, nil
	}
	result, err := s.db.Collection(collectionLeads).DeleteMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}})
	if err != nil {
		return 0, fmt.Errorf("bulk delete leads: %w", err)
	}
	return result.DeletedCount, nil
}

// Managers

func (s *MongoStore) CreateManager(ctx context.Context, manager Manager) error {
	now := time.Now()
	manager.OID = bson.NewObjectID()
	manager.Role = "manager"
	manager.CreatedAt = now
	manager.UpdatedAt = now
	if _, err := s.db.Collection(collectionManagers).InsertOne(ctx, manager); err != nil {
		return fmt.Errorf("insert manager: %w", err)
	}
	return nil
}

func (s *MongoStore) GetManager(ctx context.Context, username string) (Manager, error) {
	var manager Manager
	err := s.db.Collection(collectionManagers).FindOne(ctx,
		bson.D{{Key: "username", Value: username}, {Key: "role", Value: "manager"}}).Decode(&manager)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Manager{}, ErrNotFound
	}
	if err != nil {
		return Manager{}, fmt.Errorf("find manager: %w", err)
	}
	return manager, nil
}

func (s *MongoStore) ListManagers(ctx context.Context) ([]Manager, error) {
	cursor, err := s.db.Collection(collectionManagers).Find(ctx,
		bson.D{{Key: "role", Value: "manager"}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find managers: %w", err)
	}
	var managers []Manager
	if err := cursor.All(ctx, &managers); err != nil {
		return nil, fmt.Errorf("decode managers: %w", err)
	}
	return managers, nil
}

func (s *MongoStore) UpdateManager(ctx context.Context, username string, fields map[string]any) error {
	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	for key, value := range fields {
		set = append(set, bson.E{Key: key, Value: value})
	}
	result, err := s.db.Collection(collectionManagers).UpdateOne(ctx,
		bson.D{{Key: "username", Value: username}, {Key: "role", Value: "manager"}},
		bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("update manager: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteManager(ctx context.Context, username string) error {
	result, err := s.db.Collection(collectionManagers).DeleteOne(ctx,
		bson.D{{Key: "username", Value: username}, {Key: "role", Value: "manager"}})
	if err != nil {
		return fmt.Errorf("delete manager: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Sessions (durable tier for manager sessions)

func (s *MongoStore) SaveSession(ctx context.Context, session Session) error {
	_, err := s.db.Collection(collectionSessions).UpdateOne(ctx,
		bson.D{{Key: "token", Value: session.Token}},
		bson.D{{Key: "$set", Value: session}},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *MongoStore) GetSession(ctx context.Context, token string) (Session, error) {
	var session Session
	err := s.db.Collection(collectionSessions).FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

func (s *MongoStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.Collection(collectionSessions).DeleteOne(ctx, bson.D{{Key: "token", Value: token}}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *MongoStore) CleanupExpiredSessions(ctx context.Context) error {
	_, err := s.db.Collection(collectionSessions).DeleteMany(ctx,
		bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: time.Now()}}}})
	if err != nil {
		return fmt.Errorf("cleanup sessions: %w", err)
	}
	return nil
}

// Website config

func (s *MongoStore) GetWebsiteConfig(ctx context.Context) (WebsiteConfig, error) {
	var cfg WebsiteConfig
	err := s.db.Collection(collectionConfig).FindOne(ctx, bson.D{{Key: "type", Value: "website"}}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return WebsiteConfig{}, nil
	}
	if err != nil {
		return WebsiteConfig{}, fmt.Errorf("find website config: %w", err)
	}
	return cfg, nil
}

func (s *MongoStore) SaveWebsiteConfig(ctx context.Context, cfg WebsiteConfig) error {
	_, err := s.db.Collection(collectionConfig).UpdateOne(ctx,
		bson.D{{Key: "type", Value: "website"}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "type", Value: "website"},
			{Key: "content", Value: cfg.Content},
			{Key: "design", Value: cfg.Design},
			{Key: "images", Value: cfg.Images},
			{Key: "lastUpdated", Value: cfg.LastUpdated},
		}}},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save website config: %w", err)
	}
	return nil
}
