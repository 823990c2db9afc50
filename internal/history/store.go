// Package history persists alerts to MongoDB as an append-only record.
// The store degrades to a logged no-op when the database is unreachable;
// nothing here is ever fatal to the pipeline.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/verdantlabs/gardenwatch/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	databaseName   = "weather_alerts_db"
	collectionName = "weather_alerts"
	connectTimeout = 5 * time.Second
	opTimeout      = 10 * time.Second
)

// DefaultQueryLimit caps history queries when no explicit limit is given.
const DefaultQueryLimit = 100

// Filter restricts a history query. Zero values mean "no restriction".
type Filter struct {
	GardenID  string
	UserID    int
	AlertType types.AlertType
	StartDate time.Time
	EndDate   time.Time
}

// alertDocument is the persisted shape: the alert plus a server-assigned
// creation time.
type alertDocument struct {
	types.Alert `bson:",inline"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// Store writes and queries the alert history collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	ready  bool
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewStore creates an uninitialized store. Call Initialize before use.
func NewStore(logger *zap.SugaredLogger) *Store {
	return &Store{logger: logger, now: time.Now}
}

// Initialize connects to MongoDB and ensures the query indexes. Connection
// failure leaves the store degraded and returns normally; index-creation
// failure is logged and ignored.
func (s *Store) Initialize(ctx context.Context, mongoURL string) {
	if mongoURL == "" {
		s.logger.Warn("alert history disabled: MONGO_URL not configured")
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		s.logger.Warnf("alert history degraded: %v", err)
		return
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		s.logger.Warnf("alert history degraded, mongo unreachable: %v", err)
		return
	}

	s.client = client
	s.coll = client.Database(databaseName).Collection(collectionName)
	s.ready = true
	s.logger.Infof("alert history connected to %s.%s", databaseName, collectionName)

	s.ensureIndexes(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) {
	idxCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "gardenId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(idxCtx, indexes); err != nil {
		s.logger.Warnf("failed to create alert history indexes: %v", err)
	}
}

// Ready reports whether the store reached the database at startup.
func (s *Store) Ready() bool {
	return s.ready
}

// Ping verifies the live connection; used by the health prober.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	if !s.ready {
		return 0, fmt.Errorf("history store not connected")
	}
	start := time.Now()
	err := s.client.Ping(ctx, nil)
	return time.Since(start), err
}

// SaveAlert appends one alert document with a server-assigned createdAt.
// Returns false, never an error, when the store is degraded or the write
// fails.
func (s *Store) SaveAlert(ctx context.Context, alert types.Alert) bool {
	if !s.ready {
		s.logger.Debugf("alert %s not persisted: history store degraded", alert.AlertID)
		return false
	}

	writeCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := alertDocument{Alert: alert, CreatedAt: s.now()}
	if _, err := s.coll.InsertOne(writeCtx, doc); err != nil {
		s.logger.Errorf("failed to persist alert %s: %v", alert.AlertID, err)
		return false
	}
	return true
}

// GetAlertHistory returns alerts matching the filter, newest first, capped
// at limit (DefaultQueryLimit when limit <= 0). Returns an empty slice on
// any error or when the store is degraded.
func (s *Store) GetAlertHistory(ctx context.Context, filter Filter, limit int) []types.Alert {
	if !s.ready {
		return []types.Alert{}
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(queryCtx, buildQuery(filter), opts)
	if err != nil {
		s.logger.Errorf("alert history query failed: %v", err)
		return []types.Alert{}
	}
	defer cursor.Close(queryCtx)

	alerts := []types.Alert{}
	for cursor.Next(queryCtx) {
		var doc alertDocument
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Errorf("failed to decode alert history document: %v", err)
			return []types.Alert{}
		}
		alerts = append(alerts, doc.Alert)
	}
	if err := cursor.Err(); err != nil {
		s.logger.Errorf("alert history cursor failed: %v", err)
		return []types.Alert{}
	}
	return alerts
}

// buildQuery translates a Filter into a Mongo query document.
func buildQuery(f Filter) bson.M {
	q := bson.M{}
	if f.GardenID != "" {
		q["gardenId"] = f.GardenID
	}
	if f.UserID != 0 {
		q["userId"] = f.UserID
	}
	if f.AlertType != "" {
		q["alertType"] = f.AlertType
	}
	ts := bson.M{}
	if !f.StartDate.IsZero() {
		ts["$gte"] = f.StartDate
	}
	if !f.EndDate.IsZero() {
		ts["$lte"] = f.EndDate
	}
	if len(ts) > 0 {
		q["timestamp"] = ts
	}
	return q
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) {
	if s.client == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := s.client.Disconnect(closeCtx); err != nil {
		s.logger.Warnf("error disconnecting from mongo: %v", err)
	}
}
