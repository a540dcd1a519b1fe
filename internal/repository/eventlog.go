package repository

import (
	"context"
	"errors"
	"fmt"

	"member-insight-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrDuplicateEvent is returned when an entry with the same eventId already
// exists in the log. The projector treats this as a defect in its own
// duplicate check, not as a normal duplicate delivery.
var ErrDuplicateEvent = errors.New("duplicate event id")

// EventLogStore is the append-only log of projected canonical events.
// Entries are never mutated or removed.
type EventLogStore interface {
	Append(ctx context.Context, entry *models.EventLogEntry) error
	FindByMember(ctx context.Context, companyID, memberID string, limit int) ([]*models.EventLogEntry, error)
}

type MongoEventLogRepository struct {
	collection *mongo.Collection
}

func NewMongoEventLogRepository(db *mongo.Database) *MongoEventLogRepository {
	return &MongoEventLogRepository{
		collection: db.Collection("member_events"),
	}
}

func (r *MongoEventLogRepository) Append(ctx context.Context, entry *models.EventLogEntry) error {
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to append event log entry: %w", err)
	}
	return nil
}

func (r *MongoEventLogRepository) FindByMember(ctx context.Context, companyID, memberID string, limit int) ([]*models.EventLogEntry, error) {
	filter := bson.M{"companyId": companyID, "memberId": memberID}

	opts := options.Find()
	opts.SetSort(bson.M{"occurredAt": -1})
	opts.SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find member events: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.EventLogEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode event log entries: %w", err)
	}

	return entries, nil
}

func (r *MongoEventLogRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "companyId", Value: 1},
				{Key: "memberId", Value: 1},
				{Key: "occurredAt", Value: -1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create event log indexes: %w", err)
	}

	return nil
}
