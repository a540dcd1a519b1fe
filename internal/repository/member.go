package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"member-insight-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNotFound is returned by every store implementation for missing records.
var ErrNotFound = errors.New("not found")

// MemberStore is the mutable member-state aggregate, keyed by
// (companyId, memberId). The projector creates members lazily and never
// deletes them.
type MemberStore interface {
	FindByID(ctx context.Context, companyID, memberID string) (*models.Member, error)
	Save(ctx context.Context, member *models.Member) error
	Search(ctx context.Context, query *models.MemberSearchQuery) ([]*models.Member, int64, error)
	ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.Member, error)
}

type MongoMemberRepository struct {
	collection *mongo.Collection
}

func NewMongoMemberRepository(db *mongo.Database) *MongoMemberRepository {
	return &MongoMemberRepository{
		collection: db.Collection("members"),
	}
}

func (r *MongoMemberRepository) FindByID(ctx context.Context, companyID, memberID string) (*models.Member, error) {
	var member models.Member
	err := r.collection.FindOne(ctx, bson.M{"companyId": companyID, "memberId": memberID}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return &member, nil
}

func (r *MongoMemberRepository) Save(ctx context.Context, member *models.Member) error {
	currentTime := time.Now().Unix()
	if member.Metadata.CreatedAt == 0 {
		member.Metadata.CreatedAt = currentTime
	}
	member.Metadata.UpdatedAt = currentTime

	filter := bson.M{"companyId": member.CompanyID, "memberId": member.MemberID}
	update := bson.M{"$set": member}
	opts := options.UpdateOne().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

func (r *MongoMemberRepository) Search(ctx context.Context, query *models.MemberSearchQuery) ([]*models.Member, int64, error) {
	filter := bson.M{"companyId": query.CompanyID}

	if query.Q != "" {
		pattern := bson.M{"$regex": query.Q, "$options": "i"}
		filter["$or"] = []bson.M{
			{"email": pattern},
			{"displayName": pattern},
		}
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	opts := options.Find()
	opts.SetSort(bson.M{"metadata.createdAt": -1})
	opts.SetSkip(int64(query.Offset))
	opts.SetLimit(int64(query.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []*models.Member
	if err = cursor.All(ctx, &members); err != nil {
		return nil, 0, fmt.Errorf("failed to decode members: %w", err)
	}

	return members, totalCount, nil
}

func (r *MongoMemberRepository) ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.Member, error) {
	opts := options.Find()
	opts.SetSort(bson.M{"metadata.createdAt": -1})
	opts.SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"companyId": companyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []*models.Member
	if err = cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode members: %w", err)
	}

	return members, nil
}

func (r *MongoMemberRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "companyId", Value: 1},
				{Key: "memberId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "metadata.createdAt", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create member indexes: %w", err)
	}

	return nil
}
