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

// SettingsStore holds per-company settings. Get never fails on a missing
// company; it returns the defaults instead.
type SettingsStore interface {
	Get(ctx context.Context, companyID string) (*models.CompanySettings, error)
	Save(ctx context.Context, settings *models.CompanySettings) error
}

type MongoSettingsRepository struct {
	collection *mongo.Collection
}

func NewMongoSettingsRepository(db *mongo.Database) *MongoSettingsRepository {
	return &MongoSettingsRepository{
		collection: db.Collection("company_settings"),
	}
}

func (r *MongoSettingsRepository) Get(ctx context.Context, companyID string) (*models.CompanySettings, error) {
	var settings models.CompanySettings
	err := r.collection.FindOne(ctx, bson.M{"companyId": companyID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.CompanySettings{CompanyID: companyID, Anonymize: false}, nil
		}
		return nil, fmt.Errorf("failed to find settings: %w", err)
	}
	return &settings, nil
}

func (r *MongoSettingsRepository) Save(ctx context.Context, settings *models.CompanySettings) error {
	filter := bson.M{"companyId": settings.CompanyID}
	update := bson.M{"$set": settings}
	opts := options.UpdateOne().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
