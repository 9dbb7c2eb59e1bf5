package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mizan-meet/mizan-api/models"
)

const crimeName = "crimes"

// CrimeDatabase contains the methods to use with the crime database
type CrimeDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Crime, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Crime, error)
	InsertOne(ctx context.Context, crime interface{}) (interface{}, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
}

type crimeDatabase struct {
	db DatabaseHelper
}

// NewCrimeDatabase initializes a new instance of crime database with the provided db connection
func NewCrimeDatabase(db DatabaseHelper) CrimeDatabase {
	return &crimeDatabase{
		db: db,
	}
}

func (c *crimeDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Crime, error) {
	crime := &models.Crime{}
	err := c.db.Collection(crimeName).FindOne(ctx, filter).Decode(crime)
	if err != nil {
		return nil, err
	}
	return crime, nil
}

func (c *crimeDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Crime, error) {
	cursor, err := c.db.Collection(crimeName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var crimes []models.Crime
	if err := cursor.All(ctx, &crimes); err != nil {
		return nil, err
	}
	return crimes, nil
}

func (c *crimeDatabase) InsertOne(ctx context.Context, crime interface{}) (interface{}, error) {
	return c.db.Collection(crimeName).InsertOne(ctx, crime)
}

func (c *crimeDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(crimeName).UpdateOne(ctx, filter, update, opts...)
}

func (c *crimeDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(crimeName).DeleteOne(ctx, filter)
}
