package databases

import (
	"context"

	"github.com/mizan-meet/mizan-api/models"
)

const pendingVerificationName = "pendingVerifications"

// PendingVerificationDatabase contains the methods to use with the pendingVerification database
type PendingVerificationDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.PendingVerification, error)
	InsertOne(ctx context.Context, pv models.PendingVerification) (interface{}, error)
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}) (int64, error)
}

type pendingVerificationDatabase struct {
	db DatabaseHelper
}

// NewPendingVerificationDatabase initializes a new instance of pendingVerification database with the provided db connection
func NewPendingVerificationDatabase(db DatabaseHelper) PendingVerificationDatabase {
	return &pendingVerificationDatabase{
		db: db,
	}
}

func (p *pendingVerificationDatabase) FindOne(ctx context.Context, filter interface{}) (*models.PendingVerification, error) {
	pv := &models.PendingVerification{}
	err := p.db.Collection(pendingVerificationName).FindOne(ctx, filter).Decode(pv)
	if err != nil {
		return nil, err
	}
	return pv, nil
}

func (p *pendingVerificationDatabase) InsertOne(ctx context.Context, pv models.PendingVerification) (interface{}, error) {
	return p.db.Collection(pendingVerificationName).InsertOne(ctx, pv)
}

func (p *pendingVerificationDatabase) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return p.db.Collection(pendingVerificationName).DeleteOne(ctx, filter)
}

func (p *pendingVerificationDatabase) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	return p.db.Collection(pendingVerificationName).DeleteMany(ctx, filter)
}
