package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mizan-meet/mizan-api/models"
)

const organizationName = "organizations"

// OrganizationDatabase contains the methods to use with the organization database
type OrganizationDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Organization, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Organization, error)
}

type organizationDatabase struct {
	db DatabaseHelper
}

// NewOrganizationDatabase initializes a new instance of organization database with the provided db connection
func NewOrganizationDatabase(db DatabaseHelper) OrganizationDatabase {
	return &organizationDatabase{
		db: db,
	}
}

func (o *organizationDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Organization, error) {
	organization := &models.Organization{}
	err := o.db.Collection(organizationName).FindOne(ctx, filter).Decode(organization)
	if err != nil {
		return nil, err
	}
	return organization, nil
}

func (o *organizationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Organization, error) {
	cursor, err := o.db.Collection(organizationName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var organizations []models.Organization
	if err := cursor.All(ctx, &organizations); err != nil {
		return nil, err
	}
	return organizations, nil
}
