package models

// Organization holds the structure for the organization collection in mongo
type Organization struct {
	ID      string              `json:"_id" bson:"_id"`
	Details OrganizationDetails `json:"organization" bson:"organization"`
	Version int32               `json:"__v" bson:"__v"`
}

// OrganizationDetails holds the structure for the inner organization structure
// as defined in the organization collection in mongo
type OrganizationDetails struct {
	Name        string      `json:"name" bson:"name"`
	Description string      `json:"description" bson:"description"`
	Summary     string      `json:"summary" bson:"summary"`
	Contact     string      `json:"contact" bson:"contact"`
	CreatedAt   interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt   interface{} `json:"updatedAt" bson:"updatedAt"`
}
