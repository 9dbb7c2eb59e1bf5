package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User holds the structure for the user collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id"`
	Details UserDetails `json:"user" bson:"user"`
	Version int32       `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo
type UserDetails struct {
	Name          string      `json:"name" bson:"name"`
	Email         string      `json:"email" bson:"email"`
	Password      string      `json:"password,omitempty" bson:"password"`
	EmailVerified bool        `json:"emailVerified" bson:"emailVerified"`
	CreatedAt     interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt     interface{} `json:"updatedAt" bson:"updatedAt"`
}

// PendingVerification holds a signup email verification code awaiting confirmation
type PendingVerification struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Email     string             `json:"email" bson:"email"`
	Code      string             `json:"code" bson:"code"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	ExpiresAt primitive.DateTime `json:"expiresAt" bson:"expiresAt"`
}
