package models

// Crime status values as stored in the crime collection
const (
	CrimeStatusPending    = "pending"
	CrimeStatusInProgress = "in progress"
	CrimeStatusSolved     = "solved"
	CrimeStatusClosed     = "closed"
)

// CrimeCategories lists the report categories offered by the mobile client
var CrimeCategories = []string{
	"Domestic Violence",
	"Sexual Harassment / Assault",
	"Police Misconduct",
	"LGBTQ+ Harassment",
	"Hate Crime",
	"Violent Crime",
	"Other",
}

// Crime holds the structure for the crime collection in mongo
type Crime struct {
	ID      string       `json:"_id" bson:"_id"`
	Details CrimeDetails `json:"crime" bson:"crime"`
	Version int32        `json:"__v" bson:"__v"`
}

// CrimeDetails holds the structure for the inner crime structure as defined
// in the crime collection in mongo
type CrimeDetails struct {
	Crime       string       `json:"crime" bson:"crime"`
	Description string       `json:"description" bson:"description"`
	Date        string       `json:"date" bson:"date"`
	VictimID    string       `json:"victimID" bson:"victimID"`
	Location    *GeoLocation `json:"location" bson:"location"`
	Attachments []Attachment `json:"attachments" bson:"attachments"`
	Status      string       `json:"status" bson:"status"`
	Escalated   bool         `json:"escalated" bson:"escalated"`
	CreatedAt   interface{}  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   interface{}  `json:"updatedAt" bson:"updatedAt"`
}

// GeoLocation holds the coordinates attached to a crime report
type GeoLocation struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Attachment holds an uploaded photo reference attached to a crime report
type Attachment struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url" bson:"url"`
}
