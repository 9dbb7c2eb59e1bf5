package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/api"
	"github.com/mizan-meet/mizan-api/config"
	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/models"
)

// Crime exported for testing purposes
type Crime struct {
	DB databases.CrimeDatabase
}

// CreateCrimeHandler files a new crime report. The status is always forced
// to pending and timestamps are assigned server-side, regardless of what
// the client sends.
func (c Crime) CreateCrimeHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody models.CrimeDetails
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if requestBody.Crime == "" || requestBody.Description == "" || requestBody.VictimID == "" {
		config.ErrorStatus("crime, description and victimID are required", http.StatusBadRequest, w, errMissingFields)
		return
	}
	if requestBody.Date == "" {
		requestBody.Date = time.Now().Format("02/01/2006")
	}

	requestBody.Status = models.CrimeStatusPending
	requestBody.Escalated = false
	requestBody.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	requestBody.UpdatedAt = primitive.NewDateTimeFromTime(time.Now())

	newCrime := bson.M{
		"_id":   primitive.NewObjectID().Hex(),
		"crime": requestBody,
		"__v":   0,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := c.DB.InsertOne(ctx, newCrime)
	if err != nil {
		config.ErrorStatus("failed to create crime", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Crime reported successfully",
		"crime":   newCrime,
	})
}

// CrimeByIDHandler returns a crime by ID
func (c Crime) CrimeByIDHandler(w http.ResponseWriter, r *http.Request) {
	crimeID := mux.Vars(r)["crime_id"]

	zap.S().Debugf("crime_id: %v", crimeID)

	dbResp, err := c.DB.FindOne(context.Background(), bson.M{"_id": crimeID})
	if err != nil {
		config.ErrorStatus("failed to get crime by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CrimesByVictimIDHandler returns all crimes filed by the given victim
func (c Crime) CrimesByVictimIDHandler(w http.ResponseWriter, r *http.Request) {
	victimID := mux.Vars(r)["victim_id"]
	status := r.URL.Query().Get("status")
	zap.S().Debugf("victim_id: '%v'", victimID)
	zap.S().Debugf("status: '%v'", status)

	filter := bson.M{
		"crime.victimID": victimID,
	}
	if status != "" {
		filter["crime.status"] = strings.ToLower(status)
	}

	dbResp, err := c.DB.Find(context.TODO(), filter)
	if err != nil {
		config.ErrorStatus("failed to get crimes with victim id", http.StatusNotFound, w, err)
		return
	}

	// Because the frontend requires that the data elements inside models.Crime exist, if
	// len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.Crime{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateCrimeStatusHandler updates the status of a crime by ID
func (c Crime) UpdateCrimeStatusHandler(w http.ResponseWriter, r *http.Request) {
	crimeID := mux.Vars(r)["crime_id"]

	var requestBody struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	status := strings.ToLower(requestBody.Status)
	switch status {
	case models.CrimeStatusPending, models.CrimeStatusInProgress, models.CrimeStatusSolved, models.CrimeStatusClosed:
	default:
		config.ErrorStatus("invalid status value", http.StatusBadRequest, w, errInvalidStatus)
		return
	}

	update := bson.M{
		"$set": bson.M{
			"crime.status":    status,
			"crime.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	_, err := c.DB.UpdateOne(context.Background(), bson.M{"_id": crimeID}, update)
	if err != nil {
		config.ErrorStatus("failed to update crime", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Crime updated successfully",
	})
}

// DeleteCrimeHandler deletes a crime by ID
func (c Crime) DeleteCrimeHandler(w http.ResponseWriter, r *http.Request) {
	crimeID := mux.Vars(r)["crime_id"]

	deleted, err := c.DB.DeleteOne(context.Background(), bson.M{"_id": crimeID})
	if err != nil {
		config.ErrorStatus("failed to delete crime", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("crime not found", http.StatusNotFound, w, errNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Crime deleted successfully",
	})
}
