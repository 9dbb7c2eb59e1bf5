package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/config"
	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/models"
)

// Organization exported for testing purposes
type Organization struct {
	DB databases.OrganizationDatabase
}

// OrganizationHandler returns all organizations
func (o Organization) OrganizationHandler(w http.ResponseWriter, r *http.Request) {
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", Limit|10, err))
	}
	limit64 := int64(Limit)
	page := getPage(r)
	skip64 := int64(page * Limit)
	dbResp, err := o.DB.Find(context.TODO(), bson.D{}, &options.FindOptions{Limit: &limit64, Skip: &skip64})
	if err != nil {
		config.ErrorStatus("failed to get organizations", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the data elements inside models.Organization exist, if
	// len == 0 then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.Organization{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// OrganizationByIDHandler returns an organization by ID
func (o Organization) OrganizationByIDHandler(w http.ResponseWriter, r *http.Request) {
	orgID := mux.Vars(r)["organization_id"]

	zap.S().Debugf("organization_id: %v", orgID)

	dbResp, err := o.DB.FindOne(context.Background(), bson.M{"_id": orgID})
	if err != nil {
		config.ErrorStatus("failed to get organization by ID", http.StatusNotFound, w, err)
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
