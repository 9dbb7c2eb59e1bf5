package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mizan-meet/mizan-api/api"
	"github.com/mizan-meet/mizan-api/config"
	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/models"
	templates "github.com/mizan-meet/mizan-api/templates/html"
)

// User exported for testing purposes
type User struct {
	DB     databases.UserDatabase
	PVDB   databases.PendingVerificationDatabase
	Config config.Config
}

// UserHandler returns a user given a userID
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	zap.S().Debugf("user_id: %v", userID)

	dbResp, err := u.DB.FindOne(context.Background(), bson.M{"_id": userID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}
	dbResp.Details.Password = ""

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UserCreateHandler creates a user and kicks off the email verification flow
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var user models.UserDetails
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	if user.Name == "" {
		config.ErrorStatus("name is required", http.StatusBadRequest, w, errMissingFields)
		return
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		config.ErrorStatus("invalid email", http.StatusBadRequest, w, err)
		return
	}
	if len(user.Password) < 6 {
		config.ErrorStatus("password must be at least 6 characters", http.StatusBadRequest, w, errMissingFields)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// check if the user already exists
	existingUser, err := u.DB.FindOne(ctx, bson.M{"user.email": user.Email})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("failed to check for existing user", http.StatusInternalServerError, w, err)
		return
	}
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("email already exists"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	user.Password = string(hash)
	user.EmailVerified = false
	user.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	user.UpdatedAt = primitive.NewDateTimeFromTime(time.Now())

	insertedID, err := u.DB.InsertOne(ctx, user)
	if err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	// Generate a 6-digit code
	code := fmt.Sprintf("%06d", 100000+rand.Intn(900000))

	newPending := models.PendingVerification{
		ID:        primitive.NewObjectID(),
		Email:     user.Email,
		Code:      code,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
		ExpiresAt: primitive.NewDateTimeFromTime(time.Now().Add(24 * time.Hour)),
	}
	if _, err := u.PVDB.InsertOne(ctx, newPending); err != nil {
		zap.S().Errorw("failed to store pending verification", "error", err, "email", user.Email)
	} else {
		go u.sendVerificationEmail(user.Email, user.Name, code)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User created successfully",
		"_id":     insertedID,
	})
}

// UserCheckEmailHandler reports whether an email is already registered
func (u User) UserCheckEmailHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var requestBody struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	email := strings.TrimSpace(strings.ToLower(requestBody.Email))

	count, err := u.DB.CountDocuments(context.Background(), bson.M{"user.email": email})
	if err != nil {
		config.ErrorStatus("failed to check email", http.StatusInternalServerError, w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"exists": count > 0,
	})
}

// VerifyEmailHandler confirms a signup verification code
func (u User) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var requestBody struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	email := strings.TrimSpace(strings.ToLower(requestBody.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	pending, err := u.PVDB.FindOne(ctx, bson.M{"email": email, "code": requestBody.Code})
	if err != nil {
		config.ErrorStatus("invalid verification code", http.StatusBadRequest, w, err)
		return
	}
	if pending.ExpiresAt.Time().Before(time.Now()) {
		config.ErrorStatus("verification code expired", http.StatusBadRequest, w, fmt.Errorf("code expired"))
		return
	}

	_, err = u.DB.UpdateOne(ctx, bson.M{"user.email": email}, bson.M{
		"$set": bson.M{
			"user.emailVerified": true,
			"user.updatedAt":     primitive.NewDateTimeFromTime(time.Now()),
		},
	})
	if err != nil {
		config.ErrorStatus("failed to mark email verified", http.StatusInternalServerError, w, err)
		return
	}
	if _, err := u.PVDB.DeleteOne(ctx, bson.M{"_id": pending.ID}); err != nil {
		zap.S().Warnw("failed to delete pending verification", "error", err, "email", email)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Email verified successfully",
	})
}

func (u User) sendVerificationEmail(toEmail, name, code string) {
	if u.Config.SendgridAPIKey == "" {
		zap.S().Warn("SENDGRID_API_KEY is not set, skipping verification email")
		return
	}

	from := sgmail.NewEmail("MIZAN", "no-reply@mizan-meet.com")
	to := sgmail.NewEmail(name, toEmail)
	subject := "Verify your MIZAN account"
	body := fmt.Sprintf("Hello %s,\n\nYour verification code is %s. It expires in 24 hours.", name, code)
	message := sgmail.NewSingleEmail(from, subject, to, body, templates.RenderGenericEmail(subject, body))

	client := sendgrid.NewSendClient(u.Config.SendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send verification email", "error", err, "to", toEmail)
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
	}
}
