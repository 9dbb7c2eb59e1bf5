package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/api"
	"github.com/mizan-meet/mizan-api/chat"
	"github.com/mizan-meet/mizan-api/config"
	"github.com/mizan-meet/mizan-api/databases"
	"github.com/mizan-meet/mizan-api/realtime"
)

const messengerTokenTTL = time.Hour

// Messenger exported for testing purposes
type Messenger struct {
	UDB     databases.UserDatabase
	Backend *databases.ChatBackend
	Config  config.Config
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the mobile client connects from a different origin than the api
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenHandler mints a short-lived JWT the client passes as a query param
// when dialing the messenger websocket. Browsers cannot set an Authorization
// header on a websocket handshake, so the socket route carries its own
// credential instead of the bearer token.
func (m Messenger) TokenHandler(w http.ResponseWriter, r *http.Request) {
	info, err := api.AuthenticatedUser(r)
	if err != nil {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	name := info.UserName()
	email := info.UserName()
	if user, err := m.UDB.FindOne(ctx, bson.M{"_id": info.ID()}); err == nil {
		name = user.Details.Name
		email = user.Details.Email
	}

	claims := jwt.MapClaims{
		"sub":   info.ID(),
		"name":  name,
		"email": email,
		"exp":   time.Now().Add(messengerTokenTTL).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.Config.JWTSecret))
	if err != nil {
		config.ErrorStatus("failed to sign messenger token", http.StatusInternalServerError, w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"token": signed,
	})
}

// SocketHandler upgrades the connection and serves the messenger protocol
// until the client disconnects
func (m Messenger) SocketHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := m.identityFromToken(r.URL.Query().Get("token"))
	if err != nil {
		config.ErrorStatus("invalid messenger token", http.StatusUnauthorized, w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("failed to upgrade messenger connection", "error", err)
		return
	}

	zap.S().Infow("messenger connected", "user_id", identity.ID)
	realtime.ServeClient(conn, identity, m.Backend)
	zap.S().Infow("messenger disconnected", "user_id", identity.ID)
}

func (m Messenger) identityFromToken(raw string) (chat.Identity, error) {
	if raw == "" {
		return chat.Identity{}, fmt.Errorf("missing token")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.Config.JWTSecret), nil
	})
	if err != nil {
		return chat.Identity{}, err
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return chat.Identity{}, fmt.Errorf("token missing subject")
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)

	return chat.Identity{ID: sub, Name: name, Email: email}, nil
}
