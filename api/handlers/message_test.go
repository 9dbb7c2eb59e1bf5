package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mizan-meet/mizan-api/api"
	"github.com/mizan-meet/mizan-api/api/handlers"
	"github.com/mizan-meet/mizan-api/databases"
)

func TestMessage_MessagesByOrganizationHandlerUnauthorized(t *testing.T) {
	api.MiddlewareDB{DB: databases.NewUserDatabase(&MockDatabaseHelper{})}.SetupGoGuardian()

	req, err := http.NewRequest("GET", "/api/v1/messages/org-1", nil)
	if err != nil {
		t.Fatal(err)
	}

	m := handlers.Message{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.MessagesByOrganizationHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
}

func TestMessage_CreateMessageHandlerUnauthorized(t *testing.T) {
	api.MiddlewareDB{DB: databases.NewUserDatabase(&MockDatabaseHelper{})}.SetupGoGuardian()

	req, err := http.NewRequest("POST", "/api/v1/messages/org-1", strings.NewReader(`{"body":"hello"}`))
	if err != nil {
		t.Fatal(err)
	}

	m := handlers.Message{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.CreateMessageHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
}
