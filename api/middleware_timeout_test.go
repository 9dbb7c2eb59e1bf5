package api_test

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mizan-meet/mizan-api/api"
)

func TestTimeoutMiddleware_FastRequestPassesThrough(t *testing.T) {
	handler := api.TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/fast", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("handler returned unexpected body: got %v", rr.Body.String())
	}
}

func TestTimeoutMiddleware_SlowRequestTimesOut(t *testing.T) {
	finished := make(chan struct{})
	handler := api.TimeoutMiddleware(10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("too late"))
		close(finished)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/slow", nil))

	if rr.Code != http.StatusRequestTimeout {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusRequestTimeout)
	}
	if !strings.Contains(rr.Body.String(), "Request timeout") {
		t.Errorf("handler returned unexpected body: got %v", rr.Body.String())
	}

	// the late write must be discarded, not appended to the timeout body
	<-finished
	if strings.Contains(rr.Body.String(), "too late") {
		t.Errorf("late handler write leaked into the response: %v", rr.Body.String())
	}
}

func TestTimeoutMiddleware_HandlerGoroutinesExitAfterTimeout(t *testing.T) {
	handler := api.TimeoutMiddleware(5*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
	}))

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/slow", nil))
	}

	// give the slow handlers time to finish and exit
	time.Sleep(100 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+5 {
		t.Errorf("handler goroutines leaked: %d before, %d after", before, after)
	}
}
