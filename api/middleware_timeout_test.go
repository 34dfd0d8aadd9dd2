package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nyagrik/nyay-api/api"
)

func TestTimeoutMiddleware_PassesThroughFastHandlers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message": "done"}`))
	})

	rr := httptest.NewRecorder()
	api.TimeoutMiddleware(time.Second)(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/fast", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "done")
}

func TestTimeoutMiddleware_SuppressesLateHandlerWrites(t *testing.T) {
	wrote := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		// a handler finishing after the deadline must not corrupt the
		// timeout response already sent to the client
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("late body"))
		close(wrote)
	})

	rr := httptest.NewRecorder()
	api.TimeoutMiddleware(10*time.Millisecond)(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/slow", nil))
	<-wrote

	assert.Equal(t, http.StatusRequestTimeout, rr.Code)
	assert.Contains(t, rr.Body.String(), "Request timeout")
	assert.NotContains(t, rr.Body.String(), "late body")
}

func TestTimeoutMiddleware_KeepsHandlerResponseWhenAlreadyWritten(t *testing.T) {
	finished := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message": "partial"}`))
		<-r.Context().Done()
		close(finished)
	})

	rr := httptest.NewRecorder()
	api.TimeoutMiddleware(10*time.Millisecond)(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/slow", nil))
	<-finished

	// the handler got its response out before the deadline, so no 408 is
	// appended on top of it
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Request timeout")
}
