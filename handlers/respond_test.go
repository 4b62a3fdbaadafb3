package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/utils"
)

func recordError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	respondError(c, "respond_test.go", "recordError", err)
	return w
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", utils.ValidationErrorf("bad input"), http.StatusBadRequest},
		{"unauthorized", utils.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", utils.ErrForbidden, http.StatusForbidden},
		{"not found", utils.ErrRecordNotFound, http.StatusNotFound},
		{"insufficient stock", utils.InsufficientStockErrorf("variant X has 1 in stock"), http.StatusConflict},
		{"invalid transition", utils.InvalidStateTransitionErrorf("cannot cancel"), http.StatusConflict},
		{"wrapped storage error", utils.OperationFailed(errors.New("mysql gone away")), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := recordError(t, tc.err)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
			if !strings.Contains(w.Body.String(), `"message"`) {
				t.Fatalf("expected message envelope, got %s", w.Body.String())
			}
		})
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	w := recordError(t, utils.OperationFailed(errors.New("dial tcp 10.0.0.5:3306: connect refused")))
	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Fatalf("internal error leaked to client: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "operation failed") {
		t.Fatalf("expected generic message, got %s", w.Body.String())
	}
}

func TestRespondDataEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondData(c, http.StatusOK, gin.H{"id": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"data"`) {
		t.Fatalf("expected data envelope, got %s", w.Body.String())
	}
}
