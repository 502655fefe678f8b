package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"Quantra/internal/domain/models"
	xlogger "Quantra/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestAppErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{models.ErrModelNotTrained, "ERR_MODEL_NOT_TRAINED", http.StatusNotFound},
		{models.ErrSessionNotFound, "ERR_SESSION_NOT_FOUND", http.StatusNotFound},
		{models.ErrSessionLimit, "ERR_SESSION_LIMIT", http.StatusConflict},
		{models.ErrTrainingInProgress, "ERR_TRAINING_IN_PROGRESS", http.StatusConflict},
		{models.ErrInsufficientData, "ERR_INSUFFICIENT_DATA", http.StatusUnprocessableEntity},
		{models.ErrTrainingFailed, "ERR_TRAINING_FAILED", http.StatusInternalServerError},
		{models.ErrModelCorrupt, "ERR_MODEL_CORRUPT", http.StatusInternalServerError},
		{models.ErrPriceUnavailable, "ERR_PRICE_UNAVAILABLE", http.StatusBadGateway},
	}
	for _, tc := range cases {
		ae := appError(fmt.Errorf("op: %w", tc.err))
		if ae.Code != tc.code {
			t.Errorf("%v: code = %s, want %s", tc.err, ae.Code, tc.code)
		}
		if ae.Status != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, ae.Status, tc.status)
		}
	}
}

func TestAppErrorUnknown(t *testing.T) {
	ae := appError(errors.New("boom"))
	if ae.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", ae.Status)
	}
}

func TestBacktestRejectsInvalidBody(t *testing.T) {
	h := NewStrategyHandler(testLogger(t), nil, nil, nil, nil)
	e := echo.New()
	h.RegisterRoutes(e)

	body := `{"symbol":"","start_date":"not-a-date","end_date":"2024-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/backtest", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestStartSessionRejectsMissingSymbol(t *testing.T) {
	h := NewStrategyHandler(testLogger(t), nil, nil, nil, nil)
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}
