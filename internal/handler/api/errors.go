package api

import (
	"errors"
	"net/http"

	"Quantra/internal/domain/models"
	xhttp "Quantra/pkg/http"
)

// appError maps domain sentinel errors to API error codes and statuses.
// Anything unrecognized surfaces as a plain 500.
func appError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrModelNotTrained):
		return xhttp.NewAppError("ERR_MODEL_NOT_TRAINED", "symbol", "No trained model for symbol", http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrSessionNotFound):
		return xhttp.NewAppError("ERR_SESSION_NOT_FOUND", "id", "Session not found", http.StatusNotFound).WithError(err)
	case errors.Is(err, models.ErrSessionLimit):
		return xhttp.NewAppError("ERR_SESSION_LIMIT", "", "Active session limit reached", http.StatusConflict).WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", "Not enough history for requested operation", http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrTrainingInProgress):
		return xhttp.NewAppError("ERR_TRAINING_IN_PROGRESS", "symbol", "Training already in progress for symbol", http.StatusConflict).WithError(err)
	case errors.Is(err, models.ErrTrainingFailed):
		return xhttp.NewAppError("ERR_TRAINING_FAILED", "", "Model training failed", http.StatusInternalServerError).WithError(err)
	case errors.Is(err, models.ErrModelCorrupt):
		return xhttp.NewAppError("ERR_MODEL_CORRUPT", "", "Persisted model could not be decoded", http.StatusInternalServerError).WithError(err)
	case errors.Is(err, models.ErrPriceUnavailable):
		return xhttp.NewAppError("ERR_PRICE_UNAVAILABLE", "", "Price unavailable from all sources", http.StatusBadGateway).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
