package internalgrpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Fuchsoria/couponslots/internal/app"
	"github.com/Fuchsoria/couponslots/internal/importer"
	"github.com/Fuchsoria/couponslots/internal/ingest"
	"github.com/Fuchsoria/couponslots/internal/layout"
	"github.com/Fuchsoria/couponslots/internal/storage"
	"github.com/go-playground/validator/v10"
)

var errBadRequest = errors.New("bad request")

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("cannot write response", "error", err.Error())
	}
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, MessageResponse{Message: message})
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		declined   *layout.DeclinedError
		validation validator.ValidationErrors
	)

	switch {
	case errors.As(err, &declined):
		s.writeJSON(w, http.StatusConflict, ConflictResponse{
			Message:  declined.Error(),
			Context:  declined.Context,
			Occupant: declined.Occupant,
		})
	case errors.Is(err, storage.ErrSlotTaken):
		s.writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, layout.ErrUnknownContext):
		s.writeMessage(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation),
		errors.Is(err, errBadRequest),
		errors.Is(err, layout.ErrPositionOutOfRange),
		errors.Is(err, importer.ErrMissingColumn),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrUnreadableFile),
		errors.Is(err, ingest.ErrEmptyTable),
		errors.Is(err, app.ErrUnknownEntity):
		s.writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "error", err.Error())
		s.writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
