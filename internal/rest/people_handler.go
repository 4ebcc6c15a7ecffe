package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/middleware"
	"github.com/rpattn/keyset/internal/repository"
	"github.com/rpattn/keyset/pkg/keyset"
)

// PeopleHandler serves GET /people as a JSON connection.
type PeopleHandler struct {
	repo   repository.PersonRepository
	limits domain.PagingLimits
	codec  *keyset.Codec
}

func NewPeopleHandler(repo repository.PersonRepository, limits domain.PagingLimits, codec *keyset.Codec) *PeopleHandler {
	return &PeopleHandler{repo: repo, limits: limits, codec: codec}
}

func (h *PeopleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params, err := PageParamsFromQuery(r.URL.Query())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	req, err := params.Request(h.limits, h.codec)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	conn, err := h.repo.Page(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// PageParamsFromQuery reads first, after, before and order from a query
// string.
func PageParamsFromQuery(q url.Values) (domain.PersonPageParams, error) {
	params := domain.PersonPageParams{
		After:  q.Get("after"),
		Before: q.Get("before"),
		Order:  q.Get("order"),
	}
	if raw := strings.TrimSpace(q.Get("first")); raw != "" {
		first, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("%w: first must be an integer, got %q", keyset.ErrArgument, raw)
		}
		params.First = &first
	}
	return params, nil
}

type errorBody struct {
	Error string `json:"error"`
	Class string `json:"class,omitempty"`
}

// WriteError maps pagination failures onto HTTP statuses: cursor and argument
// errors are the client's fault, anything else is logged as a server error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := middleware.LoggerFromContext(r.Context())
	switch {
	case keyset.IsCursorError(err):
		class := keyset.CursorErrorClass(err)
		logger.WithFields(logrus.Fields{"class": class, "path": r.URL.Path}).WithError(err).Warn("rejected pagination cursor")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid pagination cursor", Class: class})
	case errors.Is(err, keyset.ErrArgument), errors.Is(err, keyset.ErrConfiguration):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		logger.WithField("path", r.URL.Path).WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}
