package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/middleware"
	"github.com/rpattn/keyset/internal/rest"
	"github.com/rpattn/keyset/pkg/keyset"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
	limits  domain.PagingLimits
	codec   *keyset.Codec
}

// NewHTTPHandler serves GET /people/export.xlsx. It accepts the same query
// parameters as the people listing; all=true exports the whole traversal.
func NewHTTPHandler(service *Service, limits domain.PagingLimits, codec *keyset.Codec) http.Handler {
	return &Handler{service: service, limits: limits, codec: codec}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	params, err := rest.PageParamsFromQuery(q)
	if err != nil {
		rest.WriteError(w, r, err)
		return
	}
	req, err := params.Request(h.limits, h.codec)
	if err != nil {
		rest.WriteError(w, r, err)
		return
	}
	all, _ := strconv.ParseBool(q.Get("all"))

	// buffered so that a failure midway still yields a proper error response
	var buf bytes.Buffer
	var n int
	if all {
		n, err = h.service.WriteAll(r.Context(), &buf, req)
	} else {
		n, err = h.service.WritePage(r.Context(), &buf, req)
	}
	if err != nil {
		rest.WriteError(w, r, err)
		return
	}

	middleware.LoggerFromContext(r.Context()).WithFields(logrus.Fields{
		"rows":  n,
		"order": req.Sort.String(),
		"all":   all,
	}).Info("exported people")

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="people.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
