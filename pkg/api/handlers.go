package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inkwell-cms/inkwell/pkg/document"
	"github.com/inkwell-cms/inkwell/pkg/httputil"
	"github.com/inkwell-cms/inkwell/pkg/service"
)

// serviceHandlers adapts one service to the shared route shape.
type serviceHandlers struct {
	svc *service.Service
}

func (h *serviceHandlers) find(w http.ResponseWriter, r *http.Request) {
	query, params, err := parseQuery(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	writeResult(w, h.svc.Find(r.Context(), query, params))
}

func (h *serviceHandlers) get(w http.ResponseWriter, r *http.Request) {
	_, params, err := parseQuery(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	writeResult(w, h.svc.Get(r.Context(), mux.Vars(r)["id"], params))
}

func (h *serviceHandlers) create(w http.ResponseWriter, r *http.Request) {
	var data document.Document
	if !httputil.ParseJSONOrError(w, r, &data) {
		return
	}
	writeResult(w, h.svc.Create(r.Context(), data, nil))
}

func (h *serviceHandlers) update(w http.ResponseWriter, r *http.Request) {
	var data document.Document
	if !httputil.ParseJSONOrError(w, r, &data) {
		return
	}
	writeResult(w, h.svc.Update(r.Context(), mux.Vars(r)["id"], data, nil))
}

func (h *serviceHandlers) patch(w http.ResponseWriter, r *http.Request) {
	var data document.Document
	if !httputil.ParseJSONOrError(w, r, &data) {
		return
	}
	writeResult(w, h.svc.Patch(r.Context(), mux.Vars(r)["id"], data, nil))
}

func (h *serviceHandlers) remove(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.Remove(r.Context(), mux.Vars(r)["id"], nil))
}

// writeResult sends the envelope with status 200; the outcome lives in
// resultCode, not in the HTTP status.
func writeResult(w http.ResponseWriter, res service.Result) {
	httputil.WriteJSON(w, http.StatusOK, res)
}

// parseQuery splits the URL query into an equality filter and pagination
// params. Keys starting with "$" steer sorting and pagination; everything
// else filters documents. Values are decoded as JSON literals where
// possible, so status=publish matches the string and draft=true the bool.
func parseQuery(r *http.Request) (document.Query, *document.Params, error) {
	query := document.Query{}
	var params *document.Params
	ensureParams := func() *document.Params {
		if params == nil {
			params = &document.Params{}
		}
		return params
	}

	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case "$sort":
			sort := &document.Sort{Field: value}
			if strings.HasPrefix(value, "-") {
				sort = &document.Sort{Field: value[1:], Descending: true}
			}
			if sort.Field == "" {
				return nil, nil, fmt.Errorf("invalid $sort: %q", value)
			}
			ensureParams().Sort = sort
		case "$limit":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, nil, fmt.Errorf("invalid $limit: %q", value)
			}
			ensureParams().Limit = n
		case "$skip":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, nil, fmt.Errorf("invalid $skip: %q", value)
			}
			ensureParams().Skip = n
		default:
			if strings.HasPrefix(key, "$") {
				return nil, nil, fmt.Errorf("unknown parameter: %s", key)
			}
			query[key] = parseLiteral(value)
		}
	}
	return query, params, nil
}

// parseLiteral decodes a query value as a JSON literal, falling back to the
// raw string. Quoted strings let clients force string matching for values
// that look numeric.
func parseLiteral(value string) any {
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		return parsed
	}
	return value
}
