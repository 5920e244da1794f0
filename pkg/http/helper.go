package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	apperrors "library/pkg/errors"
	"library/pkg/model"
)

// ExtractPage reads limit and offset from the query string and clamps them.
func ExtractPage(r *http.Request) (model.Page, error) {
	query := r.URL.Query()

	var page model.Page
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return model.Page{}, apperrors.InvalidArgument("invalid limit parameter: "+s, map[string]any{"limit": s})
		}
		page.Limit = v
	}
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return model.Page{}, apperrors.InvalidArgument("invalid offset parameter: "+s, map[string]any{"offset": s})
		}
		page.Offset = v
	}

	return page.Normalize(), nil
}

// ParseID parses a path identifier. Range checks are left to the caller.
func ParseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidArgument(name+" must be an integer", map[string]any{name: raw})
	}
	return id, nil
}

// DecodeJSON decodes the request body into dest. Unknown fields are ignored.
func DecodeJSON(r *http.Request, dest any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.InvalidArgument("Request body too large", map[string]any{"limit": maxErr.Limit})
		}
		return apperrors.InvalidArgument("Failed to read request body", nil)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return apperrors.InvalidArgument("Invalid request body", map[string]any{"error": err.Error()})
	}
	return nil
}
