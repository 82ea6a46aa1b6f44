// Package bind decodes and validates JSON request bodies.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/pkg/validate"
)

// ErrEmptyBody is returned for a request without a JSON document.
var ErrEmptyBody = errors.New("request body is empty")

// JSON decodes a single JSON document from r into dest and validates it.
// A malformed or oversized body yields err; failed validation rules yield
// a field map and a nil err. Bodies are capped at MAX_BODY_BYTES.
func JSON(r *http.Request, dest any) (map[string]string, error) {
	limit := int64(config.Int("MAX_BODY_BYTES", 4<<20))
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit))

	if err := dec.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil, ErrEmptyBody
		case errors.As(err, &tooLarge):
			return nil, fmt.Errorf("request body too large (max %d bytes)", tooLarge.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON: trailing data after document")
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
