package handlers

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/api/middleware"
	"github.com/Togather-Foundation/gatherings/internal/auth"
	"github.com/Togather-Foundation/gatherings/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.PathValue(key))
}

func identity(r *http.Request) *auth.Identity {
	return middleware.IdentityFromContext(r.Context())
}

// decodeJSON reads a single JSON object into dst. Unknown and read-only
// fields are ignored. An empty body leaves dst untouched when allowEmpty is
// set. Decoding failures come back as *validation.Error, oversized bodies as
// *http.MaxBytesError.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || (mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json")) {
			return errUnsupportedMediaType
		}
	}

	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return validation.NewError("Request body is required.")
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return decodeError(err)
	}
	if dec.More() {
		return validation.NewError("Request body must contain a single JSON object.")
	}
	return nil
}

func decodeError(err error) error {
	var (
		maxErr    *http.MaxBytesError
		verr      *validation.Error
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		timeErr   *time.ParseError
	)

	switch {
	case errors.As(err, &maxErr):
		return maxErr
	case errors.As(err, &verr):
		return verr
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			return validation.NewError("Request body must be a JSON object.")
		}
		return validation.FieldError(field, expectedType(typeErr.Type))
	case errors.As(err, &timeErr):
		return validation.NewError("Datetime has wrong format. Use RFC 3339, e.g. 2026-05-01T18:00:00Z.")
	case errors.As(err, &syntaxErr):
		return validation.NewError(fmt.Sprintf("JSON parse error at offset %d.", syntaxErr.Offset))
	case errors.Is(err, io.EOF):
		return validation.NewError("Request body is required.")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return validation.NewError("JSON parse error: unexpected end of input.")
	default:
		return validation.NewError("JSON parse error.")
	}
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func expectedType(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "invalid value"
	}
	if t == reflect.TypeOf(time.Time{}) {
		return "must be an RFC 3339 datetime"
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return "must be a string"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a valid integer is required"
	case reflect.Float32, reflect.Float64:
		return "a valid number is required"
	case reflect.Bool:
		return "must be a valid boolean"
	case reflect.String:
		return "not a valid string"
	default:
		return "invalid value"
	}
}
