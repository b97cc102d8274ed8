package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/middleware"
	"github.com/memalihaider/umttechverse02-sub001/internal/service"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSONResponse sends a JSON response and ensures slices are never null.
// Frontends iterate over list fields without checking for null.
func JSONResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(normalizeSlices(data))
}

var (
	timeType = reflect.TypeOf(time.Time{})
	rawType  = reflect.TypeOf(json.RawMessage{})
)

// normalizeSlices recursively ensures all nil slices become empty slices
func normalizeSlices(data interface{}) interface{} {
	if data == nil {
		return data
	}

	v := reflect.ValueOf(data)

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() || v.Elem().Type() == timeType {
			return data
		}
		elem := v.Elem()
		result := reflect.New(elem.Type())
		result.Elem().Set(reflect.ValueOf(normalizeSlices(elem.Interface())))
		return result.Interface()

	case reflect.Slice:
		// raw JSON and byte slices are values, not lists
		if v.Type() == rawType || v.Type().Elem().Kind() == reflect.Uint8 {
			return data
		}
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0).Interface()
		}
		result := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			if elem := normalizeSlices(v.Index(i).Interface()); elem != nil {
				result.Index(i).Set(reflect.ValueOf(elem))
			}
		}
		return result.Interface()

	case reflect.Struct:
		if v.Type() == timeType {
			return data
		}
		result := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() || !result.Field(i).CanSet() {
				continue
			}
			switch field.Kind() {
			case reflect.Slice, reflect.Ptr, reflect.Struct:
				if field.Kind() == reflect.Ptr && field.IsNil() {
					continue
				}
				result.Field(i).Set(reflect.ValueOf(normalizeSlices(field.Interface())).Convert(field.Type()))
			default:
				result.Field(i).Set(field)
			}
		}
		return result.Interface()
	}

	return data
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(normalizeSlices(payload)); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// statusFor maps an application error kind to an HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidCredentials:
		return http.StatusUnauthorized
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case apperr.KindGenerationExhausted:
		return http.StatusServiceUnavailable
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err as a JSON error. Internal faults are
// logged and hidden behind a generic message.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, ErrMsgInternal)
		return
	}

	status := statusFor(e.Kind)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondWithJSON(w, status, ErrorResponse{Error: e.Message, Code: e.Code})
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown trailing data
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body must be at most %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("%s", ErrMsgInvalidRequestBody)
	}
	if dec.More() {
		return apperr.Validation("%s", ErrMsgInvalidRequestBody)
	}
	return nil
}

// actorFromRequest identifies the admin behind an authenticated request
func actorFromRequest(r *http.Request) service.Actor {
	actor := service.Actor{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if claims, ok := middleware.GetClaims(r); ok {
		actor.ID = claims.AdminID
		actor.Email = claims.Email
		actor.Role = claims.Role
	}
	return actor
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", key)
	}
	return n, nil
}
