package orderapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/Apurer/bakery-orders/internal/shared/errors"
)

var (
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("rejected as invalid")
)

// APIError is a non-success response. Problem holds the decoded problem document, or a
// synthesized one when the body was not application/problem+json.
type APIError struct {
	StatusCode int
	Problem    apierrors.Problem
}

func (e *APIError) Error() string {
	return fmt.Sprintf("orders API %d: %s", e.StatusCode, e.Problem.Error())
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// Violations returns the rule breaches reported by a validation problem.
func (e *APIError) Violations() []string {
	raw, ok := e.Problem.Extensions["violations"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if len(body) > 0 && json.Unmarshal(body, &apiErr.Problem) == nil && apiErr.Problem.Title != "" {
		return apiErr
	}
	apiErr.Problem = apierrors.Problem{
		Status: resp.StatusCode,
		Title:  http.StatusText(resp.StatusCode),
		Detail: strings.TrimSpace(string(body)),
	}
	return apiErr
}
