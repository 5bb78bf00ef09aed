// Package errors renders failures as RFC 7807 problem documents.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	TypeValidation   = "/problems/validation-error"
	TypeNotFound     = "/problems/not-found"
	TypeConflict     = "/problems/conflict"
	TypeUnauthorized = "/problems/unauthorized"
	TypeBadRequest   = "/problems/bad-request"
	TypeInternal     = "/problems/internal-error"
	TypeUnavailable  = "/problems/service-unavailable"
)

// Problem is an RFC 7807 problem document. Extension members are written at the
// top level of the JSON object next to the standard members.
type Problem struct {
	Type       string
	Title      string
	Status     int
	Detail     string
	Instance   string
	Extensions map[string]any
}

func (p Problem) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

func (p Problem) WithDetail(detail string) Problem {
	p.Detail = detail
	return p
}

func (p Problem) WithInstance(instance string) Problem {
	p.Instance = instance
	return p
}

// WithExtension returns a copy carrying key; standard member names are ignored.
func (p Problem) WithExtension(key string, value any) Problem {
	if reserved(key) {
		return p
	}
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

func (p Problem) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(p.Extensions)+5)
	for k, v := range p.Extensions {
		doc[k] = v
	}
	doc["type"] = p.Type
	doc["title"] = p.Title
	doc["status"] = p.Status
	if p.Detail != "" {
		doc["detail"] = p.Detail
	}
	if p.Instance != "" {
		doc["instance"] = p.Instance
	}
	return json.Marshal(doc)
}

func (p *Problem) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*p = Problem{}
	fields := map[string]any{"type": &p.Type, "title": &p.Title, "status": &p.Status, "detail": &p.Detail, "instance": &p.Instance}
	for key, raw := range doc {
		if dst, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("problem member %q: %w", key, err)
			}
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if p.Extensions == nil {
			p.Extensions = map[string]any{}
		}
		p.Extensions[key] = v
	}
	return nil
}

func reserved(key string) bool {
	switch key {
	case "type", "title", "status", "detail", "instance":
		return true
	}
	return false
}

var (
	ErrNotFound     = Problem{Type: TypeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound}
	ErrValidation   = Problem{Type: TypeValidation, Title: "Validation Error", Status: http.StatusBadRequest}
	ErrBadRequest   = Problem{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest}
	ErrConflict     = Problem{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict}
	ErrUnauthorized = Problem{Type: TypeUnauthorized, Title: "Unauthorized", Status: http.StatusUnauthorized}
	ErrInternal     = Problem{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}
	ErrUnavailable  = Problem{Type: TypeUnavailable, Title: "Service Unavailable", Status: http.StatusServiceUnavailable}
)

// NewValidationProblem lists every broken rule under "violations".
func NewValidationProblem(detail string, violations ...string) Problem {
	if violations == nil {
		violations = []string{}
	}
	return ErrValidation.WithDetail(detail).WithExtension("violations", violations)
}

func NewNotFoundProblem(resource string, id any) Problem {
	return ErrNotFound.
		WithDetail(fmt.Sprintf("%s %v not found", resource, id)).
		WithExtension("resource", resource).
		WithExtension("id", id)
}
