package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const ContentTypeProblemJSON = "application/problem+json"

// Mapper translates a domain error into a problem; ok is false when it does not apply.
type Mapper func(err error) (problem Problem, ok bool)

// Responder writes problems to gin responses, consulting its mappers in order.
type Responder struct {
	baseURI string
	mappers []Mapper
}

// NewResponder prefixes relative problem types with baseURI when it is set.
func NewResponder(baseURI string, mappers ...Mapper) *Responder {
	return &Responder{baseURI: baseURI, mappers: mappers}
}

func (r *Responder) AddMapper(m Mapper) {
	r.mappers = append(r.mappers, m)
}

func (r *Responder) Respond(c *gin.Context, problem Problem) {
	if r.baseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.baseURI + problem.Type
	}
	if problem.Instance == "" && c.Request != nil {
		problem.Instance = c.Request.URL.Path
	}
	body, err := problem.MarshalJSON()
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Abort()
	c.Data(problem.Status, ContentTypeProblemJSON, body)
}

// RespondError maps err and responds. Unmapped errors become 500 without leaking detail.
func (r *Responder) RespondError(c *gin.Context, err error) {
	c.Error(err) //nolint:errcheck
	r.Respond(c, r.Problem(err))
}

// Problem resolves err through the mappers.
func (r *Responder) Problem(err error) Problem {
	var problem Problem
	if errors.As(err, &problem) {
		return problem
	}
	for _, m := range r.mappers {
		if p, ok := m(err); ok {
			return p
		}
	}
	return ErrInternal
}

func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

func (r *Responder) Unauthorized(c *gin.Context, detail string) {
	r.Respond(c, ErrUnauthorized.WithDetail(detail))
}

func (r *Responder) NotFound(c *gin.Context, resource string, id any) {
	r.Respond(c, NewNotFoundProblem(resource, id))
}

// StatusOf reports the HTTP status a problem-carrying error would produce.
func StatusOf(err error) int {
	var problem Problem
	if errors.As(err, &problem) {
		return problem.Status
	}
	return http.StatusInternalServerError
}
