package handler

// REQUEST PAYLOADS:
// Each payload implements render.Binder. render.Bind decodes the JSON body
// and then calls Bind, which runs the struct's validate tags: fields
// present, non-blank where required, well-formed email. Business rules
// (length limits, uniqueness) stay in the service layer.
//
// Fields are pointers so a missing key can be told apart from "".

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sakif/articles-api/internal/apperror"
	"github.com/sakif/articles-api/internal/service"
	"github.com/sakif/articles-api/internal/validator"
)

// validate is shared by every payload; it caches struct metadata.
var validate = validator.New()

type createArticleRequest struct {
	Title   *string `json:"title" validate:"required,notblank"`
	Article *string `json:"article" validate:"required,notblank"`
}

func (a *createArticleRequest) Bind(r *http.Request) error {
	return validate.Struct(a)
}

// updateArticleRequest leaves both fields optional; a missing or blank field
// keeps the stored value.
type updateArticleRequest struct {
	Title   *string `json:"title"`
	Article *string `json:"article"`
}

func (a *updateArticleRequest) Bind(r *http.Request) error {
	return nil
}

func (a *updateArticleRequest) values() (title, body string) {
	return deref(a.Title), deref(a.Article)
}

type commentRequest struct {
	Comment *string `json:"comment" validate:"required,notblank"`
}

func (c *commentRequest) Bind(r *http.Request) error {
	return validate.Struct(c)
}

// ValidationMessage answers every comment failure with the same message.
func (c *commentRequest) ValidationMessage(field, tag string) string {
	if field == "comment" {
		return service.MsgNothingWritten
	}
	return ""
}

type flagRequest struct {
	Reason string `json:"reason"`
}

func (f *flagRequest) Bind(r *http.Request) error {
	return nil
}

type createUserRequest struct {
	FirstName *string `json:"firstName" validate:"required,notblank"`
	LastName  *string `json:"lastName" validate:"required,notblank"`
	Email     *string `json:"email" validate:"required,email"`
	Password  *string `json:"password" validate:"required,notblank"`
	IsAdmin   bool    `json:"isAdmin"`
}

func (u *createUserRequest) Bind(r *http.Request) error {
	return validate.Struct(u)
}

func (u *createUserRequest) newUser() service.NewUser {
	return service.NewUser{
		FirstName: deref(u.FirstName),
		LastName:  deref(u.LastName),
		Email:     deref(u.Email),
		Password:  deref(u.Password),
		IsAdmin:   u.IsAdmin,
	}
}

type signInRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

func (s *signInRequest) Bind(r *http.Request) error {
	return validate.Struct(s)
}

// ValidationMessage keeps the sign-in messages to "X is required".
func (s *signInRequest) ValidationMessage(field, tag string) string {
	return field + " is required"
}

// bind decodes r into v and runs its Bind. Decoder failures become
// validation errors naming the field and what was wrong with it. With
// optional set, an empty body binds as the zero value.
func bind(r *http.Request, v render.Binder, optional bool) error {
	err := render.Bind(r, v)
	if err == nil {
		return nil
	}
	if optional && errors.Is(err, io.EOF) {
		return v.Bind(r)
	}

	var (
		appErr    *apperror.AppError
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			return apperror.ValidationFailed("body", "request body must be a JSON object")
		}
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be a %s", field, jsonKind(typeErr.Type.Kind().String())))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperror.ValidationFailed("body", "request body is not valid JSON")
	case errors.Is(err, io.EOF):
		return apperror.ValidationFailed("body", "request body is required")
	case errors.As(err, &maxErr):
		return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or less", maxErr.Limit))
	}
	return apperror.ValidationFailed("body", err.Error())
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "struct", "map":
		return "object"
	case "slice", "array":
		return "array"
	}
	return "number"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
