package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxFormMemory = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// form is a request payload that can be filled from posted form values.
type form interface {
	fromValues(v url.Values)
	normalize()
}

// bind fills f from a JSON body or from urlencoded/multipart form values.
func bind(r *http.Request, f form) error {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(f); err != nil {
			return err
		}
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return err
		}
		f.fromValues(r.PostForm)
	default:
		if err := r.ParseForm(); err != nil {
			return err
		}
		f.fromValues(r.PostForm)
	}
	f.normalize()
	return nil
}

// validateForm runs the struct tags of f and returns one message per failing field.
func validateForm(f interface{}) map[string]string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "eqfield":
		return "Field must be equal to password."
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	default:
		return "Invalid value."
	}
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "y", "yes", "on", "true", "1":
		return true
	}
	return false
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

func (f *LoginForm) fromValues(v url.Values) {
	f.Username = v.Get("username")
	f.Password = v.Get("password")
	f.RememberMe = checked(v.Get("remember_me"))
}

func (f *LoginForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

// RegistrationForm is the sign-up form.
type RegistrationForm struct {
	Username  string `json:"username" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email,max=120"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

func (f *RegistrationForm) fromValues(v url.Values) {
	f.Username = v.Get("username")
	f.Email = v.Get("email")
	f.Password = v.Get("password")
	f.Password2 = v.Get("password2")
}

func (f *RegistrationForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

// EditProfileForm edits the viewer's public profile.
type EditProfileForm struct {
	Username string `json:"username" validate:"required,max=64"`
	AboutMe  string `json:"about_me" validate:"max=140"`
}

func (f *EditProfileForm) fromValues(v url.Values) {
	f.Username = v.Get("username")
	f.AboutMe = v.Get("about_me")
}

func (f *EditProfileForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.AboutMe = strings.TrimSpace(f.AboutMe)
}

// PostForm submits a new post.
type PostForm struct {
	Post string `json:"post" validate:"required,min=1,max=140"`
}

func (f *PostForm) fromValues(v url.Values) {
	f.Post = v.Get("post")
}

func (f *PostForm) normalize() {
	f.Post = strings.TrimSpace(f.Post)
}
