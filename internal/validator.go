package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/validation"
)

const (
	// MaxPaginationLimit is the largest page size any Mastodon endpoint accepts.
	MaxPaginationLimit = 80

	// User agent constraints
	maxUserAgentLength = 256
)

// Validator checks endpoint parameters and configuration before any request is sent.
type Validator struct {
	validate *validator.Validate
}

// customRules are the Mastodon specific validation tags.
var customRules = map[string]validator.Func{
	"acct": func(fl validator.FieldLevel) bool {
		return validation.IsValidAcct(fl.Field().String())
	},
	"visibility": func(fl validator.FieldLevel) bool {
		return validation.IsValidVisibility(fl.Field().String())
	},
}

// NewValidator creates a new Validator with the Mastodon specific rules registered. It panics
// if a rule cannot be registered, which only happens when a tag name is malformed.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, fn := range customRules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %q validation: %v", tag, err))
		}
	}
	return &Validator{validate: v}
}

// Struct validates tagged fields of params and reports the first failure as an
// IllegalArgumentError.
func (v *Validator) Struct(params any) error {
	err := v.validate.Struct(params)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return &pkgerrs.IllegalArgumentError{Field: fieldName(fe), Message: ruleMessage(fe)}
	}
	return &pkgerrs.IllegalArgumentError{Message: err.Error()}
}

// Config validates a configuration struct, reporting the first failure as a ConfigError
// naming the struct field.
func (v *Validator) Config(cfg any) error {
	err := v.validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return &pkgerrs.ConfigError{Field: fe.Field(), Message: ruleMessage(fe)}
	}
	return &pkgerrs.ConfigError{Message: err.Error()}
}

// Var validates a single value against tag and reports a failure as an IllegalArgumentError
// for field.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return &pkgerrs.IllegalArgumentError{Field: field, Message: ruleMessage(validationErrors[0])}
	}
	return &pkgerrs.IllegalArgumentError{Field: field, Message: err.Error()}
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "excluded_with":
		return fmt.Sprintf("cannot be combined with %s", strings.ToLower(fe.Param()))
	case "required_without":
		return fmt.Sprintf("is required unless %s is set", strings.ToLower(fe.Param()))
	case "acct":
		return fmt.Sprintf("%q is not a valid account handle", fe.Value())
	case "visibility":
		return fmt.Sprintf("%q is not a valid visibility", fe.Value())
	case "url", "http_url":
		return "must be an absolute URL"
	}
	return fmt.Sprintf("failed rule %q", fe.Tag())
}

// ValidateUserAgent checks if a user agent string is valid.
func (v *Validator) ValidateUserAgent(userAgent string) error {
	if len(userAgent) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: fmt.Sprintf("user agent cannot exceed %d characters", maxUserAgentLength)}
	}
	for _, ch := range userAgent {
		if ch < 32 || ch == 127 {
			return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent contains control characters"}
		}
	}
	return nil
}

// ValidateID checks that an id parameter is present.
func (v *Validator) ValidateID(field string, id string) error {
	if strings.TrimSpace(id) == "" {
		return &pkgerrs.IllegalArgumentError{Field: field, Message: "id cannot be empty"}
	}
	if !validation.IsValidID(id) {
		return &pkgerrs.IllegalArgumentError{Field: field, Message: fmt.Sprintf("id %q contains path characters", id)}
	}
	return nil
}

// ValidateHashtag checks a hashtag name given without the leading #.
func (v *Validator) ValidateHashtag(field string, tag string) error {
	switch {
	case strings.TrimSpace(tag) == "":
		return &pkgerrs.IllegalArgumentError{Field: field, Message: "hashtag cannot be empty"}
	case strings.HasPrefix(tag, "#"):
		return &pkgerrs.IllegalArgumentError{Field: field, Message: "hashtag must not start with #"}
	case !validation.IsValidHashtag(tag):
		return &pkgerrs.IllegalArgumentError{Field: field, Message: fmt.Sprintf("%q is not a valid hashtag", tag)}
	}
	return nil
}
