package validation

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/bigcalc/bigcalc/internal/validation/files"
)

var customValidators = map[string]validator.Func{
	"branch":     isBranch,
	"path_read":  files.HasReadAccessToPath,
	"repository": isRepository,
	"wasm":       files.IsValidWASM,
}

var customTranslations = map[string]string{
	"branch":        "{0} must be a valid git branch name: {1}",
	"dir":           "{0} must be a valid existing directory: {1}",
	"file":          "{0} must be a valid existing file: {1}",
	"hostname_port": "{0} must be a host:port address: {1}",
	"http_url":      "{0} must be a valid HTTP URL: {1}",
	"http_url|eq=":  "{0} must be empty or a valid HTTP URL: {1}",
	"oneof":         "{0} is {1}, must be one of [{2}]",
	"path_read":     "{0} must have read access to path: {1}",
	"repository":    "{0} must be a GitHub repository in owner/name form: {1}",
	"wasm":          "{0} must be a valid WASM file: {1}",
}

type ValidationError struct {
	Field  string
	Detail string
}

type ValidationErrors []ValidationError

func (e *ValidationError) Error() string {
	return e.Detail
}

// Add error interface implementation for ValidationErrors
func (ve ValidationErrors) Error() string {
	msg := "validation error\n"
	for _, err := range ve {
		msg += err.Detail + "\n"
	}
	return msg
}

// Validator wraps a validator instance and a translator.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// NewValidator creates a new Validator with English translations registered.
func NewValidator() (*Validator, error) {
	validate := validator.New()

	// Use the "cli" tag to override the field name if present.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		cliTag := fld.Tag.Get("cli")
		if cliTag != "" {
			return cliTag
		}
		return fld.Name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, found := uni.GetTranslator("en")
	if !found {
		return nil, errors.New("translator not found")
	}

	if err := registerDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	for validatorName, validatorFunc := range customValidators {
		if err := validate.RegisterValidation(validatorName, validatorFunc); err != nil {
			return nil, err
		}
	}

	return &Validator{validate: validate, trans: trans}, nil
}

// Struct validates a struct and returns translated errors if any.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		// Collect translated errors
		var msg string
		for _, e := range verrs {
			msg += e.Translate(v.trans) + "\n"
		}
		// Wrap the original error with the translated message
		return fmt.Errorf("validation error:\n%s: %w", msg, verrs)
	}
	return err
}

// ParseValidationErrors parses a raw validation error and returns a slice of ValidationErrors.
func (v *Validator) ParseValidationErrors(err error) ValidationErrors {
	ves := ValidationErrors{}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			ves = append(ves, ValidationError{
				Field:  verr.StructNamespace(),
				Detail: verr.Translate(v.trans),
			})
		}
	}

	return ves
}

func registerDefaultTranslations(v *validator.Validate, trans ut.Translator) error {
	// Register default translations for all built-in tags
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return fmt.Errorf("failed to register default translations: %w", err)
	}

	for tag, message := range customTranslations {
		if err := v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, message, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(tag, fe.Field(), fmt.Sprintf("%v", fe.Value()), fe.Param())
				return t
			},
		); err != nil {
			return fmt.Errorf("failed to register custom translation for %s: %w", tag, err)
		}
	}

	return nil
}
