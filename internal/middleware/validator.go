package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/bryanwahyu/automaton-recon/internal/domain/scans"
)

// ErrBadRequest wraps every decoding or validation failure from BindJSON.
var ErrBadRequest = errors.New("bad request")

// Validator holds a validator with english messages and json field names.
type Validator struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *Validator
)

// GetValidator returns the process-wide validator.
func GetValidator() *Validator {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		// hostname syntax shared with the scan service
		_ = v.RegisterValidation("domain", func(fl validator.FieldLevel) bool {
			return scans.ValidDomain(fl.Field().String())
		})
		_ = v.RegisterTranslation("domain", trans,
			func(ut ut.Translator) error {
				return ut.Add("domain", "{0} must be a valid domain name", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T("domain", fe.Field())
				return msg
			},
		)

		vSvc = &Validator{Validate: v, Translator: trans}
	})
	return vSvc
}

// BindJSON decodes a size-limited JSON body into T and validates it.
func BindJSON[T any](r *http.Request, maxBytes int64) (T, error) {
	var zero, dst T
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes))
	if err := dec.Decode(&dst); err != nil {
		return zero, fmt.Errorf("%w: invalid JSON: %v", ErrBadRequest, err)
	}
	if dec.More() {
		return zero, fmt.Errorf("%w: unexpected trailing data", ErrBadRequest)
	}
	if err := GetValidator().Validate.Struct(dst); err != nil {
		return zero, fmt.Errorf("%w: %s", ErrBadRequest, validationMessage(err))
	}
	return dst, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Translate(GetValidator().Translator)
	}
	return err.Error()
}
