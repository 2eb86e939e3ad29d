package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const requiredText = "this field is required"

var identifierRegex = regexp.MustCompile(`^\w+$`)

// rule is a validation tag with its message. A nil fn means the tag is builtin and only its text is replaced.
type rule struct {
	tag  string
	text string
	fn   validator.Func
}

var rules = []rule{
	{tag: "alphanum_", text: "only alphanumeric characters and underscores are allowed", fn: isIdentifier},
	{tag: "notblank", text: "this field cannot be blank", fn: isNotBlank},
	{tag: "required", text: requiredText},
	{tag: "required_with", text: requiredText},
	{tag: "datetime", text: "enter a valid date (YYYY-MM-DD)"},
}

// NewValidator returns a validator and its english translator with the shared rules registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators registers the shared rules on validate.
// Field errors are keyed by the json name of the field.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(jsonFieldName)

	for _, r := range rules {
		if r.fn == nil {
			RegisterCustomTranslation(validate, translator, r.tag, r.text, true)
			continue
		}
		_ = validate.RegisterValidation(r.tag, r.fn)
		RegisterCustomTranslation(validate, translator, r.tag, r.text)
	}
}

// RegisterCustomTranslation sets the message reported for tag; pass override to replace a builtin one.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	replace := len(override) > 0 && override[0]
	register := func(t ut.Translator) error { return t.Add(tag, text, replace) }
	translate := func(t ut.Translator, fe validator.FieldError) string {
		msg, _ := t.T(tag, fe.Field())
		return msg
	}
	_ = validate.RegisterTranslation(tag, translator, register, translate)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func isIdentifier(fl validator.FieldLevel) bool {
	return identifierRegex.MatchString(fl.Field().String())
}

func isNotBlank(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && strings.TrimSpace(s) != ""
}
