package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	eduEmailTag  = "edu_email"
	eduEmailText = "an institutional student email is required"

	requiredTag  = "required"
	requiredText = "this field is required"
)

func init() {
	enLocale := en.New()
	Translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")

	Validate = validator.New()
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = Validate.RegisterValidation(eduEmailTag, eduEmailValidation)
	RegisterCustomTranslation(Validate, Translator, eduEmailTag, eduEmailText)

	RegisterCustomTranslation(Validate, Translator, requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// eduEmailValidation only allows emails under the configured institutional
// student domain suffix.
func eduEmailValidation(fl validator.FieldLevel) bool {
	parts := strings.SplitN(strings.ToLower(fl.Field().String()), "@", 2)
	if len(parts) < 2 {
		return false
	}
	suffix := strings.ToLower(Conf.StudentEmailSuffix)
	return parts[1] == suffix || strings.HasSuffix(parts[1], "."+suffix)
}
