package config

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/MeKo-Tech/aprilgo/internal/family"
)

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

func validate() *validator.Validate {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		vTrans, _ = uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// Report keys the way they appear in aprilgo.yaml.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("mapstructure")
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, vTrans)

		_ = v.RegisterValidation("tag_family", func(fl validator.FieldLevel) bool {
			_, err := family.Resolve(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterTranslation("tag_family", vTrans,
			func(t ut.Translator) error {
				return t.Add("tag_family", "{0} must be one of the compiled tag families ({1})", true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T("tag_family", fe.Field(), strings.Join(family.Supported(), ", "))
				return msg
			},
		)

		vInst = v
	})
	return vInst
}

// describe flattens validator errors into a single readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(vTrans))
	}
	return errors.New(strings.Join(msgs, "; "))
}
