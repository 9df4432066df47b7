package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/practice-api/internal/model"
)

// RegisterValidators installs the custom binding tags and reports fields by
// their JSON names. Call once before serving.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v.RegisterValidation("appointment_kind", func(fl validator.FieldLevel) bool {
		switch k := fl.Field().Interface().(type) {
		case model.AppointmentKind:
			return k.Valid()
		case string:
			return model.AppointmentKind(k).Valid()
		default:
			return false
		}
	})
}
