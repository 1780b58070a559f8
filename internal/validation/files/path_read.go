package files

import (
	"fmt"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
)

func HasReadAccessToPath(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		panic(fmt.Sprintf("input field name is not a string: %s", fl.FieldName()))
	}

	file, err := os.Open(field.String())
	if err != nil {
		return false
	}
	file.Close()
	return true
}
