package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const passwordSpecials = "@$!%*?&"

type fieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", validatePassword)
	return v
}

// validatePassword requires an upper and a lower case letter, a digit and one of @$!%*?&.
func validatePassword(fl validator.FieldLevel) bool {
	var upper, lower, digit, special bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// On failure it has already written the 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Message: "Input Validation failed.",
			Code:    "ERR_INPUT",
			Details: []fieldDetail{{Message: "invalid request body"}},
		}})
		return false
	}
	return validateStruct(w, v, dst)
}

func validateStruct(w http.ResponseWriter, v *validator.Validate, dst any) bool {
	err := v.Struct(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeErr(w, http.StatusBadRequest, "ERR_INPUT", err.Error())
		return false
	}

	details := make([]fieldDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldDetail{Field: fe.Field(), Message: describe(fe)})
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Message: "Input Validation failed.",
		Code:    "ERR_INPUT",
		Details: details,
	}})
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "password":
		return "Password must contain an uppercase letter, a lowercase letter, a number and one of " + passwordSpecials
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func sanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
