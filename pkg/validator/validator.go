package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 \-]{8,18}[0-9]$`)
)

// ValidateStruct validates a struct based on validate tags.
// Supported rules: required, email, phone, cnic, min=N, max=N. Optional
// rules (email, phone, cnic) pass on empty values; combine with required.
// Errors name the field by its json tag when it has one.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.New("not a struct")
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		for _, rule := range strings.Split(tag, ",") {
			if err := validateField(fieldName(field), v.Field(i), strings.TrimSpace(rule)); err != nil {
				return err
			}
		}
	}

	return nil
}

func fieldName(field reflect.StructField) string {
	if name, _, _ := strings.Cut(field.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return field.Name
}

// validateField validates a single field based on a rule
func validateField(name string, value reflect.Value, rule string) error {
	str := ""
	if value.Kind() == reflect.String {
		str = strings.TrimSpace(value.String())
	}

	switch {
	case rule == "required":
		if isZero(value) {
			return fmt.Errorf("%s is required", name)
		}
	case rule == "email":
		if str != "" && ValidateEmail(str) != nil {
			return fmt.Errorf("%s must be a valid email", name)
		}
	case rule == "phone":
		if str != "" && ValidatePhone(str) != nil {
			return fmt.Errorf("%s must be a valid phone number", name)
		}
	case rule == "cnic":
		if str != "" && ValidateCNIC(str) != nil {
			return fmt.Errorf("%s must contain 13 digits", name)
		}
	case strings.HasPrefix(rule, "min="):
		n, _ := strconv.Atoi(strings.TrimPrefix(rule, "min="))
		if value.Kind() == reflect.String && utf8.RuneCountInString(str) < n {
			return fmt.Errorf("%s must be at least %d characters", name, n)
		}
	case strings.HasPrefix(rule, "max="):
		n, _ := strconv.Atoi(strings.TrimPrefix(rule, "max="))
		if value.Kind() == reflect.String && utf8.RuneCountInString(str) > n {
			return fmt.Errorf("%s must be at most %d characters", name, n)
		}
	}
	return nil
}

// isZero checks if a value is zero/empty
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return false
	}
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidatePhone accepts 10 to 15 digit numbers with an optional leading +
// and space or dash separators
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return errors.New("invalid phone number")
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 10 || digits > 15 {
		return errors.New("invalid phone number")
	}
	return nil
}

// ValidateCNIC requires exactly 13 digits, ignoring any separators
func ValidateCNIC(cnic string) error {
	digits := 0
	for _, r := range cnic {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == ' ':
		default:
			return errors.New("invalid national ID")
		}
	}
	if digits != 13 {
		return errors.New("national ID must have 13 digits")
	}
	return nil
}

// ValidatePassword validates a password
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

// SanitizeString sanitizes a string by removing potentially dangerous characters
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

// SanitizeEmail sanitizes an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(SanitizeString(email))
}
