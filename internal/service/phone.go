package service

import (
	"regexp"
	"strings"

	"inventory-service/internal/apperr"
)

var phoneSymbolPattern = regexp.MustCompile("[@_!#$%^&*()<>?/\\\\|}{~`:;,.\\-]")

// sanitizePhoneNumber normalizes a Nigerian phone number to the +234
// international form.
func sanitizePhoneNumber(value string) (string, error) {
	if phoneSymbolPattern.MatchString(value) {
		return "", apperr.Validation("invalid phone number")
	}

	switch {
	case strings.HasPrefix(value, "+") && len(value) == 14:
		return value, nil
	case len(value) == 10:
		return "+234" + value, nil
	case len(value) == 11 && strings.HasPrefix(value, "0"):
		return "+234" + value[1:], nil
	case len(value) == 13 && strings.HasPrefix(value, "234"):
		return "+" + value, nil
	}
	return "", apperr.Validation("number %s is not a valid nigerian number", value)
}
