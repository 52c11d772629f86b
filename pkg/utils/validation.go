package utils

import "regexp"

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	e164Regex  = regexp.MustCompile(`^\+[1-9]\d{0,14}$`)
)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePhone checks if a phone number is in E.164 format:
// a leading +, then 1 to 15 digits, first digit 1-9.
func ValidatePhone(phone string) bool {
	return e164Regex.MatchString(phone)
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) bool {
	return len(password) >= 8 && len(password) <= 100
}
