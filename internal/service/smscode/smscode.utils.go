package smscode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const codeDigits = 6

func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

func formatPurpose(purpose string) string {
	p := strings.ReplaceAll(purpose, "_", " ")
	return cases.Title(language.English).String(p)
}

func (s *Service) formatCodeMessage(purpose, code string) string {
	ttlMinutes := int(s.ttl.Minutes())
	return fmt.Sprintf(
		"Your verification code for %s is %s. It is valid for %d minutes.",
		formatPurpose(purpose), code, ttlMinutes,
	)
}
