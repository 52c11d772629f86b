package totp

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"image/png"
	"math/big"

	"github.com/pquerna/otp"
	"golang.org/x/crypto/bcrypt"
)

const backupCodeDigits = 8

// generateBackupCodes returns n random 8-digit codes in plaintext and
// bcrypt-hashed form. Only the hashes are ever stored.
func generateBackupCodes(n int) ([]string, []string, error) {
	plainCodes := make([]string, 0, n)
	hashes := make([]string, 0, n)

	for i := 0; i < n; i++ {
		code, err := randomDigits(backupCodeDigits)
		if err != nil {
			return nil, nil, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, err
		}

		plainCodes = append(plainCodes, code)
		hashes = append(hashes, string(hash))
	}

	return plainCodes, hashes, nil
}

func randomDigits(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// qrDataURL renders the provisioning URI as a PNG data URL for direct
// embedding in an <img> tag.
func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
