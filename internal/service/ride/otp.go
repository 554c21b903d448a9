package ride

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var otpMax = big.NewInt(10000)

// GenerateOTP returns a random 4 digit code, zero padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
