// utils/referral.go
package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// partnerCodePrefix distinguishes partner codes from anything else a user
// might paste into the referral field.
const partnerCodePrefix = "PTR"

// GeneratePartnerReferralCode generates a referral code for a new partner.
// Format: PTR-{RANDOM} where RANDOM is 6 alphanumeric characters.
// Example: PTR-ABC123
func GeneratePartnerReferralCode() (string, error) {
	// 4 random bytes give 6 characters in unpadded base32
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = randomStr[:6]

	randomStr = strings.ToUpper(randomStr)
	randomStr = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, randomStr)

	if len(randomStr) < 6 {
		randomStr = randomStr + strings.Repeat("0", 6-len(randomStr))
	}

	return partnerCodePrefix + "-" + randomStr, nil
}
