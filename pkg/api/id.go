package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"time"
)

const (
	membershipSuffixLength = 4
	membershipClockDigits  = 8
	charset                = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultMembershipPrefix is used when no prefix is configured.
	DefaultMembershipPrefix = "AGR"
)

var membershipNoPattern = regexp.MustCompile(`^[A-Z]{1,8}[0-9]{8}[A-Z0-9]{4}$`)

// NewMembershipNo generates a membership number: the prefix, the last 8
// digits of the unix-millisecond clock, and 4 cryptographically random
// uppercase alphanumeric characters.
func NewMembershipNo(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultMembershipPrefix
	}
	clock := strconv.FormatInt(now.UnixMilli(), 10)
	if len(clock) > membershipClockDigits {
		clock = clock[len(clock)-membershipClockDigits:]
	}
	for len(clock) < membershipClockDigits {
		clock = "0" + clock
	}
	return prefix + clock + randomAlphanumeric(membershipSuffixLength)
}

// ValidateMembershipNo checks whether the given string has the shape of a
// generated membership number.
func ValidateMembershipNo(no string) bool {
	return membershipNoPattern.MatchString(no)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
