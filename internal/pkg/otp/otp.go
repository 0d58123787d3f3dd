package otp

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strconv"
)

// ErrInvalidDigits is returned when the requested width is outside 4..9.
var ErrInvalidDigits = errors.New("otp: digits must be between 4 and 9")

// Generator produces one-time codes.
type Generator interface {
	Generate() (string, error)
}

// Numeric produces uniformly random codes in [10^(n-1), 10^n - 1].
type Numeric struct {
	min    int64
	span   *big.Int
	random io.Reader
}

// NewNumeric returns a generator of codes with the given number of digits.
func NewNumeric(digits int) (*Numeric, error) {
	return newNumeric(digits, rand.Reader)
}

func newNumeric(digits int, random io.Reader) (*Numeric, error) {
	if digits < 4 || digits > 9 {
		return nil, ErrInvalidDigits
	}

	lo := int64(1)
	for range digits - 1 {
		lo *= 10
	}

	return &Numeric{
		min:    lo,
		span:   big.NewInt(lo*10 - lo),
		random: random,
	}, nil
}

// Generate returns a new code. It fails only if the random source fails.
func (n *Numeric) Generate() (string, error) {
	v, err := rand.Int(n.random, n.span)
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(n.min+v.Int64(), 10), nil
}
