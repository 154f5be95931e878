package uniuri

import (
	"crypto/rand"
)

// StdLen gives about 95 bits of entropy with StdChars.
const StdLen = 16

// StdChars are the characters used by New and NewLen.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

// New returns a random string of StdLen characters.
func New() string {
	return NewLen(StdLen)
}

// NewLen returns a random string of length characters from StdChars.
func NewLen(length int) string {
	return string(NewLenChars(length, StdChars))
}

// NewLenChars returns length random characters from chars, which must hold 2 to 256 bytes.
// Bytes at or above the largest multiple of len(chars) are rejected so that every
// character is equally likely.
func NewLenChars(length int, chars []byte) []byte {
	if length <= 0 {
		return nil
	}

	n := len(chars)
	if n < 2 || n > 256 {
		panic("uniuri: charset must hold 2 to 256 characters")
	}

	limit := 256 - (256 % n)
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2+1)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: crypto/rand failed: " + err.Error())
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return out
}
