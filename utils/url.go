package utils

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const upperHex = "0123456789ABCDEF"

// ErrMalformedURI is returned for input that is not valid UTF-8
var ErrMalformedURI = errors.New("malformed URI sequence")

// EncodeURIComponent percent-encodes s the way JavaScript's encodeURIComponent does:
// letters, digits and - _ . ! ~ * ' ( ) are kept, every other byte becomes %XX.
// Invalid UTF-8 is rejected with ErrMalformedURI, as JavaScript throws on lone surrogates.
func EncodeURIComponent(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrMalformedURI
	}
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String(), nil
}

func isURIUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
