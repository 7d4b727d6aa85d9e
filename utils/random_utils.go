package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet used for bracelet pairing codes. Ambiguous characters
// (0/O, 1/I/L) are excluded so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RandomCode generates a random uppercase code of the given length
func RandomCode(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("generate random code failed")
	}

	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String()
}

// RandomBraceletCode generates a factory-style bracelet code, e.g. LG-XK7M-P2QA
func RandomBraceletCode() string {
	return fmt.Sprintf("LG-%s-%s", RandomCode(4), RandomCode(4))
}
