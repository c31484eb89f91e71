package utils

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a fresh identifier with a millisecond timestamp prefix,
// so lexical order matches creation order. The random tail keeps IDs
// from colliding within one millisecond.
func NewID() (string, error) {
	tail, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%011x%s", time.Now().UnixMilli(), tail), nil
}
