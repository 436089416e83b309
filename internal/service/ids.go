package service

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	appErr "github.com/opencarelabs/clinicore/internal/pkg/errors"
)

func newID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func cleanInput(input string, maxChars int) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", appErr.ErrInvalid
	}
	if maxChars > 0 && len(trimmed) > maxChars {
		return "", appErr.ErrInvalid
	}
	return trimmed, nil
}
