package config

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/ameistad/eydeploy/internal/constants"
)

// tokenSealer encrypts stored tokens to an age X25519 identity.
type tokenSealer struct {
	identity *age.X25519Identity
}

// sealerFromEnv returns nil without error when EY_ENCRYPTION_KEY is unset.
func sealerFromEnv() (*tokenSealer, error) {
	raw := os.Getenv(constants.EnvVarAgeIdentity)
	if raw == "" {
		return nil, nil
	}
	identity, err := age.ParseX25519Identity(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid age identity in %s: %w", constants.EnvVarAgeIdentity, err)
	}
	return &tokenSealer{identity: identity}, nil
}

// seal returns the base64 encoded age ciphertext of token.
func (s *tokenSealer) seal(token string) (string, error) {
	var ciphertext bytes.Buffer
	w, err := age.Encrypt(&ciphertext, s.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("token encryption: %w", err)
	}
	if _, err := io.WriteString(w, token); err != nil {
		return "", fmt.Errorf("token encryption: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("token encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

func (s *tokenSealer) open(sealed string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("stored token is not base64: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), s.identity)
	if err != nil {
		return "", err
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted token: %w", err)
	}
	return string(plain), nil
}
