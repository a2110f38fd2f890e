// Package token genera valores opacos y sus huellas.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Opaque genera un token aleatorio de nBytes (base64url sin padding).
// Se usa como valor anti-CSRF que acompaña al par de tokens.
func Opaque(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Fingerprint devuelve sha256(s) en base64url sin padding. La sesión guarda
// la huella del refresh token, nunca el token.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Equal compara en tiempo constante.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
