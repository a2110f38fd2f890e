package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Keys es el par Ed25519 con el que se firman y verifican los tokens.
type Keys struct {
	KID     string
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// KeysFromSeed decodifica una semilla Ed25519 de 32 bytes en base64 (std o
// url, con o sin padding).
func KeysFromSeed(seedB64 string) (*Keys, error) {
	seedB64 = strings.TrimSpace(seedB64)
	var (
		seed []byte
		err  error
	)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if seed, err = enc.DecodeString(seedB64); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("jwt: signing key is not base64: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("jwt: signing key must be a %d-byte seed, got %d", ed25519.SeedSize, len(seed))
	}
	return newKeys(ed25519.NewKeyFromSeed(seed)), nil
}

// GenerateKeys crea un par nuevo. Para desarrollo y tests: los tokens
// firmados no sobreviven un reinicio.
func GenerateKeys() (*Keys, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return newKeys(priv), nil
}

// EncodeSeed retorna la semilla en base64 std, el formato de la config.
func (k *Keys) EncodeSeed() string {
	return base64.StdEncoding.EncodeToString(k.Private.Seed())
}

func newKeys(priv ed25519.PrivateKey) *Keys {
	pub := priv.Public().(ed25519.PublicKey)
	sum := sha256.Sum256(pub)
	return &Keys{
		KID:     base64.RawURLEncoding.EncodeToString(sum[:8]),
		Private: priv,
		Public:  pub,
	}
}
