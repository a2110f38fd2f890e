// Package password hashea y verifica secretos de cuenta.
//
// Los hashes son autodescriptivos (PHC para argon2id, modular crypt para
// bcrypt), así Compare acepta ambos formatos sin importar cuál esté
// configurado para hashear. Cambiar de algoritmo no invalida cuentas.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashea y compara secretos.
type Hasher interface {
	Hash(plain string) (string, error)
	// Compare retorna true si plain corresponde a hash.
	Compare(hash, plain string) bool
}

var ErrEmpty = errors.New("password: empty secret")

// New crea el hasher configurado: "argon2id" (default) o "bcrypt".
func New(algo string, bcryptCost int) (Hasher, error) {
	switch strings.ToLower(algo) {
	case "", "argon2id":
		return Argon2id{Params: DefaultArgon2}, nil
	case "bcrypt":
		if bcryptCost == 0 {
			bcryptCost = bcrypt.DefaultCost
		}
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("password: bcrypt cost %d out of range", bcryptCost)
		}
		return Bcrypt{Cost: bcryptCost}, nil
	}
	return nil, fmt.Errorf("password: unknown algorithm %q", algo)
}

// Compare verifica plain contra un hash de cualquiera de los formatos soportados.
func Compare(hash, plain string) bool {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return verifyArgon2id(hash, plain)
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	return false
}

// Argon2Params son los parámetros de argon2id.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var DefaultArgon2 = Argon2Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// Argon2id hashea con argon2id en formato PHC:
// $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<dkB64>
type Argon2id struct {
	Params Argon2Params
}

func (a Argon2id) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	p := a.Params
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

func (Argon2id) Compare(hash, plain string) bool { return Compare(hash, plain) }

func verifyArgon2id(phc, plain string) bool {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, dk
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return false
	}
	var m, t uint32
	var p uint8
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || n != 3 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(plain), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Bcrypt hashea con bcrypt.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), b.Cost)
	if err != nil {
		return "", fmt.Errorf("password: bcrypt: %w", err)
	}
	return string(h), nil
}

func (Bcrypt) Compare(hash, plain string) bool { return Compare(hash, plain) }
