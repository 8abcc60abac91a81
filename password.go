package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const argon2idPrefix = "$argon2id$"

// Argon2Params are the argon2id cost parameters
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// Argon2Hasher hashes passwords with argon2id and encodes them in PHC
// string format. Verify also accepts bcrypt hashes.
type Argon2Hasher struct {
	params Argon2Params
	legacy BcryptHasher
}

// NewArgon2Hasher returns a hasher using the given parameters, or the
// build defaults when params is nil
func NewArgon2Hasher(params *Argon2Params) *Argon2Hasher {
	p := defaultArgon2Params()
	if params != nil {
		p = *params
	}
	return &Argon2Hasher{params: p, legacy: BcryptHasher{Cost: passwordHashCost()}}
}

func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Verify(plaintext, encoded string) bool {
	if isBcryptHash(encoded) {
		return h.legacy.Verify(plaintext, encoded)
	}

	p, salt, key, err := decodeArgon2id(encoded)
	if err != nil {
		return false
	}

	other := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1
}

func decodeArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("invalid argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, err
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, err
	}
	if p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, fmt.Errorf("invalid argon2id parameters")
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, err
	}

	key, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("invalid argon2id key")
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

// BcryptHasher hashes passwords with bcrypt
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrNoEmptyString
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	return string(b), err
}

func (h BcryptHasher) Verify(plaintext, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext)) == nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

var defaultHasher PasswordHasher = NewArgon2Hasher(nil)

// RandomPasswordHash hashes a random password. Useful to equalize the
// work done for unknown identifiers.
func RandomPasswordHash(h PasswordHasher) string {
	if h == nil {
		h = defaultHasher
	}
	out, err := h.Hash(uuid.NewString())
	if err != nil {
		return ""
	}
	return out
}

// dummyHash is computed once per hasher and only read afterwards
type dummyHash struct {
	once sync.Once
	hash string
}

func (d *dummyHash) get(h PasswordHasher) string {
	d.once.Do(func() {
		d.hash = RandomPasswordHash(h)
	})
	return d.hash
}
