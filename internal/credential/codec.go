package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
)

// Sentinel errors. Use errors.Is(err, credential.ErrInvalidToken) to check.
var (
	ErrInvalidKey   = errors.New("credential: invalid fernet key")
	ErrInvalidToken = errors.New("credential: invalid token")
)

// GenerateKey returns a new random Fernet key in url-safe base64.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("credential: generating key: %w", err)
	}

	return k.Encode(), nil
}

// Encrypt seals a bundle into a Fernet token using key.
func Encrypt(b Bundle, key string) (string, error) {
	return Codec{Key: key}.Encrypt(b)
}

// Decrypt opens a Fernet token produced by Encrypt with the same key.
// Tokens never expire; use Codec with a TTL to bound their age.
func Decrypt(token, key string) (Bundle, error) {
	return Codec{Key: key}.Decrypt(token)
}

// Codec seals and opens bundles with a single Fernet key.
// TTL bounds token age on Decrypt; zero accepts tokens of any age.
type Codec struct {
	Key string
	TTL time.Duration
}

func (c Codec) key() (*fernet.Key, error) {
	k, err := fernet.DecodeKey(strings.TrimSpace(c.Key))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return k, nil
}

// Encrypt serializes b to JSON and seals it.
func (c Codec) Encrypt(b Bundle) (string, error) {
	k, err := c.key()
	if err != nil {
		return "", err
	}

	plaintext, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("credential: encoding bundle: %w", err)
	}

	tok, err := fernet.EncryptAndSign(plaintext, k)
	if err != nil {
		return "", fmt.Errorf("credential: sealing bundle: %w", err)
	}

	return string(tok), nil
}

// Decrypt verifies and opens token. A wrong key, a tampered or expired
// token, and a payload that is not a JSON object all yield ErrInvalidToken.
func (c Codec) Decrypt(token string) (Bundle, error) {
	k, err := c.key()
	if err != nil {
		return Bundle{}, err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Bundle{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	plaintext := fernet.VerifyAndDecrypt([]byte(token), c.TTL, []*fernet.Key{k})
	if plaintext == nil {
		return Bundle{}, fmt.Errorf("%w: verification failed", ErrInvalidToken)
	}

	var b Bundle
	if err := json.Unmarshal(plaintext, &b); err != nil {
		return Bundle{}, fmt.Errorf("%w: payload: %w", ErrInvalidToken, err)
	}

	return b, nil
}
