package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrMissingMasterKey = errors.New("master encryption key is missing or too short (need at least 16 bytes)")
	ErrDecryptionFailed = errors.New("credential decryption failed")
)

const (
	// PBKDF2 parameters. Slow on purpose: a leaked ciphertext without the
	// master key should not be cheap to brute-force.
	kdfIterations = 100_000
	keySize       = 32 // AES-256
	saltSize      = 32
)

// EncryptedPayload is the at-rest form of a credential. All three fields are
// hex encoded; IV is the AES-GCM nonce.
type EncryptedPayload struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	Salt      string `json:"salt"`
}

// Vault encrypts and decrypts secrets with AES-256-GCM. The per-value key is
// derived from the master key and a fresh random salt, so encrypting the same
// plaintext twice never yields the same ciphertext.
type Vault struct {
	masterKey []byte
}

// NewVault creates a Vault from the process master key. An absent or short
// key is a configuration error; callers should treat it as fatal.
func NewVault(masterKey string) (*Vault, error) {
	if len(masterKey) < 16 {
		return nil, ErrMissingMasterKey
	}
	return &Vault{masterKey: []byte(masterKey)}, nil
}

func (v *Vault) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(v.masterKey, salt, kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext and returns the JSON-encoded EncryptedPayload
// suitable for storage.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(v.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)

	payload := EncryptedPayload{
		Encrypted: hex.EncodeToString(ciphertext),
		IV:        hex.EncodeToString(nonce),
		Salt:      hex.EncodeToString(salt),
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal encrypted payload: %w", err)
	}
	return string(out), nil
}

// Decrypt opens a stored EncryptedPayload JSON string. GCM authenticates the
// ciphertext, so any tampering (or a wrong master key) fails closed with
// ErrDecryptionFailed rather than returning garbled plaintext.
func (v *Vault) Decrypt(stored string) (string, error) {
	payload, err := parsePayload(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	ciphertext, err := hex.DecodeString(payload.Encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext hex: %v", ErrDecryptionFailed, err)
	}
	nonce, err := hex.DecodeString(payload.IV)
	if err != nil {
		return "", fmt.Errorf("%w: invalid iv hex: %v", ErrDecryptionFailed, err)
	}
	salt, err := hex.DecodeString(payload.Salt)
	if err != nil {
		return "", fmt.Errorf("%w: invalid salt hex: %v", ErrDecryptionFailed, err)
	}

	block, err := aes.NewCipher(v.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", fmt.Errorf("%w: wrong nonce size", ErrDecryptionFailed)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value parses as the vault's at-rest payload
// shape. Legacy rows hold bare plaintext secrets; read paths use this check
// to tolerate both forms during migration.
func IsEncrypted(value string) bool {
	_, err := parsePayload(value)
	return err == nil
}

// MigratePlaintext converts a legacy plaintext secret into the encrypted
// storage form. Already-encrypted values pass through unchanged.
func (v *Vault) MigratePlaintext(value string) (string, error) {
	if IsEncrypted(value) {
		return value, nil
	}
	return v.Encrypt(value)
}

func parsePayload(value string) (*EncryptedPayload, error) {
	var payload EncryptedPayload
	if err := json.Unmarshal([]byte(value), &payload); err != nil {
		return nil, fmt.Errorf("not an encrypted payload: %w", err)
	}
	if payload.Encrypted == "" && payload.IV == "" {
		return nil, errors.New("empty payload")
	}
	if payload.IV == "" || payload.Salt == "" {
		return nil, errors.New("payload missing iv or salt")
	}
	for _, field := range []string{payload.Encrypted, payload.IV, payload.Salt} {
		if _, err := hex.DecodeString(field); err != nil {
			return nil, fmt.Errorf("payload field is not hex: %w", err)
		}
	}
	return &payload, nil
}
