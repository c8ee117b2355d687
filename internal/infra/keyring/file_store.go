package keyring

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize          = 16
	kdfIterations     = 210_000
	defaultPassphrase = "penguinbm-local-keyring"
)

// FileStore keeps one AES-GCM encrypted file per key. The encryption key is
// derived from a passphrase with PBKDF2-SHA256 and a per-directory salt.
type FileStore struct {
	dataDir string
	secret  []byte
}

var _ Provider = (*FileStore)(nil)

// NewFileStore opens (creating if needed) a store in dataDir. An empty
// passphrase uses a built-in default, which only protects against casual reads.
func NewFileStore(dataDir, passphrase string) (*FileStore, error) {
	if dataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if passphrase == "" {
		passphrase = defaultPassphrase
	}

	salt, err := loadSalt(filepath.Join(dataDir, ".salt"))
	if err != nil {
		return nil, err
	}

	return &FileStore{
		dataDir: dataDir,
		secret:  pbkdf2.Key([]byte(passphrase), salt, kdfIterations, 32, sha256.New),
	}, nil
}

func loadSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read salt: %w", err)
	}

	salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("write salt: %w", err)
	}
	return salt, nil
}

// Set stores an encrypted password for the given key.
func (f *FileStore) Set(ctx context.Context, key, password string) error {
	encrypted, err := f.encrypt(password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}
	if err := os.WriteFile(f.passwordPath(key), encrypted, 0o600); err != nil {
		return fmt.Errorf("write password file: %w", err)
	}
	return nil
}

// Get retrieves and decrypts a password for the given key.
func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	encrypted, err := os.ReadFile(f.passwordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &ErrNotFound{Key: key}
		}
		return "", fmt.Errorf("read password file: %w", err)
	}

	password, err := f.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt password: %w", err)
	}
	return password, nil
}

// Delete removes the password file for the given key.
func (f *FileStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(f.passwordPath(key)); err != nil {
		if os.IsNotExist(err) {
			return &ErrNotFound{Key: key}
		}
		return fmt.Errorf("delete password file: %w", err)
	}
	return nil
}

// Available reports whether the data directory is writable.
func (f *FileStore) Available(ctx context.Context) bool {
	testFile := filepath.Join(f.dataDir, ".available-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return false
	}
	os.Remove(testFile)
	return true
}

// passwordPath hex-encodes the key so any key is a safe filename.
func (f *FileStore) passwordPath(key string) string {
	return filepath.Join(f.dataDir, hex.EncodeToString([]byte(key))+".enc")
}

func (f *FileStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(f.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encrypt seals plaintext and prefixes the random nonce.
func (f *FileStore) encrypt(plaintext string) ([]byte, error) {
	gcm, err := f.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (f *FileStore) decrypt(ciphertext []byte) (string, error) {
	gcm, err := f.gcm()
	if err != nil {
		return "", err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
