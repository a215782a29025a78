package fakesvc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
)

// KeyType is the PEM block type for RSA private keys.
const KeyType = "RSA PRIVATE KEY"

// DefaultKeySize is the default RSA key size in bits.
const DefaultKeySize = 2048

// EncodePrivateKey encodes an RSA private key in PEM format.
func EncodePrivateKey(signingKey *rsa.PrivateKey) []byte {
	//nolint:exhaustruct
	return pem.EncodeToMemory(&pem.Block{
		Type:  KeyType,
		Bytes: x509.MarshalPKCS1PrivateKey(signingKey),
	})
}

// LoadSigningKey loads the RSA key at path, creating it if the file does not
// exist. An empty path returns a new key that is not persisted.
func LoadSigningKey(path string, bits int) (*rsa.PrivateKey, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			signingKey, err := jwt.ParseRSAPrivateKeyFromPEM(data)
			if err != nil {
				return nil, fmt.Errorf("parse key %s: %w", path, err)
			}

			return signingKey, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read key file: %w", err)
		}
	}

	signingKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if path == "" {
		return signingKey, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	if err := os.WriteFile(path, EncodePrivateKey(signingKey), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}

	return signingKey, nil
}
