// Package gpg provides OpenPGP detached signatures for release manifests.
package gpg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// ErrNoSigningKey is returned when a keyring holds no usable private key
var ErrNoSigningKey = errors.New("no private key found in keyring")

// Signer produces armored detached signatures using ProtonMail's go-crypto
// This is in external-adapters to isolate the external dependency
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner creates a signer for an entity that carries a decrypted private key
func NewSigner(entity *openpgp.Entity) (*Signer, error) {
	if entity == nil || entity.PrivateKey == nil {
		return nil, ErrNoSigningKey
	}
	if entity.PrivateKey.Encrypted {
		return nil, fmt.Errorf("private key of %X is still encrypted", entity.PrimaryKey.Fingerprint)
	}
	return &Signer{entity: entity}, nil
}

// NewSignerFromFile loads the first private key of an armored keyring file,
// decrypting it with passphrase when it is protected
func NewSignerFromFile(keyPath, passphrase string) (*Signer, error) {
	//nolint:gosec // G304: keyPath is user-provided for signing
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	return NewSignerFromReader(f, passphrase)
}

// NewSignerFromReader is NewSignerFromFile for an already-open keyring
func NewSignerFromReader(r io.Reader, passphrase string) (*Signer, error) {
	entities, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}

	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if err := decryptEntity(entity, []byte(passphrase)); err != nil {
			return nil, err
		}
		return NewSigner(entity)
	}
	return nil, ErrNoSigningKey
}

func decryptEntity(entity *openpgp.Entity, passphrase []byte) error {
	if entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return fmt.Errorf("private key is encrypted and no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}
	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
			if err := subkey.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("failed to decrypt subkey: %w", err)
			}
		}
	}
	return nil
}

// SignDetached writes an armored detached signature of message to w
func (s *Signer) SignDetached(w io.Writer, message io.Reader) error {
	if err := openpgp.ArmoredDetachSign(w, s.entity, message, nil); err != nil {
		return fmt.Errorf("failed to sign: %w", err)
	}
	return nil
}

// Fingerprint returns the signing key's fingerprint in upper-case hex
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}
