// Package crypto derives the SQLCipher database key from the master key
// using HKDF-SHA256 with a fixed info string for domain separation.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of the derived database key in bytes (256 bits).
	KeySize = 32

	// dbKeyInfo separates the database key from any future keys derived
	// from the same master key.
	dbKeyInfo = "note-service:db:v1"
)

// DeriveDBKey derives the 32-byte SQLCipher key from the master key.
// The master key must be 64 hex characters (32 bytes).
func DeriveDBKey(masterKeyHex string) ([]byte, error) {
	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex: %w", err)
	}
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(masterKey))
	}

	// Salt is nil: the master key is already high-entropy.
	r := hkdf.New(sha256.New, masterKey, nil, []byte(dbKeyInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF cannot fail for valid inputs of this size.
		panic(fmt.Sprintf("HKDF failed: %v", err))
	}
	return key, nil
}
