package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrInvalidKey is returned for private keys that can't be used to derive a
// public key.
var ErrInvalidKey = errors.New("invalid private key")

// PublicKeyHex returns the compressed secp256k1 public key of the
// hex-encoded private key.
func PublicKeyHex(privateKeyHex string) (string, error) {
	b, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(b) != secp256k1.PrivKeyBytesLen {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, secp256k1.PrivKeyBytesLen, len(b))
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	defer priv.Zero()
	if priv.Key.IsZero() {
		return "", fmt.Errorf("%w: zero scalar", ErrInvalidKey)
	}
	return hex.EncodeToString(priv.PubKey().SerializeCompressed()), nil
}
