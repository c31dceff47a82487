package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/bits"

	"github.com/cryptogogue/volwal/pkg/config"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLen = 16
	keyLen  = 32
	// headerLen covers log2(N), R and P, one byte each.
	headerLen = 3
)

// ErrDecrypt is returned when a secret can't be decrypted with the given
// password.
var ErrDecrypt = errors.New("failed to decrypt secret")

// encrypt seals plain text with a key derived from the password. Scrypt
// parameters are stored along with the salt so that changing them in the
// configuration doesn't invalidate existing secrets.
func encrypt(plain, password string, p config.Wallet) (string, error) {
	if p.ScryptR > 0xff || p.ScryptP > 0xff {
		return "", fmt.Errorf("scrypt parameters out of range: r=%d p=%d", p.ScryptR, p.ScryptP)
	}
	header := []byte{byte(bits.TrailingZeros(uint(p.ScryptN))), byte(p.ScryptR), byte(p.ScryptP)}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	gcm, err := newGCM(password, salt, p.ScryptN, p.ScryptR, p.ScryptP)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	buf := make([]byte, 0, headerLen+saltLen+len(nonce)+len(plain)+gcm.Overhead())
	buf = append(buf, header...)
	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = gcm.Seal(buf, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(buf), nil
}

func decrypt(sealed, password string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(data) < headerLen+saltLen {
		return "", fmt.Errorf("%w: secret is too short", ErrDecrypt)
	}
	logN, r, p := data[0], int(data[1]), int(data[2])
	if logN == 0 || logN > 30 {
		return "", fmt.Errorf("%w: bad scrypt parameters", ErrDecrypt)
	}
	salt := data[headerLen : headerLen+saltLen]
	gcm, err := newGCM(password, salt, 1<<logN, r, p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	rest := data[headerLen+saltLen:]
	if len(rest) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: secret is too short", ErrDecrypt)
	}
	plain, err := gcm.Open(nil, rest[:gcm.NonceSize()], rest[gcm.NonceSize():], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func newGCM(password string, salt []byte, n, r, p int) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(password), salt, n, r, p, keyLen)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
