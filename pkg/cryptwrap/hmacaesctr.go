package cryptwrap

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/i5heu/sec-cs/pkg/errs"
)

// hkdfInfoMAC and hkdfInfoEnc are the HKDF "info" labels used to derive two
// independent subkeys from a single master key, so that a leak of one
// subkey (say, through an encryption oracle) does not also compromise the
// other's purpose.
var (
	hkdfInfoMAC = []byte("sec-cs/hmacaesctr/mac-subkey/v1")
	hkdfInfoEnc = []byte("sec-cs/hmacaesctr/enc-subkey/v1")
)

// HMACAESCTR is the default Wrapper. It stands in for the AES-SIV-256
// reference scheme: no AES-SIV implementation was available to build on, so
// digest and ciphertext are produced by two separately-keyed primitives
// instead of one deterministic AEAD construction:
//
//   - digest = HMAC-SHA-256(macKey, plaintext)
//   - ciphertext = AES-256-CTR(encKey, iv=digest[:16], plaintext)
//
// Using the digest itself as the CTR IV is what makes this scheme
// deterministic and convergent: equal plaintext under equal subkeys always
// produces equal digest and equal ciphertext. Unwrap re-derives the digest
// from the decrypted plaintext and rejects anything that doesn't match,
// which is what gives the scheme its authenticity property even though CTR
// mode alone is unauthenticated.
type HMACAESCTR struct {
	macKey [32]byte
	encKey [32]byte
}

// NewHMACAESCTR derives a wrapper's subkeys from masterKey via HKDF-SHA-256.
// masterKey should be at least 32 bytes of high-entropy material; it is
// never used directly for MAC or encryption, only as HKDF input.
func NewHMACAESCTR(masterKey []byte) (*HMACAESCTR, error) {
	w := &HMACAESCTR{}
	if err := deriveSubkey(masterKey, hkdfInfoMAC, w.macKey[:]); err != nil {
		return nil, fmt.Errorf("cryptwrap: deriving mac subkey: %w", err)
	}
	if err := deriveSubkey(masterKey, hkdfInfoEnc, w.encKey[:]); err != nil {
		return nil, fmt.Errorf("cryptwrap: deriving enc subkey: %w", err)
	}
	return w, nil
}

func deriveSubkey(masterKey, info, out []byte) error {
	r := hkdf.New(sha256.New, masterKey, nil, info)
	_, err := io.ReadFull(r, out)
	return err
}

// Wrap implements Wrapper.
func (w *HMACAESCTR) Wrap(plaintext []byte) (Digest, []byte, error) {
	digest := w.digestOf(plaintext)

	block, err := aes.NewCipher(w.encKey[:])
	if err != nil {
		return Digest{}, nil, fmt.Errorf("cryptwrap: %w", err)
	}
	stream := cipher.NewCTR(block, digest[:aes.BlockSize])
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)
	return digest, ciphertext, nil
}

// Unwrap implements Wrapper.
func (w *HMACAESCTR) Unwrap(digest Digest, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(w.encKey[:])
	if err != nil {
		return nil, fmt.Errorf("cryptwrap: %w", err)
	}
	stream := cipher.NewCTR(block, digest[:aes.BlockSize])
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)

	want := w.digestOf(plaintext)
	if !hmac.Equal(want[:], digest[:]) {
		return nil, fmt.Errorf("cryptwrap: %w", errs.ErrAuthenticity)
	}
	return plaintext, nil
}

func (w *HMACAESCTR) digestOf(plaintext []byte) Digest {
	mac := hmac.New(sha256.New, w.macKey[:])
	mac.Write(plaintext)
	var d Digest
	copy(d[:], mac.Sum(nil))
	return d
}
