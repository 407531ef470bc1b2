package security

import (
	"EventRelay/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ErrCiphertextTooShort is returned when a sealed payload cannot even hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext is too short")

// aesSealer implements ports.SealerPort with AES-GCM.
// Output layout is nonce || ciphertext || tag.
type aesSealer struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

var _ ports.SealerPort = (*aesSealer)(nil) // Ensure compliance

// NewAESSealer creates a sealer from a 16 or 32 byte key.
func NewAESSealer(key []byte, baseLogger *zerolog.Logger) (ports.SealerPort, error) {
	if len(key) != 16 && len(key) != 32 {
		return nil, errors.New("encryption key must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "payload_sealer").Logger()
	log.Info().Int("key_bits", len(key)*8).Msg("Payload sealer initialized")

	return &aesSealer{gcm: gcm, log: log}, nil
}

// NewAESSealerFromHex decodes a hex key (as found in ENCRYPTION_KEY) first.
func NewAESSealerFromHex(hexKey string, baseLogger *zerolog.Logger) (ports.SealerPort, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("could not decode encryption key: %w", err)
	}
	return NewAESSealer(key, baseLogger)
}

// Seal encrypts plaintext and authenticates it together with associatedData.
func (s *aesSealer) Seal(plaintext, associatedData []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		s.log.Error().Err(err).Msg("Failed to generate nonce")
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return s.gcm.Seal(nonce, nonce, plaintext, associatedData), nil
}

// Open reverses Seal. It fails when the payload was altered or the
// associated data differs.
func (s *aesSealer) Open(ciphertext, associatedData []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, associatedData)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to open sealed payload (tampered or wrong associated data?)")
		return nil, fmt.Errorf("could not open sealed payload: %w", err)
	}

	return plaintext, nil
}
