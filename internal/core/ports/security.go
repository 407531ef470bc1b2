package ports

// SealerPort seals payloads before they leave the process.
// The associated data is authenticated but not encrypted; opening with
// different associated data fails.
type SealerPort interface {
	Seal(plaintext, associatedData []byte) (ciphertext []byte, err error)
	Open(ciphertext, associatedData []byte) (plaintext []byte, err error)
}
