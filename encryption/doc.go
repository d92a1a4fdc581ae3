// Package encryption seals small byte documents with an AEAD cipher.
//
// Keys are passphrases hashed with SHA-256 to 32 bytes. Sealed output is
// base64 text holding the nonce followed by the ciphertext, so it can be
// stored in any backend that accepts strings.
//
//	c, err := encryption.New("passphrase", encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
//	sealed, err := c.Seal([]byte(`{"itemId":"x"}`))
//	plain, err := c.Open(sealed)
package encryption
