// Package blobcodec seals file payloads for storage: zstd compression
// wrapped in ChaCha20-Poly1305. The cipher key is derived from the caller's
// key string, so the server only ever sees opaque bytes.
package blobcodec

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
)

const keyContext = "excalidraw 2024-01-01 file payload"

func cipherFor(key string) (cipher.AEAD, error) {
	derived := make([]byte, chacha20poly1305.KeySize)
	blake3.DeriveKey(keyContext, []byte(key), derived)
	return chacha20poly1305.NewX(derived)
}

// Seal compresses data and encrypts it under the derived key. The random
// nonce is prepended to the ciphertext.
func Seal(data []byte, key string) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	compressed := enc.EncodeAll(data, nil)
	enc.Close()

	aead, err := cipherFor(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(compressed)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, compressed, nil), nil
}

// Open reverses Seal. A wrong key or tampered payload fails authentication.
func Open(sealed []byte, key string) ([]byte, error) {
	aead, err := cipherFor(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed payload too short")
	}
	nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	compressed, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt payload: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(compressed, nil)
}
