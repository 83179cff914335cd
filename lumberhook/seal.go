package lumberhook

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/nilpntr/lumber/lumbertype"
)

// SealedPrefix marks a value that was replaced by SealHook.
const SealedPrefix = "sealed:"

// Encryptor provides an interface for encrypting and decrypting values.
type Encryptor interface {
	// Encrypt encrypts the given plaintext data.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt decrypts the given ciphertext data.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// SealHook encrypts the values of sensitive keys before an event reaches
// the bridge. Both event fields and the diagnostic context are covered.
type SealHook struct {
	BaseHook
	encryptor Encryptor
	keys      map[string]struct{}
}

// NewSealHook creates a hook sealing the values stored under keys. The keys
// "error" and "tag" also cover Event.Err and Event.Tag, which the facade lifts
// out of the field list before hooks run.
func NewSealHook(encryptor Encryptor, keys ...string) *SealHook {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &SealHook{
		encryptor: encryptor,
		keys:      set,
	}
}

// BeforeLog replaces sensitive values with their sealed form.
func (h *SealHook) BeforeLog(_ context.Context, event lumbertype.Event) (lumbertype.Event, error) {
	if len(h.keys) == 0 {
		return event, nil
	}

	if len(event.Fields) > 0 {
		fields := make([]lumbertype.Field, len(event.Fields))
		for i, f := range event.Fields {
			if _, ok := h.keys[f.Key]; ok {
				sealed, err := h.seal(fmt.Sprint(f.Value))
				if err != nil {
					return event, fmt.Errorf("failed to seal field %s: %w", f.Key, err)
				}
				f.Value = sealed
			}
			fields[i] = f
		}
		event.Fields = fields
	}

	if _, ok := h.keys[lumbertype.ErrorKey]; ok && event.Err != nil {
		sealed, err := h.seal(event.Err.Error())
		if err != nil {
			return event, fmt.Errorf("failed to seal error: %w", err)
		}
		event.Err = errors.New(sealed)
	}
	if _, ok := h.keys[lumbertype.TagKey]; ok && event.Tag != "" {
		sealed, err := h.seal(event.Tag)
		if err != nil {
			return event, fmt.Errorf("failed to seal tag: %w", err)
		}
		event.Tag = sealed
	}

	if len(event.Context) > 0 {
		ctxMap := make(map[string]string, len(event.Context))
		for k, v := range event.Context {
			if _, ok := h.keys[k]; ok {
				sealed, err := h.seal(v)
				if err != nil {
					return event, fmt.Errorf("failed to seal context value %s: %w", k, err)
				}
				v = sealed
			}
			ctxMap[k] = v
		}
		event.Context = ctxMap
	}

	return event, nil
}

// Unseal reverses the sealing of a single value. Values without the sealed
// prefix are returned unchanged.
func (h *SealHook) Unseal(value string) (string, error) {
	if !strings.HasPrefix(value, SealedPrefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}
	plain, err := h.encryptor.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (h *SealHook) seal(value string) (string, error) {
	encrypted, err := h.encryptor.Encrypt([]byte(value))
	if err != nil {
		return "", err
	}
	return SealedPrefix + base64.StdEncoding.EncodeToString(encrypted), nil
}

// SecretboxEncryptor implements the Encryptor interface using NaCl secretbox.
// It provides authenticated encryption with a symmetric key.
type SecretboxEncryptor struct {
	key [32]byte
}

// NewSecretboxEncryptor creates a new Secretbox encryptor with the given 32-byte key.
func NewSecretboxEncryptor(key [32]byte) *SecretboxEncryptor {
	return &SecretboxEncryptor{
		key: key,
	}
}

// ParseSealKey decodes a 64 character hex string into a secretbox key.
func ParseSealKey(s string) ([32]byte, error) {
	var key [32]byte
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return key, fmt.Errorf("%w: %v", lumbertype.ErrInvalidSealKey, err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("%w: want %d bytes, got %d", lumbertype.ErrInvalidSealKey, len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Encrypt encrypts the plaintext using NaCl secretbox.
// The nonce is randomly generated and prepended to the ciphertext.
func (e *SecretboxEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &e.key), nil
}

// Decrypt decrypts the ciphertext using NaCl secretbox.
// The nonce is expected to be prepended to the ciphertext.
func (e *SecretboxEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, errors.New("ciphertext too short")
	}

	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])

	decrypted, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &e.key)
	if !ok {
		return nil, errors.New("decryption failed")
	}

	return decrypted, nil
}
