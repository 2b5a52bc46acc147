package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "workschedule"

// TokenKey is the keyring entry holding the time-tracking service token.
const TokenKey = "qbtime-token"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/workschedule/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("workschedule-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "QuickBooks Time API token",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Keyring is a process-wide Source backed by the system keyring.
type Keyring struct {
	Key string

	// lookup is swapped in tests.
	lookup func(key string) (string, error)
}

// NewKeyring returns a Source reading the token stored under key.
func NewKeyring(key string) *Keyring {
	if key == "" {
		key = TokenKey
	}
	return &Keyring{Key: key, lookup: Get}
}

// Token returns the stored token, or ErrNotConnected when the keyring
// holds no entry.
func (k *Keyring) Token(ctx context.Context) (string, error) {
	token, err := k.lookup(k.Key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotConnected
		}
		return "", err
	}
	if token == "" {
		return "", ErrNotConnected
	}
	return token, nil
}
