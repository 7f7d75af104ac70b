package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"mercator-hq/vigil/pkg/config"
)

type keyEntry struct {
	digest   [sha256.Size]byte
	name     string
	disabled bool
}

// Validator checks API keys against a fixed set. It is safe for
// concurrent use because it is never modified after construction.
type Validator struct {
	entries []keyEntry
}

// NewValidator builds a validator from configured keys. Empty and
// duplicate keys are rejected.
func NewValidator(keys []config.APIKeyConfig) (*Validator, error) {
	v := &Validator{entries: make([]keyEntry, 0, len(keys))}
	seen := make(map[[sha256.Size]byte]string, len(keys))

	for i, k := range keys {
		if k.Key == "" {
			return nil, fmt.Errorf("key %d (%s): empty key", i, k.Name)
		}
		digest := sha256.Sum256([]byte(k.Key))
		if other, ok := seen[digest]; ok {
			return nil, fmt.Errorf("key %d (%s): duplicates key %s", i, k.Name, other)
		}
		seen[digest] = k.Name

		name := k.Name
		if name == "" {
			name = fmt.Sprintf("key-%d", i)
		}
		v.entries = append(v.entries, keyEntry{digest: digest, name: name, disabled: k.Disabled})
	}

	return v, nil
}

// Validate returns the principal for key. Every entry is compared in
// constant time.
func (v *Validator) Validate(key string) (Principal, error) {
	if key == "" {
		return Principal{}, ErrMissingKey
	}
	digest := sha256.Sum256([]byte(key))

	match := -1
	for i := range v.entries {
		if subtle.ConstantTimeCompare(digest[:], v.entries[i].digest[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return Principal{}, ErrInvalidKey
	}
	if v.entries[match].disabled {
		return Principal{}, ErrKeyDisabled
	}
	return Principal{Name: v.entries[match].name}, nil
}

// Len returns the number of configured keys, disabled ones included.
func (v *Validator) Len() int {
	return len(v.entries)
}
