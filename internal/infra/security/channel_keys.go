package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"staysync/internal/domain/channels"
)

var ErrInvalidChannelKey = errors.New("security: invalid channel key")

// ChannelKeys authenticates platform webhooks. Each platform holds a bcrypt
// hash of its API key.
type ChannelKeys struct {
	hashes map[channels.Platform][]byte
}

func NewChannelKeys(hashes map[string]string) (*ChannelKeys, error) {
	out := make(map[channels.Platform][]byte, len(hashes))
	for name, hash := range hashes {
		platform, err := channels.ParseExternal(name)
		if err != nil {
			return nil, fmt.Errorf("security: channel key for %q: %w", name, err)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("security: channel key for %q is not a bcrypt hash: %w", name, err)
		}
		out[platform] = []byte(hash)
	}
	return &ChannelKeys{hashes: out}, nil
}

// Verify checks key against the platform's hash.
func (k *ChannelKeys) Verify(platform channels.Platform, key string) error {
	hash, ok := k.hashes[platform]
	if !ok || key == "" {
		return ErrInvalidChannelKey
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
		return ErrInvalidChannelKey
	}
	return nil
}

// Enabled reports whether any platform may post webhooks.
func (k *ChannelKeys) Enabled() bool {
	return k != nil && len(k.hashes) > 0
}

// NewChannelKey returns a random API key and its bcrypt hash.
func NewChannelKey(cost int) (key, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("security: entropy read failed: %w", err)
	}
	key = base64.RawURLEncoding.EncodeToString(buf)
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", "", err
	}
	return key, string(out), nil
}
