package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	KeyPrefixProduction = "cm_live_"
	KeyPrefixTest       = "cm_test_"
	KeySecretLength     = 32 // bytes of random data
)

var (
	ErrKeyNotFound = errors.New("api key not found")
	ErrKeyExpired  = errors.New("api key has expired")
	ErrKeyRevoked  = errors.New("api key has been revoked")
)

// APIKey holds the metadata of an issued key. The secret itself is only
// ever stored as a bcrypt hash.
type APIKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Hash      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	LastUsed  time.Time `json:"last_used,omitempty"`
	Revoked   bool      `json:"revoked"`
}

// APIKeyStore issues and validates API keys in memory
type APIKeyStore struct {
	keys map[string]*APIKey
	mu   sync.RWMutex
}

// NewAPIKeyStore creates an empty key store
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		keys: make(map[string]*APIKey),
	}
}

// CreateKey issues a new API key. The returned plaintext key is shown
// exactly once; only its bcrypt hash is retained.
// Key format: <prefix><id>.<secret>
func (s *APIKeyStore) CreateKey(name, role string, expiresIn time.Duration) (string, *APIKey, error) {
	if name == "" {
		return "", nil, errors.New("key name cannot be empty")
	}
	if !validRoles[role] {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	secretBytes := make([]byte, KeySecretLength)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate key secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash key secret: %w", err)
	}

	key := &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		Role:      role,
		Hash:      hash,
		CreatedAt: time.Now(),
	}
	if expiresIn > 0 {
		key.ExpiresAt = key.CreatedAt.Add(expiresIn)
	}

	s.mu.Lock()
	s.keys[key.ID] = key
	s.mu.Unlock()

	plaintext := keyPrefix() + key.ID + "." + secret
	return plaintext, key, nil
}

// ValidateKey checks a plaintext key against the store
func (s *APIKeyStore) ValidateKey(plaintext string) (*APIKey, error) {
	id, secret, err := splitKey(plaintext)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	key, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrKeyNotFound
	}

	if key.Revoked {
		return nil, ErrKeyRevoked
	}
	if !key.ExpiresAt.IsZero() && time.Now().After(key.ExpiresAt) {
		return nil, ErrKeyExpired
	}

	if err := bcrypt.CompareHashAndPassword(key.Hash, []byte(secret)); err != nil {
		return nil, ErrKeyNotFound
	}

	s.mu.Lock()
	key.LastUsed = time.Now()
	s.mu.Unlock()

	return key, nil
}

// RevokeKey revokes a key by id
func (s *APIKeyStore) RevokeKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	key.Revoked = true
	return nil
}

// ListKeys returns the metadata of every key
func (s *APIKeyStore) ListKeys() []*APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		keys = append(keys, key)
	}
	return keys
}

// splitKey extracts the key id and secret from a plaintext key
func splitKey(plaintext string) (string, string, error) {
	rest := ""
	switch {
	case strings.HasPrefix(plaintext, KeyPrefixProduction):
		rest = strings.TrimPrefix(plaintext, KeyPrefixProduction)
	case strings.HasPrefix(plaintext, KeyPrefixTest):
		rest = strings.TrimPrefix(plaintext, KeyPrefixTest)
	default:
		return "", "", ErrKeyNotFound
	}

	id, secret, ok := strings.Cut(rest, ".")
	if !ok || id == "" || secret == "" {
		return "", "", ErrKeyNotFound
	}
	return id, secret, nil
}

// keyPrefix picks the key prefix from the environment.
// COMMUNITYD_ENV=production selects the live prefix.
func keyPrefix() string {
	if os.Getenv("COMMUNITYD_ENV") == "production" {
		return KeyPrefixProduction
	}
	return KeyPrefixTest
}
