package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// MemoryStore keeps secrets for the current session only.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore returns an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]string)}
}

func (s *MemoryStore) Get(providerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[providerID]
	if !ok || secret == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrMissingCredential, providerID)
	}
	return secret, nil
}

func (s *MemoryStore) Set(providerID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[providerID] = secret
	return nil
}

func (s *MemoryStore) Delete(providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, providerID)
	return nil
}

// KeyringStore keeps secrets in the OS keychain under a service namespace.
type KeyringStore struct {
	service string
}

// NewKeyringStore scopes secrets to service (default "ridepilot").
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = domain.DefaultKeyringService
	}
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Get(providerID string) (string, error) {
	secret, err := keyring.Get(k.service, providerID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", domain.ErrMissingCredential, providerID)
		}
		return "", fmt.Errorf("keyring get %s: %w", providerID, err)
	}
	return secret, nil
}

func (k *KeyringStore) Set(providerID, secret string) error {
	if err := keyring.Set(k.service, providerID, secret); err != nil {
		return fmt.Errorf("keyring set %s: %w", providerID, err)
	}
	return nil
}

func (k *KeyringStore) Delete(providerID string) error {
	if err := keyring.Delete(k.service, providerID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", providerID, err)
	}
	return nil
}

// NewStore picks the backend named in config.
func NewStore(backend, service string) (ports.SecretStore, error) {
	switch backend {
	case "", domain.BackendMemory:
		return NewMemoryStore(), nil
	case domain.BackendKeyring:
		return NewKeyringStore(service), nil
	}
	return nil, fmt.Errorf("unknown credential backend %q", backend)
}

var (
	_ ports.SecretStore = (*MemoryStore)(nil)
	_ ports.SecretStore = (*KeyringStore)(nil)
)
