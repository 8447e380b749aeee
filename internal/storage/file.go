package storage

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	stateFileName = "state.enc"
	saltSize      = 16
	nonceSize     = 24
	keySize       = 32
)

// FileStore persists values in a single secretbox-encrypted file. The
// session tokens it holds are long-lived credentials, so the file is never
// written in the clear.
type FileStore struct {
	mu     sync.Mutex
	path   string
	secret string
	values map[string][]byte
}

// NewFileStore opens (or creates) the encrypted state file under dir.
// A wrong secret surfaces as a decryption error, not silent data loss.
func NewFileStore(dir, secret string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	s := &FileStore{
		path:   filepath.Join(dir, stateFileName),
		secret: secret,
		values: make(map[string][]byte),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return s.persist()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persist()
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}
	if len(raw) < saltSize+nonceSize {
		return fmt.Errorf("state file %s is truncated", s.path)
	}

	var salt [saltSize]byte
	copy(salt[:], raw[:saltSize])
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	key, err := s.deriveKey(salt[:])
	if err != nil {
		return err
	}

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return fmt.Errorf("failed to decrypt state file %s (wrong STATE_SECRET?)", s.path)
	}

	if err := json.Unmarshal(plain, &s.values); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	return nil
}

// persist writes the whole map atomically: encrypt, write to a temp file,
// rename over the old one.
func (s *FileStore) persist() error {
	plain, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := s.deriveKey(salt[:])
	if err != nil {
		return err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plain, &nonce, key)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) deriveKey(salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key([]byte(s.secret), salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}
