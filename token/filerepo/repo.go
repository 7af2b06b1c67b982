package filerepo

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

var _ token.Repo = (*Repo)(nil)

const (
	envelopeVersion = 1
	saltLength      = 16
	nonceLength     = 24
)

// envelope is the on-disk format. Values is set for plaintext files; Salt and
// Box are set when the file is encrypted.
type envelope struct {
	Version int               `json:"v"`
	Values  map[string]string `json:"values,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Box     []byte            `json:"box,omitempty"`
}

// Repo persists token values in a single JSON file, optionally sealed with
// NaCl secretbox under a key derived from a passphrase.
type Repo struct {
	path string
	salt []byte
	key  *[32]byte
	mu   sync.Mutex
}

// New opens (or prepares) the token file at path. An empty passphrase stores
// the values in plaintext.
func New(path, passphrase string) (*Repo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}

	r := &Repo{path: path}
	if passphrase == "" {
		return r, nil
	}

	env, err := r.readEnvelope()
	if err != nil {
		return nil, err
	}
	salt := env.Salt
	if len(salt) == 0 {
		salt = make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	}
	r.salt = salt
	r.key = deriveKey(passphrase, salt)
	return r, nil
}

func (r *Repo) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", token.ErrNotFound
	}
	return v, nil
}

func (r *Repo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return err
	}
	values[key] = value
	return r.save(values)
}

func (r *Repo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return r.save(values)
}

func (r *Repo) Close() error {
	return nil
}

func (r *Repo) readEnvelope() (envelope, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return envelope{Version: envelopeVersion}, nil
	}
	if err != nil {
		return envelope{}, fmt.Errorf("read token file: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, apperrors.Wrapf(apperrors.ErrCorruptStorage, "decode %s", r.path)
	}
	return env, nil
}

func (r *Repo) load() (map[string]string, error) {
	env, err := r.readEnvelope()
	if err != nil {
		return nil, err
	}

	if r.key == nil {
		if len(env.Box) > 0 {
			return nil, apperrors.Wrapf(apperrors.ErrCorruptStorage, "%s is encrypted but no storage key is configured", r.path)
		}
		if env.Values == nil {
			env.Values = make(map[string]string)
		}
		return env.Values, nil
	}

	values := make(map[string]string)
	if len(env.Box) == 0 {
		return values, nil
	}
	if len(env.Box) < nonceLength {
		return nil, apperrors.Wrapf(apperrors.ErrCorruptStorage, "short ciphertext in %s", r.path)
	}
	var nonce [nonceLength]byte
	copy(nonce[:], env.Box[:nonceLength])
	plain, ok := secretbox.Open(nil, env.Box[nonceLength:], &nonce, r.key)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrCorruptStorage, "cannot decrypt %s", r.path)
	}
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrCorruptStorage, "decode sealed values")
	}
	return values, nil
}

func (r *Repo) save(values map[string]string) error {
	env := envelope{Version: envelopeVersion}
	if r.key == nil {
		env.Values = values
	} else {
		plain, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("encode values: %w", err)
		}
		var nonce [nonceLength]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}
		env.Salt = r.salt
		env.Box = secretbox.Seal(nonce[:], plain, &nonce, r.key)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	return writeFileAtomic(r.path, data)
}

func deriveKey(passphrase string, salt []byte) *[32]byte {
	var key [32]byte
	copy(key[:], argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32))
	return &key
}

// writeFileAtomic writes data next to path and renames it into place so a
// crash never leaves a half-written token file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
