package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	keyStorageKind = "storage.kind"
	keyStorageKey  = "storage.key"
)

const (
	StorageKindFile   = "file"
	StorageKindSQLite = "sqlite"
	StorageKindMemory = "memory"
)

type StorageConfig interface {
	GetTokenStorageKind() string
	GetTokenFilePath() string
	GetTokenDBPath() string
	GetStorageKey() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetTokenStorageKind() string {
	return strings.ToLower(s.v.GetString(keyStorageKind))
}

func (s Storage) GetTokenFilePath() string {
	return filepath.Join(s.v.GetString(keyDataFolder), "tokens.json")
}

func (s Storage) GetTokenDBPath() string {
	return filepath.Join(s.v.GetString(keyDataFolder), "tokens.db")
}

// GetStorageKey returns the passphrase used to encrypt the token file; empty disables encryption
func (s Storage) GetStorageKey() string {
	return s.v.GetString(keyStorageKey)
}
