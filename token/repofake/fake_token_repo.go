package tokenfakerepo

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-auth-client/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo is an in-memory token.Repo. It backs the "memory" storage
// kind and the tests.
type FakeTokenRepo struct {
	values map[string]string
	lock   sync.RWMutex

	// FailWrites makes Set and Delete fail, simulating a broken disk.
	FailWrites bool
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		values: make(map[string]string),
	}
}

func (tr *FakeTokenRepo) Get(_ context.Context, key string) (string, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	v, ok := tr.values[key]
	if !ok {
		return "", token.ErrNotFound
	}
	return v, nil
}

func (tr *FakeTokenRepo) Set(_ context.Context, key, value string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.FailWrites {
		return errors.New("write failed")
	}
	tr.values[key] = value
	return nil
}

func (tr *FakeTokenRepo) Delete(_ context.Context, key string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.FailWrites {
		return errors.New("write failed")
	}
	delete(tr.values, key)
	return nil
}

// Has reports whether key is present.
func (tr *FakeTokenRepo) Has(key string) bool {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	_, ok := tr.values[key]
	return ok
}

func (tr *FakeTokenRepo) Close() error {
	return nil
}
