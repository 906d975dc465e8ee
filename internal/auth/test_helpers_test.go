package auth

import (
	"context"

	"github.com/kosanku/kosanku-api/internal/models"
)

// fakeFetcher serves accounts from a map keyed by ID
type fakeFetcher struct {
	accounts map[string]*models.Account
}

func newFakeFetcher(accounts ...*models.Account) *fakeFetcher {
	f := &fakeFetcher{accounts: make(map[string]*models.Account)}
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeFetcher) GetByID(ctx context.Context, id string) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return a, nil
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

const testSecret = "test-secret-32-characters-long!!"

func testAccount(id string) *models.Account {
	return &models.Account{ID: id, Email: id + "@example.com", TokenKey: "key-" + id, Status: models.StatusActive}
}
