package services

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kosanku/kosanku-api/internal/models"
)

// FakeClock is a settable time source for tests
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{t: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// FakeAccountRepository is an in-memory AccountRepository. It hands out
// copies so callers cannot mutate stored state.
type FakeAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	GetErr   error
}

func NewFakeAccountRepository() *FakeAccountRepository {
	return &FakeAccountRepository{accounts: make(map[string]*models.Account)}
}

func (r *FakeAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	a, ok := r.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *FakeAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	for _, a := range r.accounts {
		if a.Email == strings.ToLower(email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *FakeAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email {
			return nil, models.ErrConflict
		}
	}
	cp := *account
	cp.ID = uuid.New().String()
	cp.TokenKey = uuid.New().String()
	if cp.Status == "" {
		cp.Status = models.StatusPending
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.accounts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeAccountRepository) update(id string, fn func(a *models.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = time.Now()
	return nil
}

func (r *FakeAccountRepository) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	return r.update(id, func(a *models.Account) { a.Status = status })
}

func (r *FakeAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(id, func(a *models.Account) { a.PasswordHash = passwordHash })
}

func (r *FakeAccountRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return r.update(id, func(a *models.Account) {
		a.PasswordHash = passwordHash
		a.Status = models.StatusActive
		a.TokenKey = uuid.New().String()
	})
}

func (r *FakeAccountRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	err := r.update(id, func(a *models.Account) {
		if update.FullName != nil {
			a.FullName = update.FullName
		}
		if update.BirthDate != nil {
			a.BirthDate = update.BirthDate
		}
		if update.Gender != nil {
			a.Gender = update.Gender
		}
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *FakeAccountRepository) RotateTokenKey(ctx context.Context, id string) error {
	return r.update(id, func(a *models.Account) { a.TokenKey = uuid.New().String() })
}

// FakeOTPRepository is an in-memory OTPRepository
type FakeOTPRepository struct {
	mu      sync.Mutex
	codes   []*models.OneTimeCode
	Created int
}

func NewFakeOTPRepository() *FakeOTPRepository {
	return &FakeOTPRepository{}
}

func (r *FakeOTPRepository) Create(ctx context.Context, accountID, codeHash string, createdAt, expiresAt time.Time) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &models.OneTimeCode{
		ID: uuid.New().String(), AccountID: accountID, CodeHash: codeHash,
		CreatedAt: createdAt, ExpiresAt: expiresAt,
	}
	r.codes = append(r.codes, c)
	r.Created++
	cp := *c
	return &cp, nil
}

// newest returns the most recently created matching code; later inserts win ties
func (r *FakeOTPRepository) newest(accountID string, unconsumedOnly bool) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.OneTimeCode
	for _, c := range r.codes {
		if c.AccountID != accountID || (unconsumedOnly && c.IsConsumed()) {
			continue
		}
		if best == nil || !c.CreatedAt.Before(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *FakeOTPRepository) LatestUnconsumed(ctx context.Context, accountID string) (*models.OneTimeCode, error) {
	return r.newest(accountID, true)
}

func (r *FakeOTPRepository) Latest(ctx context.Context, accountID string) (*models.OneTimeCode, error) {
	return r.newest(accountID, false)
}

func (r *FakeOTPRepository) deleteWhere(keep func(c *models.OneTimeCode) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.OneTimeCode
	var n int64
	for _, c := range r.codes {
		if keep(c) {
			kept = append(kept, c)
		} else {
			n++
		}
	}
	r.codes = kept
	return n
}

func (r *FakeOTPRepository) DeleteUnconsumed(ctx context.Context, accountID string) (int64, error) {
	return r.deleteWhere(func(c *models.OneTimeCode) bool {
		return c.AccountID != accountID || c.IsConsumed()
	}), nil
}

func (r *FakeOTPRepository) DeleteStale(ctx context.Context, accountID string, now time.Time) (int64, error) {
	return r.deleteWhere(func(c *models.OneTimeCode) bool {
		return c.AccountID != accountID || (!c.IsConsumed() && !c.ExpiresAt.Before(now))
	}), nil
}

func (r *FakeOTPRepository) CleanupStale(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(c *models.OneTimeCode) bool {
		return !c.IsConsumed() && !c.ExpiresAt.Before(now)
	}), nil
}

func (r *FakeOTPRepository) MarkConsumed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.ID == id && !c.IsConsumed() {
			t := at
			c.ConsumedAt = &t
			return nil
		}
	}
	return models.ErrNotFound
}

// Codes returns copies of the account's codes, oldest first
func (r *FakeOTPRepository) Codes(accountID string) []models.OneTimeCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.OneTimeCode
	for _, c := range r.codes {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Expire moves every code of the account past its expiry
func (r *FakeOTPRepository) Expire(accountID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == accountID {
			c.ExpiresAt = at
		}
	}
}

// RecordingNotifier captures sent messages
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

func (n *RecordingNotifier) Send(ctx context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, msg)
	return n.Err
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

// LastCode returns the code from the newest message sent to email
func (n *RecordingNotifier) LastCode(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.Sent) - 1; i >= 0; i-- {
		if n.Sent[i].To == email {
			return sixDigits.FindString(n.Sent[i].Text)
		}
	}
	return ""
}

func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

// FakeRevocationRepository is an in-memory TokenRevocationRepository
type FakeRevocationRepository struct {
	mu        sync.Mutex
	revoked   map[string]time.Time
	LogoutAll []string
}

func NewFakeRevocationRepository() *FakeRevocationRepository {
	return &FakeRevocationRepository{revoked: make(map[string]time.Time)}
}

func (r *FakeRevocationRepository) RevokeToken(ctx context.Context, jti string, realm models.Realm, accountID, tokenType string, expiresAt time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = expiresAt
	return nil
}

func (r *FakeRevocationRepository) RevokeAllAccountTokens(ctx context.Context, realm models.Realm, accountID string, ttl time.Duration, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LogoutAll = append(r.LogoutAll, accountID)
	return nil
}

func (r *FakeRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok, nil
}

func (r *FakeRevocationRepository) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for jti, exp := range r.revoked {
		if exp.Before(now) {
			delete(r.revoked, jti)
			n++
		}
	}
	return n, nil
}
