package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	interfaces "github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/storage"
)

// Account is a single balance in minor units. All mutations are lock-free.
type Account struct {
	id      string
	balance atomic.Int64
}

func newAccount(id string, balance int64) *Account {
	a := &Account{id: id}
	a.balance.Store(balance)
	return a
}

// TryDebit subtracts amount iff the balance covers it. A failed
// compare-and-swap means another writer got in between, so the check is
// repeated against the fresh value.
func (a *Account) TryDebit(amount int64) bool {
	for {
		current := a.balance.Load()
		if current < amount {
			return false
		}
		if a.balance.CompareAndSwap(current, current-amount) {
			return true
		}
	}
}

// Credit adds amount unconditionally and returns the resulting balance.
func (a *Account) Credit(amount int64) int64 {
	return a.balance.Add(amount)
}

func (a *Account) Current() int64 {
	return a.balance.Load()
}

func (a *Account) ID() string {
	return a.id
}

// AccountStore is the in-memory account ledger. Accounts are created lazily
// with the default balance; unrelated accounts never contend.
type AccountStore struct {
	accounts       sync.Map     // account id -> *Account
	count          atomic.Int64 // number of accounts ever created
	defaultBalance int64        // balance of lazily created accounts
}

// NewAccountStore creates an empty store.
func NewAccountStore(defaultBalance int64) *AccountStore {
	return &AccountStore{defaultBalance: defaultBalance}
}

// AccountOf returns the account, creating it with the default balance when
// absent. Concurrent callers for the same id always get the same *Account.
func (s *AccountStore) AccountOf(accountID string) *Account {
	if acc, ok := s.accounts.Load(accountID); ok {
		return acc.(*Account)
	}
	acc, _ := s.Open(accountID, s.defaultBalance)
	return acc
}

// Open creates the account with the given balance unless it already exists.
// It reports whether this call created it; an existing balance is never reset.
func (s *AccountStore) Open(accountID string, balance int64) (*Account, bool) {
	actual, loaded := s.accounts.LoadOrStore(accountID, newAccount(accountID, balance))
	if !loaded {
		s.count.Add(1)
	}
	return actual.(*Account), !loaded
}

// Lookup returns the balance of an existing account without creating it.
func (s *AccountStore) Lookup(accountID string) (int64, bool) {
	acc, ok := s.accounts.Load(accountID)
	if !ok {
		return 0, false
	}
	return acc.(*Account).Current(), true
}

func (s *AccountStore) Debit(accountID string, amount int64) bool {
	return s.AccountOf(accountID).TryDebit(amount)
}

func (s *AccountStore) Credit(accountID string, amount int64) int64 {
	return s.AccountOf(accountID).Credit(amount)
}

func (s *AccountStore) Current(accountID string) int64 {
	return s.AccountOf(accountID).Current()
}

func (s *AccountStore) TotalAccounts() int64 {
	return s.count.Load()
}

// Preload creates accounts ACC-00000000 .. ACC-(n-1) in parallel chunks.
// It is idempotent and returns once every chunk is done.
func (s *AccountStore) Preload(ctx context.Context, n, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, chunk := range storage.Chunks(n, storage.DefaultChunkSize) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := chunk.Start; i < chunk.End; i++ {
				s.AccountOf(storage.ProvisionedAccountID(i))
			}
			return nil
		})
	}
	return g.Wait()
}

// Compile-time check: ensure AccountStore implements AccountStore interface
var _ interfaces.AccountStore = (*AccountStore)(nil)
