// Package ledger provides in-memory token and clock collaborators for the pool.
// Balances are held as 256-bit unsigned integers like an ERC20 contract.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"yieldSpace/internal/pool"
)

var (
	ErrInvalidAmount = errors.New("ledger: invalid amount")
	ErrOverflow      = errors.New("ledger: balance overflow")
)

// Token is an allowance-free ERC20 style ledger.
type Token struct {
	name string

	mu       sync.RWMutex
	balances map[common.Address]*uint256.Int
	supply   *uint256.Int
}

func NewToken(name string) *Token {
	return &Token{
		name:     name,
		balances: make(map[common.Address]*uint256.Int),
		supply:   new(uint256.Int),
	}
}

func (t *Token) Name() string {
	return t.name
}

// BalanceOf returns the balance of owner.
func (t *Token) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bal, ok := t.balances[owner]
	if !ok {
		return new(big.Int), nil
	}
	return bal.ToBig(), nil
}

// TotalSupply returns the sum of all balances.
func (t *Token) TotalSupply(_ context.Context) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supply.ToBig(), nil
}

// Mint credits amount to `to` and grows the supply.
func (t *Token) Mint(_ context.Context, to common.Address, amount *big.Int) error {
	amt, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(t.supply, amt)
	if overflow {
		return fmt.Errorf("%w: %s supply", ErrOverflow, t.name)
	}
	t.supply = supply
	t.credit(to, amt)
	return nil
}

// Burn debits amount from `from` and shrinks the supply.
func (t *Token) Burn(_ context.Context, from common.Address, amount *big.Int) error {
	amt, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.debit(from, amt, pool.ErrInsufficientBalanceOrAllowance); err != nil {
		return err
	}
	t.supply = new(uint256.Int).Sub(t.supply, amt)
	return nil
}

// Transfer moves amount between two holders.
func (t *Token) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	return t.move(from, to, amount, pool.ErrInsufficientBalanceOrAllowance)
}

// Account binds the token to a pool address as a pool.Asset.
func (t *Token) Account(owner common.Address) *Account {
	return &Account{token: t, owner: owner}
}

// Balances returns a copy of all non-zero balances keyed by hex address.
func (t *Token) Balances() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(t.balances))
	for addr, bal := range t.balances {
		if bal.IsZero() {
			continue
		}
		out[addr.Hex()] = bal.Dec()
	}
	return out
}

// Holders returns the addresses with a non-zero balance in a stable order.
func (t *Token) Holders() []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]common.Address, 0, len(t.balances))
	for addr, bal := range t.balances {
		if !bal.IsZero() {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

func (t *Token) move(from, to common.Address, amount *big.Int, insufficient error) error {
	amt, err := toUint256(amount)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.debit(from, amt, insufficient); err != nil {
		return err
	}
	t.credit(to, amt)
	return nil
}

// Assumes t.mu is held.
func (t *Token) debit(from common.Address, amt *uint256.Int, insufficient error) error {
	bal, ok := t.balances[from]
	if !ok {
		bal = new(uint256.Int)
	}
	if bal.Lt(amt) {
		return fmt.Errorf("%w: %s balance of %s is %s, need %s", insufficient, t.name, from.Hex(), bal.Dec(), amt.Dec())
	}
	t.balances[from] = new(uint256.Int).Sub(bal, amt)
	return nil
}

// Assumes t.mu is held. Credits cannot overflow because they never exceed supply.
func (t *Token) credit(to common.Address, amt *uint256.Int) {
	bal, ok := t.balances[to]
	if !ok {
		bal = new(uint256.Int)
	}
	t.balances[to] = new(uint256.Int).Add(bal, amt)
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("%w: %s does not fit 256 bits", ErrOverflow, amount)
	}
	return v, nil
}

// Account is a pool.Asset view of a Token for one pool address.
type Account struct {
	token *Token
	owner common.Address
}

var _ pool.Asset = (*Account)(nil)

// TransferIn pulls amount from a holder into the bound address.
func (a *Account) TransferIn(_ context.Context, from common.Address, amount *big.Int) error {
	return a.token.move(from, a.owner, amount, pool.ErrInsufficientBalanceOrAllowance)
}

// TransferOut pays amount from the bound address.
func (a *Account) TransferOut(_ context.Context, to common.Address, amount *big.Int) error {
	return a.token.move(a.owner, to, amount, pool.ErrInsufficientPoolReserve)
}

func (a *Account) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return a.token.BalanceOf(ctx, owner)
}
