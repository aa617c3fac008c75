package surety

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet moves value out of the escrow to an account.
type Wallet interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
}

// MemoryWallet records payouts in process memory.
type MemoryWallet struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

// NewMemoryWallet creates an empty wallet.
func NewMemoryWallet() *MemoryWallet {
	return &MemoryWallet{balances: make(map[common.Address]*big.Int)}
}

func (w *MemoryWallet) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	bal, ok := w.balances[to]
	if !ok {
		bal = new(big.Int)
		w.balances[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

// BalanceOf returns everything paid out to addr so far.
func (w *MemoryWallet) BalanceOf(addr common.Address) *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if bal, ok := w.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}
