package surety

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NewAccounts generates n fresh accounts.
func NewAccounts(n int) ([]common.Address, error) {
	accounts := make([]common.Address, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate account key: %w", err)
		}
		accounts = append(accounts, crypto.PubkeyToAddress(key.PublicKey))
	}
	return accounts, nil
}

// ParseAccounts parses hex addresses.
func ParseAccounts(hexes []string) ([]common.Address, error) {
	accounts := make([]common.Address, 0, len(hexes))
	for _, h := range hexes {
		if !common.IsHexAddress(h) {
			return nil, fmt.Errorf("invalid account %q", h)
		}
		accounts = append(accounts, common.HexToAddress(h))
	}
	return accounts, nil
}
