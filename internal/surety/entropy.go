package surety

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// IndexRange bounds oracle indexes to [0, IndexRange).
	IndexRange = 10
	// IndexesPerOracle is how many indexes each oracle is assigned.
	IndexesPerOracle = 3
)

// Entropy draws oracle and broadcast indexes. height is the ledger height at the
// time of the draw. Results are reduced modulo IndexRange by the caller.
type Entropy interface {
	Draw(account common.Address, height uint64) uint8
}

// EntropyFunc adapts a function to Entropy.
type EntropyFunc func(account common.Address, height uint64) uint8

func (f EntropyFunc) Draw(account common.Address, height uint64) uint8 {
	return f(account, height)
}

// KeccakEntropy hashes a seed, the account, the height and a monotonic nonce.
// The output is guessable by anyone who knows the inputs.
type KeccakEntropy struct {
	mu    sync.Mutex
	seed  []byte
	nonce uint64
}

// NewKeccakEntropy returns a keccak256-based index source.
func NewKeccakEntropy(seed []byte) *KeccakEntropy {
	return &KeccakEntropy{seed: append([]byte(nil), seed...)}
}

func (k *KeccakEntropy) Draw(account common.Address, height uint64) uint8 {
	k.mu.Lock()
	nonce := k.nonce
	k.nonce++
	k.mu.Unlock()

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], height)
	binary.BigEndian.PutUint64(buf[8:], nonce)

	h := new(big.Int).SetBytes(crypto.Keccak256(k.seed, account.Bytes(), buf[:]))
	return uint8(h.Mod(h, big.NewInt(IndexRange)).Uint64())
}

func drawIndex(e Entropy, account common.Address, height uint64) uint8 {
	return e.Draw(account, height) % IndexRange
}

func drawIndexes(e Entropy, account common.Address, height uint64) [IndexesPerOracle]uint8 {
	var out [IndexesPerOracle]uint8
	for i := range out {
		out[i] = drawIndex(e, account, height)
	}
	return out
}
