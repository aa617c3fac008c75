package surety

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestKeccakEntropyIsDeterministicPerSeed(t *testing.T) {
	a := NewKeccakEntropy([]byte("app"))
	b := NewKeccakEntropy([]byte("app"))

	for h := uint64(0); h < 50; h++ {
		x, y := a.Draw(oracle(int64(h)), h), b.Draw(oracle(int64(h)), h)
		assert.Equal(t, x, y)
		assert.Less(t, x, uint8(IndexRange))
	}
}

func TestKeccakEntropyAdvancesNonce(t *testing.T) {
	e := NewKeccakEntropy(nil)
	seen := map[uint8]bool{}
	for i := 0; i < 100; i++ {
		seen[e.Draw(oracle(1), 42)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestDrawIndexReducesIntoRange(t *testing.T) {
	e := EntropyFunc(func(common.Address, uint64) uint8 { return 255 })
	assert.Equal(t, uint8(5), drawIndex(e, oracle(1), 0))
	assert.Equal(t, [IndexesPerOracle]uint8{5, 5, 5}, drawIndexes(e, oracle(1), 0))
}
