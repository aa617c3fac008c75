package oracle

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yegors/flightsurety/internal/surety"
)

// StatusSource decides what an oracle reports for a status request.
type StatusSource interface {
	Status(ctx context.Context, req surety.FlightStatusRequested) (surety.StatusCode, error)
}

// RandomSource reports LATE_AIRLINE with probability biasPercent/100 and
// otherwise a uniformly drawn status code.
type RandomSource struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	biasPercent int
}

// NewRandomSource creates a random source. biasPercent is clamped to [0, 100].
func NewRandomSource(biasPercent int, seed uint64) *RandomSource {
	biasPercent = max(0, min(biasPercent, 100))
	return &RandomSource{
		rnd:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		biasPercent: biasPercent,
	}
}

// RandomSources builds one RandomSource per account, seeded from seed mixed
// with the account hash so no two workers draw the same sequence.
func RandomSources(biasPercent int, seed uint64) SourceFactory {
	return func(account common.Address) StatusSource {
		return NewRandomSource(biasPercent, AccountSeed(account, seed))
	}
}

// AccountSeed derives a per-account seed.
func AccountSeed(account common.Address, seed uint64) uint64 {
	return binary.BigEndian.Uint64(crypto.Keccak256(account.Bytes())[:8]) ^ seed
}

func (s *RandomSource) Status(ctx context.Context, _ surety.FlightStatusRequested) (surety.StatusCode, error) {
	if err := ctx.Err(); err != nil {
		return surety.StatusUnknown, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rnd.IntN(100) < s.biasPercent {
		return surety.StatusLateAirline, nil
	}
	return surety.StatusCodes[s.rnd.IntN(len(surety.StatusCodes))], nil
}

// FixedSource always reports the same code.
type FixedSource surety.StatusCode

// Fixed hands every worker the same FixedSource value.
func Fixed(status surety.StatusCode) SourceFactory {
	return func(common.Address) StatusSource { return FixedSource(status) }
}

func (s FixedSource) Status(context.Context, surety.FlightStatusRequested) (surety.StatusCode, error) {
	return surety.StatusCode(s), nil
}
