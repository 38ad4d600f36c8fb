package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// HolderKey identifies a (contract, account) balance cell in the stub
type HolderKey struct {
	Contract common.Address
	Account  common.Address
}

// StubReader is an in-memory Reader for tests and fixtures. Any read without
// a configured value reverts, which mirrors how absent contracts behave.
type StubReader struct {
	mu sync.Mutex

	Symbols   map[common.Address]string
	Names     map[common.Address]string
	Decimals  map[common.Address]uint8
	Balances  map[HolderKey]*big.Int
	Supplies  map[common.Address]*big.Int
	PoolSets  map[common.Address][]common.Address
	AtReverts map[HolderKey]bool
	Batched   map[common.Address]AllBalances

	// BatchReverts forces the batched accessor to revert for a pool,
	// exercising the per-token fallback
	BatchReverts map[common.Address]bool

	Answers     map[common.Address]OracleAnswer
	Aggregators map[common.Address]common.Address

	CoveBalances map[HolderKey]*big.Int
	CoveSupplies map[HolderKey]*big.Int
	CovePools    map[common.Address]common.Address

	// CallCounts tracks reads per method name
	CallCounts map[string]int
}

// NewStubReader creates an empty stub
func NewStubReader() *StubReader {
	return &StubReader{
		Symbols:      make(map[common.Address]string),
		Names:        make(map[common.Address]string),
		Decimals:     make(map[common.Address]uint8),
		Balances:     make(map[HolderKey]*big.Int),
		Supplies:     make(map[common.Address]*big.Int),
		PoolSets:     make(map[common.Address][]common.Address),
		AtReverts:    make(map[HolderKey]bool),
		Batched:      make(map[common.Address]AllBalances),
		BatchReverts: make(map[common.Address]bool),
		Answers:      make(map[common.Address]OracleAnswer),
		Aggregators:  make(map[common.Address]common.Address),
		CoveBalances: make(map[HolderKey]*big.Int),
		CoveSupplies: make(map[HolderKey]*big.Int),
		CovePools:    make(map[common.Address]common.Address),
		CallCounts:   make(map[string]int),
	}
}

func (s *StubReader) count(method string) {
	s.mu.Lock()
	s.CallCounts[method]++
	s.mu.Unlock()
}

// Count returns how many times a method was read
func (s *StubReader) Count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCounts[method]
}

// SetToken configures ERC20 metadata in one call
func (s *StubReader) SetToken(addr common.Address, symbol, name string, decimals uint8) {
	s.Symbols[addr] = symbol
	s.Names[addr] = name
	s.Decimals[addr] = decimals
}

func (s *StubReader) TokenCount(ctx context.Context, pool common.Address) Call[*big.Int] {
	s.count("nTokens")
	set, ok := s.PoolSets[pool]
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(big.NewInt(int64(len(set))))
}

func (s *StubReader) TokenAt(ctx context.Context, pool common.Address, index *big.Int) Call[common.Address] {
	s.count("tokenAt")
	set, ok := s.PoolSets[pool]
	if !ok {
		return Revert[common.Address]()
	}
	i := int(index.Int64())
	if i < 0 || i >= len(set) {
		return Revert[common.Address]()
	}
	if s.AtReverts[HolderKey{Contract: pool, Account: set[i]}] {
		return Revert[common.Address]()
	}
	return Ok(set[i])
}

func (s *StubReader) BalanceOf(ctx context.Context, token, holder common.Address) Call[*big.Int] {
	s.count("balanceOf")
	bal, ok := s.Balances[HolderKey{Contract: token, Account: holder}]
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(new(big.Int).Set(bal))
}

func (s *StubReader) TotalSupply(ctx context.Context, token common.Address) Call[*big.Int] {
	s.count("totalSupply")
	supply, ok := s.Supplies[token]
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(new(big.Int).Set(supply))
}

func (s *StubReader) AllTokensBalance(ctx context.Context, pool common.Address) Call[AllBalances] {
	s.count("allTokensBalance")
	if s.BatchReverts[pool] {
		return Revert[AllBalances]()
	}
	res, ok := s.Batched[pool]
	if !ok {
		return Revert[AllBalances]()
	}
	return Ok(res)
}

func (s *StubReader) TokenSymbol(ctx context.Context, token common.Address) Call[string] {
	s.count("symbol")
	symbol, ok := s.Symbols[token]
	if !ok {
		return Revert[string]()
	}
	return Ok(symbol)
}

func (s *StubReader) TokenName(ctx context.Context, token common.Address) Call[string] {
	s.count("name")
	name, ok := s.Names[token]
	if !ok {
		return Revert[string]()
	}
	return Ok(name)
}

func (s *StubReader) TokenDecimals(ctx context.Context, token common.Address) Call[uint8] {
	s.count("decimals")
	decimals, ok := s.Decimals[token]
	if !ok {
		return Revert[uint8]()
	}
	return Ok(decimals)
}

func (s *StubReader) LatestAnswer(ctx context.Context, oracle common.Address) Call[OracleAnswer] {
	s.count("latestAnswer")
	answer, ok := s.Answers[oracle]
	if !ok {
		return Revert[OracleAnswer]()
	}
	return Ok(answer)
}

func (s *StubReader) Aggregator(ctx context.Context, proxy common.Address) Call[common.Address] {
	s.count("aggregator")
	addr, ok := s.Aggregators[proxy]
	if !ok {
		return Revert[common.Address]()
	}
	return Ok(addr)
}

func (s *StubReader) CoveLastBalances(ctx context.Context, cove, token common.Address) Call[*big.Int] {
	s.count("lastBalances")
	packed, ok := s.CoveBalances[HolderKey{Contract: cove, Account: token}]
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(new(big.Int).Set(packed))
}

func (s *StubReader) CoveDepositSupply(ctx context.Context, cove, token common.Address) Call[*big.Int] {
	s.count("totalDepositTokenSupply")
	supply, ok := s.CoveSupplies[HolderKey{Contract: cove, Account: token}]
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(new(big.Int).Set(supply))
}

func (s *StubReader) CovePool(ctx context.Context, cove common.Address) Call[common.Address] {
	s.count("exchange")
	addr, ok := s.CovePools[cove]
	if !ok {
		return Revert[common.Address]()
	}
	return Ok(addr)
}
