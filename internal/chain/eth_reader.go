package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/pool-ledger/internal/logging"
)

const erc20ABI = `[
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]}
]`

const poolABI = `[
	{"name":"nTokens","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"tokenAt","type":"function","stateMutability":"view","inputs":[{"type":"uint256"}],"outputs":[{"type":"address"}]},
	{"name":"allTokensBalance","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256[]"},{"type":"address[]"},{"type":"uint256"}]}
]`

const oracleABI = `[
	{"name":"latestRoundData","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint80"},{"type":"int256"},{"type":"uint256"},{"type":"uint256"},{"type":"uint80"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]},
	{"name":"aggregator","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]}
]`

const coveABI = `[
	{"name":"lastBalances","type":"function","stateMutability":"view","inputs":[{"type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"totalDepositTokenSupply","type":"function","stateMutability":"view","inputs":[{"type":"address"}],"outputs":[{"type":"uint256"}]},
	{"name":"exchange","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"address"}]}
]`

// EthReader implements Reader over an Ethereum JSON-RPC endpoint.
// A reverted or otherwise failed eth_call is reported as Reverted; the caller
// picks the fallback path, never a retry.
type EthReader struct {
	client  *ethclient.Client
	limiter *rate.Limiter
	logger  *logging.Logger

	erc20  abi.ABI
	pool   abi.ABI
	oracle abi.ABI
	cove   abi.ABI
}

// NewEthReader creates a reader over an RPC endpoint. readsPerSec <= 0
// disables rate limiting.
func NewEthReader(rpcURL string, readsPerSec float64, burst int, logger *logging.Logger) (*EthReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", rpcURL, err)
	}
	return newEthReader(client, readsPerSec, burst, logger)
}

func newEthReader(client *ethclient.Client, readsPerSec float64, burst int, logger *logging.Logger) (*EthReader, error) {
	r := &EthReader{client: client, logger: logger}

	var err error
	if r.erc20, err = abi.JSON(strings.NewReader(erc20ABI)); err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}
	if r.pool, err = abi.JSON(strings.NewReader(poolABI)); err != nil {
		return nil, fmt.Errorf("failed to parse pool abi: %w", err)
	}
	if r.oracle, err = abi.JSON(strings.NewReader(oracleABI)); err != nil {
		return nil, fmt.Errorf("failed to parse oracle abi: %w", err)
	}
	if r.cove, err = abi.JSON(strings.NewReader(coveABI)); err != nil {
		return nil, fmt.Errorf("failed to parse cove abi: %w", err)
	}

	if readsPerSec > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(readsPerSec), burst)
	}
	return r, nil
}

// Client exposes the underlying eth client for log polling
func (r *EthReader) Client() *ethclient.Client {
	return r.client
}

// call packs and executes one eth_call, unpacking outputs into a value slice
func (r *EthReader) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, bool) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, true
		}
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"contract": contract.Hex(),
			"method":   method,
		}).WithError(err).Warn("Failed to pack call data")
		return nil, true
	}

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil || len(out) == 0 {
		return nil, true
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"contract": contract.Hex(),
			"method":   method,
		}).WithError(err).Warn("Failed to unpack call result")
		return nil, true
	}
	return values, false
}

func (r *EthReader) TokenCount(ctx context.Context, pool common.Address) Call[*big.Int] {
	values, reverted := r.call(ctx, pool, r.pool, "nTokens")
	if reverted {
		return Revert[*big.Int]()
	}
	n, ok := values[0].(*big.Int)
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(n)
}

func (r *EthReader) TokenAt(ctx context.Context, pool common.Address, index *big.Int) Call[common.Address] {
	values, reverted := r.call(ctx, pool, r.pool, "tokenAt", index)
	if reverted {
		return Revert[common.Address]()
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return Revert[common.Address]()
	}
	return Ok(addr)
}

func (r *EthReader) BalanceOf(ctx context.Context, token, holder common.Address) Call[*big.Int] {
	values, reverted := r.call(ctx, token, r.erc20, "balanceOf", holder)
	if reverted {
		return Revert[*big.Int]()
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(bal)
}

func (r *EthReader) TotalSupply(ctx context.Context, token common.Address) Call[*big.Int] {
	values, reverted := r.call(ctx, token, r.erc20, "totalSupply")
	if reverted {
		return Revert[*big.Int]()
	}
	supply, ok := values[0].(*big.Int)
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(supply)
}

func (r *EthReader) AllTokensBalance(ctx context.Context, pool common.Address) Call[AllBalances] {
	values, reverted := r.call(ctx, pool, r.pool, "allTokensBalance")
	if reverted || len(values) != 3 {
		return Revert[AllBalances]()
	}
	balances, ok0 := values[0].([]*big.Int)
	tokens, ok1 := values[1].([]common.Address)
	supply, ok2 := values[2].(*big.Int)
	if !ok0 || !ok1 || !ok2 || len(balances) != len(tokens) {
		return Revert[AllBalances]()
	}
	return Ok(AllBalances{Balances: balances, Tokens: tokens, TotalSupply: supply})
}

func (r *EthReader) TokenSymbol(ctx context.Context, token common.Address) Call[string] {
	values, reverted := r.call(ctx, token, r.erc20, "symbol")
	if reverted {
		return Revert[string]()
	}
	symbol, ok := values[0].(string)
	if !ok {
		return Revert[string]()
	}
	return Ok(symbol)
}

func (r *EthReader) TokenName(ctx context.Context, token common.Address) Call[string] {
	values, reverted := r.call(ctx, token, r.erc20, "name")
	if reverted {
		return Revert[string]()
	}
	name, ok := values[0].(string)
	if !ok {
		return Revert[string]()
	}
	return Ok(name)
}

func (r *EthReader) TokenDecimals(ctx context.Context, token common.Address) Call[uint8] {
	values, reverted := r.call(ctx, token, r.erc20, "decimals")
	if reverted {
		return Revert[uint8]()
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return Revert[uint8]()
	}
	return Ok(decimals)
}

func (r *EthReader) LatestAnswer(ctx context.Context, oracle common.Address) Call[OracleAnswer] {
	values, reverted := r.call(ctx, oracle, r.oracle, "latestRoundData")
	if reverted || len(values) != 5 {
		return Revert[OracleAnswer]()
	}
	answer, ok := values[1].(*big.Int)
	if !ok {
		return Revert[OracleAnswer]()
	}

	decValues, reverted := r.call(ctx, oracle, r.oracle, "decimals")
	if reverted {
		return Revert[OracleAnswer]()
	}
	decimals, ok := decValues[0].(uint8)
	if !ok {
		return Revert[OracleAnswer]()
	}
	return Ok(OracleAnswer{Answer: answer, Decimals: decimals})
}

func (r *EthReader) Aggregator(ctx context.Context, proxy common.Address) Call[common.Address] {
	values, reverted := r.call(ctx, proxy, r.oracle, "aggregator")
	if reverted {
		return Revert[common.Address]()
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return Revert[common.Address]()
	}
	return Ok(addr)
}

func (r *EthReader) CoveLastBalances(ctx context.Context, cove, token common.Address) Call[*big.Int] {
	values, reverted := r.call(ctx, cove, r.cove, "lastBalances", token)
	if reverted {
		return Revert[*big.Int]()
	}
	packed, ok := values[0].(*big.Int)
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(packed)
}

func (r *EthReader) CoveDepositSupply(ctx context.Context, cove, token common.Address) Call[*big.Int] {
	values, reverted := r.call(ctx, cove, r.cove, "totalDepositTokenSupply", token)
	if reverted {
		return Revert[*big.Int]()
	}
	supply, ok := values[0].(*big.Int)
	if !ok {
		return Revert[*big.Int]()
	}
	return Ok(supply)
}

func (r *EthReader) CovePool(ctx context.Context, cove common.Address) Call[common.Address] {
	values, reverted := r.call(ctx, cove, r.cove, "exchange")
	if reverted {
		return Revert[common.Address]()
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return Revert[common.Address]()
	}
	return Ok(addr)
}
