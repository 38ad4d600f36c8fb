package models

import (
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/types"
)

func itoa(i uint) string { return strconv.FormatUint(uint64(i), 10) }

// Deposit is an immutable record of a liquidity deposit, keyed by transaction
type Deposit struct {
	TxHash     string          `json:"txHash"`
	Timestamp  int64           `json:"timestamp"`
	Pool       string          `json:"pool"`
	Depositor  string          `json:"depositor"`
	PoolTokens decimal.Decimal `json:"poolTokens"`
	AmountUSD  decimal.Decimal `json:"amountUsd"`
}

func (d *Deposit) EntityKind() string { return KindDeposit }
func (d *Deposit) EntityID() string   { return d.TxHash }

// Withdrawal is an immutable record of a liquidity withdrawal
type Withdrawal struct {
	TxHash     string          `json:"txHash"`
	Timestamp  int64           `json:"timestamp"`
	Pool       string          `json:"pool"`
	Withdrawer string          `json:"withdrawer"`
	PoolTokens decimal.Decimal `json:"poolTokens"`
	AmountUSD  decimal.Decimal `json:"amountUsd"`
}

func (w *Withdrawal) EntityKind() string { return KindWithdrawal }
func (w *Withdrawal) EntityID() string   { return w.TxHash }

// Swap is an immutable record of one swap log
type Swap struct {
	TxHash    string         `json:"txHash"`
	LogIndex  uint           `json:"logIndex"`
	Timestamp int64          `json:"timestamp"`
	Kind      types.SwapKind `json:"kind"`
	Pool      string         `json:"pool,omitempty"`
	Cove      string         `json:"cove,omitempty"`

	InToken   string `json:"inToken"`
	OutToken  string `json:"outToken"`
	Origin    string `json:"origin"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`

	AmountIn     decimal.Decimal `json:"amountIn"`
	AmountOut    decimal.Decimal `json:"amountOut"`
	AmountInRaw  *big.Int        `json:"amountInRaw"`
	AmountOutRaw *big.Int        `json:"amountOutRaw"`

	PriceInUSD   decimal.Decimal `json:"priceInUsd"`
	PriceOutUSD  decimal.Decimal `json:"priceOutUsd"`
	AmountInUSD  decimal.Decimal `json:"amountInUsd"`
	AmountOutUSD decimal.Decimal `json:"amountOutUsd"`
	VolumeUSD    decimal.Decimal `json:"volumeUsd"`
	FeeUSD       decimal.Decimal `json:"feeUsd"`
	RevenueUSD   decimal.Decimal `json:"revenueUsd"`

	Pair   string `json:"pair,omitempty"`
	Source string `json:"source"`
}

func (s *Swap) EntityKind() string { return KindSwap }
func (s *Swap) EntityID() string   { return CompositeID(s.TxHash, itoa(s.LogIndex)) }

// FeeTake records a fee distribution executed by a fee-split vault
type FeeTake struct {
	TxHash    string          `json:"txHash"`
	LogIndex  uint            `json:"logIndex"`
	Timestamp int64           `json:"timestamp"`
	Vault     string          `json:"vault"`
	Pool      string          `json:"pool"`
	Amount    decimal.Decimal `json:"amount"`
}

func (f *FeeTake) EntityKind() string { return KindFeeTake }
func (f *FeeTake) EntityID() string   { return CompositeID(f.TxHash, itoa(f.LogIndex)) }
