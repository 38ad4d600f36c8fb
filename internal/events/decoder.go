package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/pool-ledger/internal/errors"
)

// combinedABI holds every event signature the decoder understands, across
// pool, oracle, cove, vault and registry contracts.
const combinedABI = `[
	{"type":"event","name":"Deposited","inputs":[{"name":"depositor","type":"address","indexed":true},{"name":"poolTokens","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdrawn","inputs":[{"name":"withdrawer","type":"address","indexed":true},{"name":"poolTokens","type":"uint256","indexed":false},{"name":"fractionOfPool","type":"uint256","indexed":false}]},
	{"type":"event","name":"AssetWithdrawn","inputs":[{"name":"withdrawer","type":"address","indexed":true},{"name":"asset","type":"address","indexed":false},{"name":"poolTokens","type":"uint256","indexed":false},{"name":"assetAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Swapped","inputs":[{"name":"inAsset","type":"address","indexed":true},{"name":"outAsset","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"inAmount","type":"uint256","indexed":false},{"name":"outAmount","type":"uint256","indexed":false},{"name":"auxiliaryData","type":"bytes","indexed":false}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"AnswerUpdated","inputs":[{"name":"current","type":"int256","indexed":true},{"name":"roundId","type":"uint256","indexed":true},{"name":"updatedAt","type":"uint256","indexed":false}]},
	{"type":"event","name":"FeesTaken","inputs":[{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"CoveDeposited","inputs":[{"name":"asset","type":"address","indexed":true},{"name":"depositor","type":"address","indexed":true},{"name":"poolTokens","type":"uint256","indexed":false},{"name":"poolTokensAfterDeposit","type":"uint256","indexed":false}]},
	{"type":"event","name":"CoveWithdrawn","inputs":[{"name":"asset","type":"address","indexed":true},{"name":"withdrawer","type":"address","indexed":true},{"name":"poolTokens","type":"uint256","indexed":false},{"name":"poolTokensAfterWithdrawal","type":"uint256","indexed":false}]},
	{"type":"event","name":"CoveSwapped","inputs":[{"name":"inAsset","type":"address","indexed":true},{"name":"outAsset","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"inAmount","type":"uint256","indexed":false},{"name":"outAmount","type":"uint256","indexed":false},{"name":"auxiliaryData","type":"bytes","indexed":false}]},
	{"type":"event","name":"VerifiedPoolCreated","inputs":[{"name":"pool","type":"address","indexed":true}]},
	{"type":"event","name":"PermitRouterCreated","inputs":[{"name":"pool","type":"address","indexed":true},{"name":"router","type":"address","indexed":false}]},
	{"type":"event","name":"LpTransferCreated","inputs":[{"name":"oldPool","type":"address","indexed":true},{"name":"newPool","type":"address","indexed":true},{"name":"lpTransfer","type":"address","indexed":false}]},
	{"type":"event","name":"FarmCreated","inputs":[{"name":"pool","type":"address","indexed":true},{"name":"vault","type":"address","indexed":false},{"name":"rewardToken","type":"address","indexed":false},{"name":"name","type":"string","indexed":false}]},
	{"type":"event","name":"FeeSplitCreated","inputs":[{"name":"pool","type":"address","indexed":true},{"name":"vault","type":"address","indexed":false}]},
	{"type":"event","name":"ProtocolDepositCreated","inputs":[{"name":"pool","type":"address","indexed":true},{"name":"vault","type":"address","indexed":false},{"name":"name","type":"string","indexed":false}]}
]`

// Decoder maps raw logs to typed payloads by topic signature
type Decoder struct {
	abi     abi.ABI
	byTopic map[common.Hash]abi.Event
}

// NewDecoder builds the decoder from the combined event ABI
func NewDecoder() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(combinedABI))
	if err != nil {
		return nil, err
	}
	byTopic := make(map[common.Hash]abi.Event, len(parsed.Events))
	for _, ev := range parsed.Events {
		byTopic[ev.ID] = ev
	}
	return &Decoder{abi: parsed, byTopic: byTopic}, nil
}

// SignatureHash returns the topic hash for a known event name. Panics on an
// unknown name; only used with the names declared above.
func (d *Decoder) SignatureHash(name string) common.Hash {
	ev, ok := d.abi.Events[name]
	if !ok {
		panic("unknown event " + name)
	}
	return ev.ID
}

// Decode turns a raw log into a typed payload. Logs whose topic is not a
// known signature decode to nil without error so callers can skip them.
func (d *Decoder) Decode(log ethtypes.Log, blockTime int64, origin common.Address) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, nil
	}
	ev, ok := d.byTopic[log.Topics[0]]
	if !ok {
		return nil, nil
	}

	fields, err := d.unpack(ev, log)
	if err != nil {
		return nil, errors.NewDecodeError("failed to unpack "+ev.Name+" log", err)
	}

	meta := Meta{
		Contract:    log.Address,
		BlockNumber: log.BlockNumber,
		BlockTime:   blockTime,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		Origin:      origin,
	}

	switch ev.Name {
	case "Deposited":
		return &Deposited{
			Meta:       meta,
			Depositor:  fields["depositor"].(common.Address),
			PoolTokens: fields["poolTokens"].(*big.Int),
		}, nil
	case "Withdrawn":
		return &Withdrawn{
			Meta:       meta,
			Withdrawer: fields["withdrawer"].(common.Address),
			PoolTokens: fields["poolTokens"].(*big.Int),
		}, nil
	case "AssetWithdrawn":
		return &AssetWithdrawn{
			Meta:        meta,
			Withdrawer:  fields["withdrawer"].(common.Address),
			Asset:       fields["asset"].(common.Address),
			PoolTokens:  fields["poolTokens"].(*big.Int),
			AssetAmount: fields["assetAmount"].(*big.Int),
		}, nil
	case "Swapped":
		return &Swapped{
			Meta:          meta,
			InAsset:       fields["inAsset"].(common.Address),
			OutAsset:      fields["outAsset"].(common.Address),
			Recipient:     fields["recipient"].(common.Address),
			InAmount:      fields["inAmount"].(*big.Int),
			OutAmount:     fields["outAmount"].(*big.Int),
			AuxiliaryData: fields["auxiliaryData"].([]byte),
		}, nil
	case "Transfer":
		return &Transfer{
			Meta:  meta,
			From:  fields["from"].(common.Address),
			To:    fields["to"].(common.Address),
			Value: fields["value"].(*big.Int),
		}, nil
	case "AnswerUpdated":
		return &AnswerUpdated{
			Meta:      meta,
			Current:   fields["current"].(*big.Int),
			RoundID:   fields["roundId"].(*big.Int),
			UpdatedAt: fields["updatedAt"].(*big.Int).Int64(),
		}, nil
	case "FeesTaken":
		return &FeesTaken{
			Meta:   meta,
			Amount: fields["amount"].(*big.Int),
		}, nil
	case "CoveDeposited":
		return &CoveDeposited{
			Meta:                   meta,
			Asset:                  fields["asset"].(common.Address),
			Depositor:              fields["depositor"].(common.Address),
			PoolTokens:             fields["poolTokens"].(*big.Int),
			PoolTokensAfterDeposit: fields["poolTokensAfterDeposit"].(*big.Int),
		}, nil
	case "CoveWithdrawn":
		return &CoveWithdrawn{
			Meta:                      meta,
			Asset:                     fields["asset"].(common.Address),
			Withdrawer:                fields["withdrawer"].(common.Address),
			PoolTokens:                fields["poolTokens"].(*big.Int),
			PoolTokensAfterWithdrawal: fields["poolTokensAfterWithdrawal"].(*big.Int),
		}, nil
	case "CoveSwapped":
		return &CoveSwapped{
			Meta:          meta,
			InAsset:       fields["inAsset"].(common.Address),
			OutAsset:      fields["outAsset"].(common.Address),
			Recipient:     fields["recipient"].(common.Address),
			InAmount:      fields["inAmount"].(*big.Int),
			OutAmount:     fields["outAmount"].(*big.Int),
			AuxiliaryData: fields["auxiliaryData"].([]byte),
		}, nil
	case "VerifiedPoolCreated":
		return &VerifiedPoolCreated{
			Meta: meta,
			Pool: fields["pool"].(common.Address),
		}, nil
	case "PermitRouterCreated":
		return &PermitRouterCreated{
			Meta:   meta,
			Pool:   fields["pool"].(common.Address),
			Router: fields["router"].(common.Address),
		}, nil
	case "LpTransferCreated":
		return &LpTransferCreated{
			Meta:       meta,
			OldPool:    fields["oldPool"].(common.Address),
			NewPool:    fields["newPool"].(common.Address),
			LpTransfer: fields["lpTransfer"].(common.Address),
		}, nil
	case "FarmCreated":
		return &FarmCreated{
			Meta:        meta,
			Pool:        fields["pool"].(common.Address),
			Vault:       fields["vault"].(common.Address),
			RewardToken: fields["rewardToken"].(common.Address),
			Name:        fields["name"].(string),
		}, nil
	case "FeeSplitCreated":
		return &FeeSplitCreated{
			Meta:  meta,
			Pool:  fields["pool"].(common.Address),
			Vault: fields["vault"].(common.Address),
		}, nil
	case "ProtocolDepositCreated":
		return &ProtocolDepositCreated{
			Meta:  meta,
			Pool:  fields["pool"].(common.Address),
			Vault: fields["vault"].(common.Address),
			Name:  fields["name"].(string),
		}, nil
	}
	return nil, nil
}

func (d *Decoder) unpack(ev abi.Event, log ethtypes.Log) (map[string]interface{}, error) {
	fields := make(map[string]interface{})

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
			return nil, err
		}
	}
	if len(ev.Inputs.NonIndexed()) > 0 {
		if err := d.abi.UnpackIntoMap(fields, ev.Name, log.Data); err != nil {
			return nil, err
		}
	}
	return fields, nil
}
