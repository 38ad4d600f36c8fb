package cove

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/pool-ledger/internal/amount"
	"github.com/pool-ledger/internal/chain"
	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/events"
	"github.com/pool-ledger/internal/ledger"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/models"
	"github.com/pool-ledger/internal/pricing"
	"github.com/pool-ledger/internal/registry"
	"github.com/pool-ledger/internal/store"
	"github.com/pool-ledger/internal/types"
)

var two = decimal.NewFromInt(2)

// Accountant converts cove events into ledger mutations. A cove's imputed
// liquidity is twice the USD value of its staked LP shares, on the model
// that the long-tail asset side matches the share side in value; the
// asset's implied price follows from that value and the asset balance.
type Accountant struct {
	store    store.Store
	chain    chain.Reader
	resolver *pricing.Resolver
	registry *registry.TokenRegistry
	ledger   *ledger.PoolLedger
	dep      *config.Deployment
	logger   *logging.Logger
}

// NewAccountant creates a cove accountant
func NewAccountant(s store.Store, reader chain.Reader, resolver *pricing.Resolver, reg *registry.TokenRegistry, l *ledger.PoolLedger, dep *config.Deployment, logger *logging.Logger) *Accountant {
	return &Accountant{
		store:    s,
		chain:    reader,
		resolver: resolver,
		registry: reg,
		ledger:   l,
		dep:      dep,
		logger:   logger,
	}
}

// loadOrCreateParent returns the satellite contract's aggregate entity,
// resolving its parent pool on first sight
func (a *Accountant) loadOrCreateParent(ctx context.Context, contract common.Address, ts int64) (*models.CoveParent, error) {
	parent := &models.CoveParent{Address: models.NormalizeAddress(contract.Hex())}
	found, err := a.store.Load(ctx, parent)
	if err != nil {
		return nil, err
	}
	if found {
		return parent, nil
	}

	parent.CreatedAt = ts
	parent.VolumeUSD = decimal.Zero
	if pool := a.chain.CovePool(ctx, contract); !pool.Reverted {
		parent.Pool = models.NormalizeAddress(pool.Value.Hex())
		if _, err := a.ledger.LoadOrCreatePool(ctx, pool.Value, ts); err != nil {
			return nil, err
		}
	} else {
		a.logger.WithField("cove", parent.Address).Warn("cove parent pool read reverted")
	}
	if err := a.store.Save(ctx, parent); err != nil {
		return nil, err
	}
	return parent, nil
}

// loadOrCreateCove returns the per-asset cove under a parent, registering
// the long-tail asset on first sight
func (a *Accountant) loadOrCreateCove(ctx context.Context, parent *models.CoveParent, asset common.Address, ev events.Meta) (*models.Cove, error) {
	cove := &models.Cove{Parent: parent.Address, Asset: models.NormalizeAddress(asset.Hex())}
	found, err := a.store.Load(ctx, cove)
	if err != nil {
		return nil, err
	}
	if found {
		return cove, nil
	}

	token, err := a.registry.LoadOrCreate(ctx, asset, types.TailLong)
	if err != nil {
		return nil, err
	}
	cove.Pool = parent.Pool
	cove.AssetSymbol = token.Symbol
	cove.AssetName = token.Name
	cove.CreatedAt = ev.BlockTime
	cove.Creator = models.NormalizeAddress(ev.Origin.Hex())
	cove.TxHash = ev.TxHash.Hex()
	cove.PoolTokenAmount = decimal.Zero
	cove.LongtailTokenAmount = decimal.Zero
	cove.TVLUSD = decimal.Zero
	cove.VolumeUSD = decimal.Zero

	a.logger.WithFields(map[string]interface{}{
		"cove":  cove.EntityID(),
		"asset": cove.AssetSymbol,
	}).Info("registered cove")

	if err := a.store.Save(ctx, cove); err != nil {
		return nil, err
	}
	return cove, nil
}

// refreshValuation re-reads the cove's packed balances and reprices it
// against the parent pool, returning the asset's implied USD price. The
// implied price is written back to the long-tail token since coves are its
// only price source.
func (a *Accountant) refreshValuation(ctx context.Context, cove *models.Cove, ts int64) (decimal.Decimal, error) {
	parentAddr := common.HexToAddress(cove.Parent)
	assetAddr := common.HexToAddress(cove.Asset)

	packed := a.chain.CoveLastBalances(ctx, parentAddr, assetAddr)
	if packed.Reverted {
		a.logger.WithField("cove", cove.EntityID()).Warn("cove balance read reverted, keeping last valuation")
		if err := a.store.Save(ctx, cove); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, nil
	}
	shares, assetRaw := DecodePackedBalances(packed.Value)

	pool := &models.Pool{Address: cove.Pool}
	poolFound, err := a.store.Load(ctx, pool)
	if err != nil {
		return decimal.Zero, err
	}

	token, err := a.registry.LoadOrCreate(ctx, assetAddr, types.TailLong)
	if err != nil {
		return decimal.Zero, err
	}

	shareValue := decimal.Zero
	if poolFound {
		shareValue = pool.PoolValueUSD.Mul(fraction(shares, pool.Supply()))
	}
	assetAmount := amount.ToDecimal(assetRaw, token.Decimals)

	cove.PoolTokenAmount = amount.ToDecimal(shares, amount.PoolTokenDecimals)
	cove.LongtailTokenAmount = assetAmount
	cove.TVLUSD = shareValue.Mul(two)

	implied := decimal.Zero
	if assetAmount.Sign() > 0 {
		implied = shareValue.Div(assetAmount)
	}
	token.TVL = assetAmount
	token.TVLUSD = shareValue
	token.PriceUSD = implied
	token.PriceSource = types.PriceSourceFallback
	token.PriceUpdatedAt = ts
	if err := a.store.Save(ctx, token); err != nil {
		return decimal.Zero, err
	}
	if err := a.store.Save(ctx, cove); err != nil {
		return decimal.Zero, err
	}
	return implied, nil
}

// HandleCoveDeposited accounts an internal deposit-token mint into a cove.
// The deposit's USD value is the cove's imputed liquidity times the minted
// fraction of the internal deposit-token supply.
func (a *Accountant) HandleCoveDeposited(ctx context.Context, ev *events.CoveDeposited) error {
	parent, err := a.loadOrCreateParent(ctx, ev.Contract, ev.BlockTime)
	if err != nil {
		return err
	}
	cove, err := a.loadOrCreateCove(ctx, parent, ev.Asset, ev.Meta)
	if err != nil {
		return err
	}

	cove.DepositCount++
	implied, err := a.refreshValuation(ctx, cove, ev.BlockTime)
	if err != nil {
		return err
	}

	usd := cove.TVLUSD.Mul(fraction(ev.PoolTokens, a.depositSupply(ctx, ev)))

	record := &models.CoveDeposit{
		TxHash:    ev.TxHash.Hex(),
		Timestamp: ev.BlockTime,
		Cove:      cove.EntityID(),
		Depositor: models.NormalizeAddress(ev.Depositor.Hex()),
		AmountUSD: usd,
	}
	if err := a.store.Save(ctx, record); err != nil {
		return err
	}

	token, err := a.registry.LoadOrCreate(ctx, ev.Asset, types.TailLong)
	if err != nil {
		return err
	}
	token.DepositedUSD = token.DepositedUSD.Add(usd)
	if err := a.store.Save(ctx, token); err != nil {
		return err
	}

	stake := &models.UserCoveStake{Cove: cove.EntityID(), Wallet: models.NormalizeAddress(ev.Depositor.Hex())}
	if _, err := a.store.Load(ctx, stake); err != nil {
		return err
	}
	stake.DepositTokens = new(big.Int).Add(stake.Tokens(), ev.PoolTokens)
	stake.Active = stake.DepositTokens.Sign() > 0
	if err := a.store.Save(ctx, stake); err != nil {
		return err
	}

	parent.DepositCount++
	parent.TxCount++
	if err := a.store.Save(ctx, parent); err != nil {
		return err
	}
	return a.bumpSnapshots(ctx, cove, parent, ev.BlockTime, snapshotDelta{deposits: 1, price: implied})
}

// depositSupply returns the cove's internal deposit-token supply after the
// deposit. The event carries it; a zero value falls back to the live
// contract read, then to the minted amount itself.
func (a *Accountant) depositSupply(ctx context.Context, ev *events.CoveDeposited) *big.Int {
	if ev.PoolTokensAfterDeposit != nil && ev.PoolTokensAfterDeposit.Sign() > 0 {
		return ev.PoolTokensAfterDeposit
	}
	a.logger.WithFields(map[string]interface{}{
		"cove": models.NormalizeAddress(ev.Contract.Hex()),
		"tx":   ev.TxHash.Hex(),
	}).Warn("deposit event carried no internal supply, re-reading it")
	if supply := a.chain.CoveDepositSupply(ctx, ev.Contract, ev.Asset); !supply.Reverted && supply.Value.Sign() > 0 {
		return supply.Value
	}
	return ev.PoolTokens
}

// HandleCoveWithdrawn accounts an internal deposit-token burn out of a
// cove. The withdrawal's USD value is the cove's imputed liquidity times the
// burnt fraction of the internal supply left after the burn; a full exit
// leaves zero behind, so the burnt amount itself becomes the denominator.
func (a *Accountant) HandleCoveWithdrawn(ctx context.Context, ev *events.CoveWithdrawn) error {
	parent, err := a.loadOrCreateParent(ctx, ev.Contract, ev.BlockTime)
	if err != nil {
		return err
	}
	cove, err := a.loadOrCreateCove(ctx, parent, ev.Asset, ev.Meta)
	if err != nil {
		return err
	}

	cove.WithdrawalCount++
	implied, err := a.refreshValuation(ctx, cove, ev.BlockTime)
	if err != nil {
		return err
	}

	denominator := ev.PoolTokensAfterWithdrawal
	if denominator == nil || denominator.Sign() == 0 {
		denominator = ev.PoolTokens
	}
	usd := cove.TVLUSD.Mul(fraction(ev.PoolTokens, denominator))

	record := &models.CoveWithdrawal{
		TxHash:     ev.TxHash.Hex(),
		Timestamp:  ev.BlockTime,
		Cove:       cove.EntityID(),
		Withdrawer: models.NormalizeAddress(ev.Withdrawer.Hex()),
		AmountUSD:  usd,
	}
	if err := a.store.Save(ctx, record); err != nil {
		return err
	}

	stake := &models.UserCoveStake{Cove: cove.EntityID(), Wallet: models.NormalizeAddress(ev.Withdrawer.Hex())}
	if _, err := a.store.Load(ctx, stake); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(stake.Tokens(), ev.PoolTokens)
	if remaining.Sign() < 0 {
		a.logger.WithFields(map[string]interface{}{
			"cove":   cove.EntityID(),
			"wallet": stake.Wallet,
		}).Warn("cove stake went negative, clamping to zero")
		remaining.SetInt64(0)
	}
	stake.DepositTokens = remaining
	stake.Active = remaining.Sign() > 0
	if err := a.store.Save(ctx, stake); err != nil {
		return err
	}

	parent.WithdrawalCount++
	parent.TxCount++
	if err := a.store.Save(ctx, parent); err != nil {
		return err
	}
	return a.bumpSnapshots(ctx, cove, parent, ev.BlockTime, snapshotDelta{withdrawals: 1, price: implied})
}

// HandleCoveSwapped accounts a long-tail asset exchange routed through a
// cove. The long-tail leg is priced by the cove's implied price; the fee
// follows the pool swap rule, with a zero implied price treated as
// unresolved.
func (a *Accountant) HandleCoveSwapped(ctx context.Context, ev *events.CoveSwapped) error {
	parent, err := a.loadOrCreateParent(ctx, ev.Contract, ev.BlockTime)
	if err != nil {
		return err
	}

	// the leg that is not a core pool asset is the cove's asset
	coveAsset := ev.InAsset
	if a.dep.IsShortTail(models.NormalizeAddress(ev.InAsset.Hex())) {
		coveAsset = ev.OutAsset
	}
	cove, err := a.loadOrCreateCove(ctx, parent, coveAsset, ev.Meta)
	if err != nil {
		return err
	}

	implied, err := a.refreshValuation(ctx, cove, ev.BlockTime)
	if err != nil {
		return err
	}

	inToken, err := a.registry.LoadOrCreate(ctx, ev.InAsset, a.tailOf(ev.InAsset))
	if err != nil {
		return err
	}
	outToken, err := a.registry.LoadOrCreate(ctx, ev.OutAsset, a.tailOf(ev.OutAsset))
	if err != nil {
		return err
	}

	inPrice, inResolved, err := a.legPrice(ctx, inToken, cove, implied, ev.BlockTime)
	if err != nil {
		return err
	}
	outPrice, outResolved, err := a.legPrice(ctx, outToken, cove, implied, ev.BlockTime)
	if err != nil {
		return err
	}

	amountIn := amount.ToDecimal(ev.InAmount, inToken.Decimals)
	amountOut := amount.ToDecimal(ev.OutAmount, outToken.Decimals)
	amountInUSD := amountIn.Mul(inPrice)
	amountOutUSD := amountOut.Mul(outPrice)
	volumeUSD := amountInUSD.Add(amountOutUSD).Div(two)

	feeUSD := decimal.Zero
	if inResolved && outResolved {
		if gap := amountInUSD.Sub(amountOutUSD); gap.Sign() > 0 {
			feeUSD = gap
		}
	}

	source := a.dep.NormalizeSource(ev.AuxiliaryData)
	if err := ledger.BumpCoveSource(ctx, a.store, cove.EntityID(), source, volumeUSD); err != nil {
		return err
	}
	pair, err := ledger.BumpPair(ctx, a.store, cove.Pool, models.NormalizeAddress(ev.InAsset.Hex()), models.NormalizeAddress(ev.OutAsset.Hex()), volumeUSD)
	if err != nil {
		return err
	}

	record := &models.Swap{
		TxHash:       ev.TxHash.Hex(),
		LogIndex:     ev.LogIndex,
		Timestamp:    ev.BlockTime,
		Kind:         types.SwapCove,
		Cove:         cove.EntityID(),
		Pool:         cove.Pool,
		InToken:      models.NormalizeAddress(ev.InAsset.Hex()),
		OutToken:     models.NormalizeAddress(ev.OutAsset.Hex()),
		Origin:       models.NormalizeAddress(ev.Origin.Hex()),
		Sender:       models.NormalizeAddress(ev.Origin.Hex()),
		Recipient:    models.NormalizeAddress(ev.Recipient.Hex()),
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		AmountInRaw:  ev.InAmount,
		AmountOutRaw: ev.OutAmount,
		PriceInUSD:   inPrice,
		PriceOutUSD:  outPrice,
		AmountInUSD:  amountInUSD,
		AmountOutUSD: amountOutUSD,
		VolumeUSD:    volumeUSD,
		FeeUSD:       feeUSD,
		RevenueUSD:   decimal.Zero,
		Pair:         pair.EntityID(),
		Source:       source,
	}
	if err := a.store.Save(ctx, record); err != nil {
		return err
	}

	inToken.TxCount++
	inToken.Volume = inToken.Volume.Add(amountIn)
	inToken.VolumeUSD = inToken.VolumeUSD.Add(amountInUSD)
	if err := a.store.Save(ctx, inToken); err != nil {
		return err
	}
	outToken.TxCount++
	outToken.Volume = outToken.Volume.Add(amountOut)
	outToken.VolumeUSD = outToken.VolumeUSD.Add(amountOutUSD)
	if err := a.store.Save(ctx, outToken); err != nil {
		return err
	}

	if _, err := ledger.TouchUser(ctx, a.store, ev.Origin.Hex(), ev.BlockTime, volumeUSD); err != nil {
		return err
	}

	cove.SwapCount++
	cove.VolumeUSD = cove.VolumeUSD.Add(volumeUSD)
	if err := a.store.Save(ctx, cove); err != nil {
		return err
	}
	parent.TxCount++
	parent.VolumeUSD = parent.VolumeUSD.Add(volumeUSD)
	if err := a.store.Save(ctx, parent); err != nil {
		return err
	}

	return a.bumpSnapshots(ctx, cove, parent, ev.BlockTime, snapshotDelta{volume: volumeUSD, price: implied})
}

// legPrice prices one swap leg: core assets go through the resolver, the
// cove's own asset uses the freshly implied price. A zero price counts as
// unresolved for fee purposes.
func (a *Accountant) legPrice(ctx context.Context, token *models.Token, cove *models.Cove, implied decimal.Decimal, asOf int64) (decimal.Decimal, bool, error) {
	if token.Address == cove.Asset {
		return implied, implied.Sign() > 0, nil
	}
	price, source, err := a.resolver.Resolve(ctx, token, asOf)
	if err != nil {
		return decimal.Zero, false, err
	}
	return price, source != types.PriceSourceUnresolved, nil
}

func (a *Accountant) tailOf(asset common.Address) types.TokenTail {
	if a.dep.IsShortTail(models.NormalizeAddress(asset.Hex())) {
		return types.TailShort
	}
	return types.TailLong
}

// fraction returns num/den as a decimal, zero when den is zero
func fraction(num, den *big.Int) decimal.Decimal {
	if den == nil || den.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(num, 0).Div(decimal.NewFromBigInt(den, 0))
}
