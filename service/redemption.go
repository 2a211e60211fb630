package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/internal/solana"
	"github.com/layer-3/carbx/ports"
)

// Messages shown to the user during a redemption
const (
	MsgWalletNotConnected = "Wallet is not connected"
	MsgInvalidAmount      = "Amount must be a positive number"
	MsgMissingDestination = "Puro user address is required"
	MsgRegistryNotFound   = "Registry data for selected token was not found"
	MsgBuilding           = "Building burn transaction..."
	MsgSending            = "Sending transaction..."
	MsgConfirmed          = "Transaction confirmed"
	MsgBurnFailed         = "Burn failed"
)

// RedemptionState is the stage of the redemption dialog
type RedemptionState string

const (
	RedemptionIdle                 RedemptionState = "idle"
	RedemptionValidating           RedemptionState = "validating"
	RedemptionBuildingInstructions RedemptionState = "building_instructions"
	RedemptionAwaitingSignature    RedemptionState = "awaiting_signature_and_submission"
	RedemptionConfirming           RedemptionState = "confirming"
	RedemptionSettledSuccess       RedemptionState = "settled_success"
	RedemptionSettledFailed        RedemptionState = "settled_failed"
)

// Busy reports whether an attempt is running
func (s RedemptionState) Busy() bool {
	switch s {
	case RedemptionValidating, RedemptionBuildingInstructions, RedemptionAwaitingSignature, RedemptionConfirming:
		return true
	default:
		return false
	}
}

// RedemptionConfig holds the redemption settings
type RedemptionConfig struct {
	ConfigAccount solana.PublicKey
	Cluster       solana.Cluster
	Commitment    ports.Commitment
	ValidationTTL time.Duration
	RegistryTTL   time.Duration
	SuccessTTL    time.Duration
	FailureTTL    time.Duration
}

// RedemptionSnapshot is the observable state of the redemption dialog
type RedemptionSnapshot struct {
	State          RedemptionState    `json:"state"`
	Asset          *core.VintageAsset `json:"asset,omitempty"`
	Amount         string             `json:"amount"`
	Destination    string             `json:"destination"`
	NotificationID int64              `json:"notificationId,omitempty"`
	Signature      string             `json:"signature,omitempty"`
	ExplorerURL    string             `json:"explorerUrl,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// RedemptionResult is a confirmed burn
type RedemptionResult struct {
	Signature   string `json:"signature"`
	ExplorerURL string `json:"explorerUrl"`
}

// Redemption drives the single redemption dialog: validate the form, build the burn,
// have the wallet sign it, submit and confirm it.
type Redemption struct {
	wallet        ports.Wallet
	chain         ports.Chain
	program       ports.RegistryProgram
	resolver      *RegistryResolver
	assets        *AssetService
	notifications *NotificationQueue
	eventPub      ports.EventPublisher
	metrics       *metrics.Metrics
	clock         ports.Clock
	cfg           RedemptionConfig

	mu             sync.Mutex
	state          RedemptionState
	asset          *core.VintageAsset
	amount         string
	destination    string
	notificationID int64
	signature      string
	lastErr        string
}

// NewRedemption creates an idle redemption dialog
func NewRedemption(
	wallet ports.Wallet,
	chain ports.Chain,
	program ports.RegistryProgram,
	resolver *RegistryResolver,
	assets *AssetService,
	notifications *NotificationQueue,
	eventPub ports.EventPublisher,
	m *metrics.Metrics,
	clock ports.Clock,
	cfg RedemptionConfig,
) *Redemption {
	if cfg.Commitment == "" {
		cfg.Commitment = ports.CommitmentConfirmed
	}
	return &Redemption{
		wallet:        wallet,
		chain:         chain,
		program:       program,
		resolver:      resolver,
		assets:        assets,
		notifications: notifications,
		eventPub:      eventPub,
		metrics:       m,
		clock:         clock,
		cfg:           cfg,
		state:         RedemptionIdle,
	}
}

// Snapshot returns the current dialog state
func (r *Redemption) Snapshot() RedemptionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := RedemptionSnapshot{
		State:          r.state,
		Amount:         r.amount,
		Destination:    r.destination,
		NotificationID: r.notificationID,
		Signature:      r.signature,
		Error:          r.lastErr,
	}
	if r.asset != nil {
		asset := *r.asset
		snap.Asset = &asset
	}
	if r.signature != "" {
		snap.ExplorerURL = solana.ExplorerTxURL(r.cfg.Cluster, r.signature)
	}
	return snap
}

// Open selects asset for redemption and resets the amount
func (r *Redemption) Open(asset core.VintageAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Busy() {
		return core.ErrRedemptionInProgress
	}
	r.asset = &asset
	r.amount = ""
	r.state = RedemptionIdle
	r.signature = ""
	r.lastErr = ""
	return nil
}

// SetAmount sets the amount to burn, in token units
func (r *Redemption) SetAmount(amount string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Busy() {
		return core.ErrRedemptionInProgress
	}
	r.amount = amount
	return nil
}

// SetDestination sets the Puro user id credited by the redemption
func (r *Redemption) SetDestination(destination string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Busy() {
		return core.ErrRedemptionInProgress
	}
	r.destination = destination
	return nil
}

// Close deselects the asset. It is rejected while an attempt is running.
func (r *Redemption) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Busy() {
		return core.ErrRedemptionInProgress
	}
	r.asset = nil
	r.amount = ""
	r.state = RedemptionIdle
	return nil
}

type redemptionForm struct {
	asset       core.VintageAsset
	amount      decimal.Decimal
	destination string
	user        solana.PublicKey
	record      core.RegistryRecord
}

// Submit runs one redemption attempt. Validation failures return a *core.ValidationError
// without touching the network. Every other failure settles the attempt as failed.
func (r *Redemption) Submit(ctx context.Context) (*RedemptionResult, error) {
	r.mu.Lock()
	if r.state.Busy() {
		r.mu.Unlock()
		return nil, core.ErrRedemptionInProgress
	}
	if r.asset == nil {
		r.mu.Unlock()
		return nil, core.ErrNoAssetSelected
	}
	asset, amount, destination := *r.asset, r.amount, r.destination
	r.state = RedemptionValidating
	r.signature = ""
	r.lastErr = ""
	r.mu.Unlock()

	form, err := r.validate(asset, amount, destination)
	if err != nil {
		return nil, err
	}

	started := r.clock.Now()
	r.setState(RedemptionBuildingInstructions)
	notificationID := r.notifications.Create(core.NotificationInfo, MsgBuilding, 0)
	r.mu.Lock()
	r.notificationID = notificationID
	r.mu.Unlock()

	attemptID := uuid.NewString()
	logger.InfoCtx(ctx, "redemption started",
		zap.String("attempt_id", attemptID),
		zap.String("wallet", form.user.String()),
		zap.String("mint", asset.Mint),
		zap.String("amount", form.amount.String()),
	)

	signature, err := r.execute(ctx, form, notificationID)
	r.metrics.RedemptionDuration.Observe(r.clock.Now().Sub(started).Seconds())

	event := ports.RedemptionEvent{
		AttemptID: attemptID,
		Wallet:    form.user.String(),
		Mint:      asset.Mint,
		Amount:    form.amount.String(),
	}

	if err != nil {
		message := err.Error()
		if message == "" {
			message = MsgBurnFailed
		}
		errCategory := core.NotificationError
		r.notifications.Update(notificationID, core.NotificationPatch{Category: &errCategory, Text: &message}, r.cfg.FailureTTL)

		r.mu.Lock()
		r.state = RedemptionSettledFailed
		r.lastErr = message
		r.mu.Unlock()

		r.metrics.Redemptions.WithLabelValues(metrics.OutcomeFailure).Inc()
		logger.WarnCtx(ctx, "redemption failed", zap.String("attempt_id", attemptID), zap.Error(err))

		event.Error = message
		r.publish(ctx, event)
		return nil, err
	}

	explorerURL := solana.ExplorerTxURL(r.cfg.Cluster, signature)
	successCategory := core.NotificationSuccess
	text := MsgConfirmed
	r.notifications.Update(notificationID, core.NotificationPatch{
		Category:    &successCategory,
		Text:        &text,
		Signature:   &signature,
		ExplorerURL: &explorerURL,
	}, r.cfg.SuccessTTL)

	r.mu.Lock()
	r.state = RedemptionSettledSuccess
	r.signature = signature
	r.asset = nil
	r.amount = ""
	r.destination = ""
	r.mu.Unlock()

	r.metrics.Redemptions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logger.InfoCtx(ctx, "redemption confirmed", zap.String("attempt_id", attemptID), zap.String("signature", signature))

	event.Succeeded = true
	event.Signature = signature
	r.publish(ctx, event)

	if r.assets != nil {
		if _, err := r.assets.Refresh(ctx); err != nil {
			logger.WarnCtx(ctx, "failed to refresh assets after redemption", zap.Error(err))
		}
	}

	return &RedemptionResult{Signature: signature, ExplorerURL: explorerURL}, nil
}

// validate checks the form in order: wallet, amount, destination, registry record.
// The first violation is reported as an error notification.
func (r *Redemption) validate(asset core.VintageAsset, amount, destination string) (*redemptionForm, error) {
	user, ok := r.wallet.PublicKey()
	if !ok {
		return nil, r.reject(MsgWalletNotConnected, r.cfg.ValidationTTL)
	}

	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !value.IsPositive() {
		return nil, r.reject(MsgInvalidAmount, r.cfg.ValidationTTL)
	}

	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, r.reject(MsgMissingDestination, r.cfg.ValidationTTL)
	}

	record, ok := r.resolver.Lookup(asset.Mint)
	if !ok {
		return nil, r.reject(MsgRegistryNotFound, r.cfg.RegistryTTL)
	}

	return &redemptionForm{
		asset:       asset,
		amount:      value,
		destination: destination,
		user:        user,
		record:      record,
	}, nil
}

func (r *Redemption) reject(message string, ttl time.Duration) error {
	r.notifications.Create(core.NotificationError, message, ttl)
	r.metrics.Redemptions.WithLabelValues(metrics.OutcomeInvalid).Inc()

	r.mu.Lock()
	r.state = RedemptionIdle
	r.lastErr = message
	r.mu.Unlock()

	return core.NewValidationError(message)
}

func (r *Redemption) execute(ctx context.Context, form *redemptionForm, notificationID int64) (string, error) {
	registry, err := r.program.FindRegistryAddress(r.cfg.ConfigAccount, form.record.CompanyID, form.record.Year)
	if err != nil {
		return "", err
	}

	mint, err := solana.PublicKeyFromBase58(form.asset.Mint)
	if err != nil {
		return "", fmt.Errorf("%w: mint %s", core.ErrInvalidAddress, form.asset.Mint)
	}

	burn, err := r.program.BuildBurn(ctx, ports.BurnAccounts{
		User:     form.user,
		Config:   r.cfg.ConfigAccount,
		Registry: registry,
		Mint:     mint,
	}, ports.BurnArgs{
		Amount:       form.amount,
		Decimals:     form.asset.Decimals(),
		PuroUserUUID: form.destination,
	})
	if err != nil {
		return "", err
	}
	if burn == nil || len(burn.Instructions) == 0 {
		return "", core.ErrEmptyInstructions
	}

	ref, err := r.chain.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := solana.NewTransaction(burn.Instructions, ref.Blockhash, form.user)
	if err != nil {
		return "", err
	}

	r.setState(RedemptionAwaitingSignature)
	infoCategory := core.NotificationInfo
	sending := MsgSending
	r.notifications.Update(notificationID, core.NotificationPatch{Category: &infoCategory, Text: &sending}, 0)

	if len(burn.Signers) > 0 {
		if err := tx.Sign(burn.Signers...); err != nil {
			return "", err
		}
	}
	if err := r.wallet.SignTransaction(ctx, tx); err != nil {
		if errors.Is(err, core.ErrWalletSigning) || errors.Is(err, core.ErrWalletNotConnected) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", core.ErrWalletSigning, err)
	}

	signature, err := r.chain.SendTransaction(ctx, tx, ports.SendOptions{
		SkipPreflight:  true,
		MinContextSlot: ref.ContextSlot,
	})
	if err != nil {
		return "", err
	}

	r.setState(RedemptionConfirming)
	if err := r.chain.ConfirmTransaction(ctx, signature, *ref, r.cfg.Commitment); err != nil {
		return "", err
	}
	return signature, nil
}

func (r *Redemption) setState(state RedemptionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func (r *Redemption) publish(ctx context.Context, event ports.RedemptionEvent) {
	if r.eventPub == nil {
		return
	}
	if err := r.eventPub.PublishRedemption(ctx, event); err != nil {
		logger.WarnCtx(ctx, "failed to publish redemption event", zap.String("attempt_id", event.AttemptID), zap.Error(err))
	}
}
