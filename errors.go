package carbx

import (
	"errors"

	"github.com/layer-3/carbx/core"
)

var (
	// ErrNoSession is returned when an operation needs a backend session
	ErrNoSession = core.ErrNoSession

	// ErrWalletNotConnected is returned when an operation needs a connected wallet
	ErrWalletNotConnected = core.ErrWalletNotConnected

	// ErrSigningUnsupported is returned when the wallet cannot sign messages
	ErrSigningUnsupported = core.ErrSigningUnsupported

	// ErrRedemptionInProgress is returned when the redemption dialog is busy
	ErrRedemptionInProgress = core.ErrRedemptionInProgress

	// ErrAssetNotFound is returned when the wallet does not hold the requested token
	ErrAssetNotFound = core.ErrAssetNotFound

	// ErrNotificationNotFound is returned when dismissing an unknown notification
	ErrNotificationNotFound = core.ErrNotificationNotFound

	// ErrWalletControlUnsupported is returned when the wallet cannot be connected on demand
	ErrWalletControlUnsupported = errors.New("wallet cannot be connected or disconnected")
)
