package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/carbx"
	"github.com/layer-3/carbx/core"
)

// DashboardHandlers contains HTTP handlers for the dashboard endpoints
type DashboardHandlers struct {
	client carbx.Client
}

// NewDashboardHandlers creates new dashboard handlers
func NewDashboardHandlers(client carbx.Client) *DashboardHandlers {
	return &DashboardHandlers{
		client: client,
	}
}

// Wallet returns the wallet status
func (h *DashboardHandlers) Wallet(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.WalletStatus())
}

// ConnectWallet connects the wallet
func (h *DashboardHandlers) ConnectWallet(c *gin.Context) {
	if err := h.client.ConnectWallet(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.WalletStatus())
}

// DisconnectWallet disconnects the wallet, which ends the session
func (h *DashboardHandlers) DisconnectWallet(c *gin.Context) {
	if err := h.client.DisconnectWallet(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.WalletStatus())
}

// Session returns the cached session
func (h *DashboardHandlers) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.Session())
}

// SignIn runs the wallet sign-in
func (h *DashboardHandlers) SignIn(c *gin.Context) {
	ok, err := h.client.SignIn(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{
		"signedIn": ok,
		"session":  h.client.Session(),
	}
	if !ok {
		// Sign-in was skipped or the backend returned no session
		wallet := h.client.WalletStatus()
		switch {
		case !wallet.Connected:
			resp["reason"] = core.ErrWalletNotConnected.Error()
		case !wallet.CanSignMessages:
			resp["reason"] = core.ErrSigningUnsupported.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// CheckSession refetches the backend session
func (h *DashboardHandlers) CheckSession(c *gin.Context) {
	alive, err := h.client.CheckSession(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alive":   alive,
		"session": h.client.Session(),
	})
}

// PuroAccount returns the Puro deposit account
func (h *DashboardHandlers) PuroAccount(c *gin.Context) {
	account, err := h.client.PuroAccount(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// Orders returns the order rows, newest first
func (h *DashboardHandlers) Orders(c *gin.Context) {
	rows, err := h.client.Orders(c.Request.Context(), c.Query("refresh") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// Tokens returns the vintage tokens of the connected wallet
func (h *DashboardHandlers) Tokens(c *gin.Context) {
	tokens, err := h.client.Tokens(c.Request.Context(), c.Query("refresh") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Redemption returns the redemption dialog
func (h *DashboardHandlers) Redemption(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.Redemption())
}

// OpenRedemption selects a token for redemption
func (h *DashboardHandlers) OpenRedemption(c *gin.Context) {
	var req struct {
		Mint string `json:"mint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.client.OpenRedemption(c.Request.Context(), req.Mint); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.Redemption())
}

// UpdateRedemption changes the amount and destination of the redemption
func (h *DashboardHandlers) UpdateRedemption(c *gin.Context) {
	var req struct {
		Amount      *string `json:"amount"`
		Destination *string `json:"destination"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.client.UpdateRedemption(req.Amount, req.Destination); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.Redemption())
}

// SubmitRedemption burns the selected amount and waits for confirmation
func (h *DashboardHandlers) SubmitRedemption(c *gin.Context) {
	result, err := h.client.SubmitRedemption(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CloseRedemption deselects the token
func (h *DashboardHandlers) CloseRedemption(c *gin.Context) {
	if err := h.client.CloseRedemption(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Notifications returns the visible notifications
func (h *DashboardHandlers) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.client.Notifications()})
}

// DismissNotification removes a notification
func (h *DashboardHandlers) DismissNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.client.DismissNotification(id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Health reports liveness
func (h *DashboardHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps a dashboard error onto a status code
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var validation *core.ValidationError
	statusCode := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		statusCode = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrRedemptionInProgress):
		statusCode = http.StatusConflict
	case errors.Is(err, core.ErrNoSession):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, core.ErrAssetNotFound), errors.Is(err, core.ErrNotificationNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, core.ErrWalletNotConnected),
		errors.Is(err, core.ErrSigningUnsupported),
		errors.Is(err, core.ErrWalletSigning),
		errors.Is(err, core.ErrNoAssetSelected),
		errors.Is(err, carbx.ErrWalletControlUnsupported):
		statusCode = http.StatusBadRequest
	case errors.Is(err, core.ErrRequestFailed),
		errors.Is(err, core.ErrTransactionFailed),
		errors.Is(err, core.ErrBlockhashExpired),
		errors.Is(err, core.ErrEmptyInstructions):
		statusCode = http.StatusBadGateway
	}

	c.JSON(statusCode, gin.H{"error": err.Error()})
}
