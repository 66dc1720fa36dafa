package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
	"github.com/layer-3/salvo/service"
)

// Handlers contains the HTTP handlers for the withdrawal service.
type Handlers struct {
	auth        *service.AuthService
	withdrawals *service.WithdrawalService
	provider    ports.WalletProvider
}

// NewHandlers creates the handler set.
func NewHandlers(auth *service.AuthService, withdrawals *service.WithdrawalService, provider ports.WalletProvider) *Handlers {
	return &Handlers{
		auth:        auth,
		withdrawals: withdrawals,
		provider:    provider,
	}
}

// Connect binds an account and establishes a session.
func (h *Handlers) Connect(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if err := h.auth.SetAccount(ctx, req.Address); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to bind account"})
		return
	}

	token, err := h.auth.GetToken(ctx, h.provider, false)
	if err != nil {
		status, msg := authErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    core.NormalizeAddress(req.Address),
		"token_type": "Bearer",
		"token":      token,
	})
}

// Disconnect destroys the session and any cached signature bundle.
func (h *Handlers) Disconnect(c *gin.Context) {
	if err := h.withdrawals.Disconnect(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "disconnected"})
}

// Withdraw runs a quorum-authorized withdrawal for the connected account.
func (h *Handlers) Withdraw(c *gin.Context) {
	var req struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address := c.GetString("userAddress")
	attempt, err := h.withdrawals.Withdraw(c.Request.Context(), h.provider, address, amount)
	if err != nil {
		status, msg := withdrawErrorStatus(err)
		body := gin.H{"error": msg}
		if attempt != nil {
			body["transaction_id"] = attempt.TransactionID
			body["state"] = attempt.State
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id": attempt.TransactionID,
		"state":          attempt.State,
		"block_number":   attempt.Receipt.BlockNumber,
	})
}

func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrSigningRejected):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, core.ErrChallengeUnavailable),
		errors.Is(err, core.ErrInvalidLoginResponse):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, core.ErrProviderRequired):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "authentication failed"
	}
}

func withdrawErrorStatus(err error) (int, string) {
	var insufficient *core.InsufficientSignaturesError
	var wrongNetwork *core.WrongNetworkError
	switch {
	case errors.As(err, &insufficient):
		// Expected operational state: the user should wait and retry.
		return http.StatusServiceUnavailable, insufficient.Error()
	case errors.As(err, &wrongNetwork):
		return http.StatusConflict, wrongNetwork.Error()
	case errors.Is(err, core.ErrSignaturesExpired):
		return http.StatusConflict, err.Error()
	case errors.Is(err, core.ErrUserRejected), errors.Is(err, core.ErrSigningRejected):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, core.ErrReverted):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, core.ErrConfirmationTimeout):
		return http.StatusGatewayTimeout, err.Error()
	default:
		return http.StatusInternalServerError, "withdrawal failed"
	}
}
