package api

import (
	"context"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

type createVestingRequest struct {
	Recipient             string `json:"recipient" binding:"required"`
	StartTimestamp        uint64 `json:"start_timestamp"`
	EndTimestamp          uint64 `json:"end_timestamp"`
	Timelock              uint64 `json:"timelock"`
	InitialUnlock         string `json:"initial_unlock"`
	CliffReleaseTimestamp uint64 `json:"cliff_release_timestamp"`
	CliffAmount           string `json:"cliff_amount"`
	ReleaseIntervalSecs   uint64 `json:"release_interval_secs"`
	LinearVestAmount      string `json:"linear_vest_amount"`
}

func (r createVestingRequest) toParams() (vesting.CreateParams, bool, string) {
	initial, ok := new(big.Int).SetString(r.InitialUnlock, 10)
	if !ok {
		return vesting.CreateParams{}, false, "initial_unlock must be a base-10 integer"
	}
	cliff, ok := new(big.Int).SetString(r.CliffAmount, 10)
	if !ok {
		return vesting.CreateParams{}, false, "cliff_amount must be a base-10 integer"
	}
	linear, ok := new(big.Int).SetString(r.LinearVestAmount, 10)
	if !ok {
		return vesting.CreateParams{}, false, "linear_vest_amount must be a base-10 integer"
	}
	return vesting.CreateParams{
		Recipient:             vesting.Address(r.Recipient),
		StartTimestamp:        r.StartTimestamp,
		EndTimestamp:          r.EndTimestamp,
		Timelock:              r.Timelock,
		InitialUnlock:         initial,
		CliffReleaseTimestamp: r.CliffReleaseTimestamp,
		CliffAmount:           cliff,
		ReleaseIntervalSecs:   r.ReleaseIntervalSecs,
		LinearVestAmount:      linear,
	}, true, ""
}

func (s *Server) handleCreateVesting(c *gin.Context) {
	var req createVestingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": err.Error()})
		return
	}
	params, ok, msg := req.toParams()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": msg})
		return
	}

	id, err := s.mgr.CreateVesting(c.Request.Context(), callerOf(c), params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type createVestingBatchRequest struct {
	Vestings []createVestingRequest `json:"vestings" binding:"required"`
}

func (s *Server) handleCreateVestingBatch(c *gin.Context) {
	var req createVestingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": err.Error()})
		return
	}

	batch := vesting.BatchParams{}
	for _, item := range req.Vestings {
		p, ok, msg := item.toParams()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": msg})
			return
		}
		batch.Recipients = append(batch.Recipients, p.Recipient)
		batch.StartTimestamps = append(batch.StartTimestamps, p.StartTimestamp)
		batch.EndTimestamps = append(batch.EndTimestamps, p.EndTimestamp)
		batch.Timelocks = append(batch.Timelocks, p.Timelock)
		batch.InitialUnlocks = append(batch.InitialUnlocks, p.InitialUnlock)
		batch.CliffReleaseTimestamps = append(batch.CliffReleaseTimestamps, p.CliffReleaseTimestamp)
		batch.CliffAmounts = append(batch.CliffAmounts, p.CliffAmount)
		batch.ReleaseIntervalsSecs = append(batch.ReleaseIntervalsSecs, p.ReleaseIntervalSecs)
		batch.LinearVestAmounts = append(batch.LinearVestAmounts, p.LinearVestAmount)
	}

	ids, err := s.mgr.CreateVestingBatch(c.Request.Context(), callerOf(c), batch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

func (s *Server) handleClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	amount, err := s.mgr.Claim(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claimed": amount.String()})
}

func (s *Server) handleRevoke(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	forfeited, err := s.mgr.RevokeVesting(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forfeited": forfeited.String()})
}

type withdrawAdminRequest struct {
	Amount string `json:"amount" binding:"required"`
}

func (s *Server) handleWithdrawAdmin(c *gin.Context) {
	var req withdrawAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": err.Error()})
		return
	}
	amount, ok := parseBigInt(c, req.Amount)
	if !ok {
		return
	}
	if err := s.mgr.WithdrawAdmin(c.Request.Context(), callerOf(c), amount); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn": amount.String()})
}

type withdrawOtherTokenRequest struct {
	Other string `json:"other" binding:"required"`
}

// handleWithdrawOtherToken implements withdraw_other_token: the caller
// names a token address distinct from the managed one, and the manager
// sweeps the entire balance the custody address holds of it to caller.
// The balance lookup and transfer are performed against s.otherTokens,
// since Manager itself only knows how to move the single managed Token.
func (s *Server) handleWithdrawOtherToken(c *gin.Context) {
	var req withdrawOtherTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": err.Error()})
		return
	}

	ledger := s.otherTokens.Ledger(req.Other)
	balance, err := ledger.Balance(c.Request.Context(), vesting.SelfAddress)
	if err != nil {
		s.writeError(c, err)
		return
	}

	transfer := func(ctx context.Context, to vesting.Address, amount *big.Int) error {
		return ledger.Transfer(ctx, vesting.SelfAddress, to, amount)
	}

	if err := s.mgr.WithdrawOtherToken(c.Request.Context(), callerOf(c), req.Other, balance, transfer); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"other": req.Other, "withdrawn": balance.String()})
}

type setAdminRequest struct {
	Enable bool `json:"enable"`
}

func (s *Server) handleSetAdmin(c *gin.Context) {
	target := vesting.Address(c.Param("address"))
	var req setAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": err.Error()})
		return
	}
	if err := s.mgr.SetAdmin(c.Request.Context(), callerOf(c), target, req.Enable); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": string(target), "enabled": req.Enable})
}

func (s *Server) handleGetVestingInfo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	v, err := s.mgr.GetVestingInfo(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleCalculateVestedAmount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	at := uint64(0)
	if q := c.Query("at"); q != "" {
		v, ok := new(big.Int).SetString(q, 10)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAmount", "message": "at must be an integer timestamp"})
			return
		}
		at = v.Uint64()
	}
	amount, err := s.mgr.CalculateVestedAmount(id, at)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vested": amount.String()})
}

func (s *Server) handleGetRecipients(c *gin.Context) {
	recipients, err := s.mgr.GetAllRecipients()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": recipients})
}

func (s *Server) handleGetRecipientsSliced(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	recipients, err := s.mgr.GetAllRecipientsSliced(from, to)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": recipients})
}

func (s *Server) handleGetRecipientsLen(c *gin.Context) {
	n, err := s.mgr.GetAllRecipientsLen()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) handleIsRecipient(c *gin.Context) {
	addr := vesting.Address(c.Param("address"))
	isRecipient, err := s.mgr.IsRecipient(addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_recipient": isRecipient})
}

func (s *Server) handleGetRecipientVestings(c *gin.Context) {
	addr := vesting.Address(c.Param("address"))
	ids, err := s.mgr.GetAllRecipientVestings(addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vestings": ids})
}

func (s *Server) handleGetRecipientVestingsSliced(c *gin.Context) {
	addr := vesting.Address(c.Param("address"))
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	ids, err := s.mgr.GetAllRecipientVestingSliced(from, to, addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vestings": ids})
}

func (s *Server) handleGetRecipientVestingsLen(c *gin.Context) {
	addr := vesting.Address(c.Param("address"))
	n, err := s.mgr.GetAllRecipientVestingsLen(addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) handleGetTokenAddress(c *gin.Context) {
	addr, err := s.mgr.GetTokenAddress()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token_address": addr})
}

func (s *Server) handleGetReserved(c *gin.Context) {
	reserved, err := s.mgr.GetTokensReservedForVesting()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserved": reserved.String()})
}

func (s *Server) handleIsAdmin(c *gin.Context) {
	addr := vesting.Address(c.Param("address"))
	isAdmin, err := s.mgr.IsAdmin(addr)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_admin": isAdmin})
}

func (s *Server) handleAdminsCount(c *gin.Context) {
	count, err := s.mgr.AdminsCount()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	snap, err := s.mgr.Snapshot()
	if err != nil {
		s.writeError(c, err)
		return
	}

	vested := make(map[string]string, len(snap.VestedAtNow))
	for id, amount := range snap.VestedAtNow {
		vested[strconv.FormatUint(id, 10)] = amount.String()
	}

	c.JSON(http.StatusOK, gin.H{
		"admin_count":     snap.AdminCount,
		"recipient_count": snap.RecipientCount,
		"reserved":        snap.Reserved.String(),
		"token_address":   snap.TokenAddress,
		"vested_at_now":   vested,
	})
}
