package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/task"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TaskResponse is the body of GET /v1/tasks/:address.
type TaskResponse struct {
	Address ir.Address `json:"address"`
	task.Record
}

// AccountResponse is the body of the account routes.
type AccountResponse struct {
	Identity ir.Identity `json:"identity"`
	Balance  uint64      `json:"balance"`
}

// AirdropRequest is the body of POST /v1/accounts/:identity/airdrop.
type AirdropRequest struct {
	Lamports uint64 `json:"lamports" binding:"required,gt=0"`
}

// Codes used for failures that are not task errors.
const (
	codeBadRequest  = "BAD_REQUEST"
	codeInternal    = "INTERNAL"
	codeRateLimited = "RATE_LIMITED"
)

func (s *Server) handleTransaction(c *gin.Context) {
	var req ir.SignedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	receipt, err := s.program.Execute(c.Request.Context(), req)
	if err != nil {
		s.writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) handleGetTask(c *gin.Context) {
	addr, err := ir.ParseAddress(c.Param("address"))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	rec, err := s.program.Get(c.Request.Context(), addr)
	if err != nil {
		s.writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, TaskResponse{Address: addr, Record: rec})
}

func (s *Server) handleGetAccount(c *gin.Context) {
	id, err := ir.ParseIdentity(c.Param("identity"))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	balance, err := ledger.BalanceOf(c.Request.Context(), s.ledger, id)
	if err != nil {
		s.writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, AccountResponse{Identity: id, Balance: balance})
}

func (s *Server) handleAirdrop(c *gin.Context) {
	id, err := ir.ParseIdentity(c.Param("identity"))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	var body AirdropRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if body.Lamports > s.opts.MaxAirdrop {
		writeError(c, http.StatusBadRequest, codeBadRequest, "airdrop exceeds faucet limit")
		return
	}

	ctx := c.Request.Context()
	if err := ledger.Fund(ctx, s.ledger, id, body.Lamports); err != nil {
		if errors.Is(err, ledger.ErrBalanceOverflow) {
			writeError(c, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		s.writeTaskError(c, err)
		return
	}
	balance, err := ledger.BalanceOf(ctx, s.ledger, id)
	if err != nil {
		s.writeTaskError(c, err)
		return
	}
	s.logger.Info("airdrop", "identity", id, "lamports", body.Lamports)
	c.JSON(http.StatusOK, AccountResponse{Identity: id, Balance: balance})
}

// writeTaskError maps task errors to HTTP statuses. Anything else is a 500
// and its detail is logged, not returned.
func (s *Server) writeTaskError(c *gin.Context, err error) {
	code := task.CodeOf(err)
	if code == "" {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeError(c, StatusFor(code), string(code), err.Error())
}

// StatusFor returns the HTTP status for a task error code.
func StatusFor(code task.ErrorCode) int {
	switch code {
	case task.ErrCodeUnauthorized, task.ErrCodeInvalidSignature:
		return http.StatusUnauthorized
	case task.ErrCodeRecordNotFound:
		return http.StatusNotFound
	case task.ErrCodeDuplicateRecord:
		return http.StatusConflict
	case task.ErrCodeContentTooLarge:
		return http.StatusRequestEntityTooLarge
	case task.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case task.ErrCodeInvalidInstruction:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
