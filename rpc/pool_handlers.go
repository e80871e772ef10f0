package rpc

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

type poolDepositParams struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type poolWithdrawParams struct {
	Asset  string `json:"asset"`
	Shares string `json:"shares"`
}

type poolQueryParams struct {
	Asset string `json:"asset"`
}

type poolPositionParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
}

type poolDepositResult struct {
	SharesMinted string `json:"sharesMinted"`
}

type poolWithdrawResult struct {
	AmountPaid string `json:"amountPaid"`
}

type poolRateResult struct {
	Asset         string `json:"asset"`
	BorrowRateBps uint64 `json:"borrowRateBps"`
}

func (s *Server) handlePoolDeposit(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p poolDepositParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	minted, err := s.ledger.Deposit(caller, p.Asset, amount)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolDepositResult{SharesMinted: minted.String()})
}

func (s *Server) handlePoolWithdraw(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p poolWithdrawParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	shares, err := parseAmount(p.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	paid, err := s.ledger.Withdraw(caller, p.Asset, shares)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolWithdrawResult{AmountPaid: paid.String()})
}

func (s *Server) handlePoolGet(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p poolQueryParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	state, err := s.ledger.PoolState(p.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, state)
}

func (s *Server) handlePoolPosition(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p poolPositionParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(p.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	position, err := s.ledger.PositionOf(owner, p.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, position)
}

func (s *Server) handlePoolBorrowRate(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p poolQueryParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	rate, err := s.ledger.BorrowRateBps(p.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolRateResult{Asset: p.Asset, BorrowRateBps: rate})
}
