package rpc

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

type pauseParams struct {
	Paused bool `json:"paused"`
}

type modulePauseParams struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type whitelistParams struct {
	Asset   string `json:"asset"`
	Allowed bool   `json:"allowed"`
}

type assetParams struct {
	Asset string `json:"asset"`
}

type roleParams struct {
	Role    string `json:"role"`
	Address string `json:"address"`
}

type withdrawReservesParams struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type creditScoreParams struct {
	Address string `json:"address"`
	Score   uint64 `json:"score"`
}

type addressParams struct {
	Address string `json:"address"`
}

type mintParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type balanceParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
}

type auditListParams struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit"`
}

type ackResult struct {
	OK bool `json:"ok"`
}

type creditScoreResult struct {
	Address string `json:"address"`
	Score   uint64 `json:"score"`
}

type balanceResult struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

func (s *Server) handleSetGlobalPause(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p pauseParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.SetGlobalPause(caller, p.Paused); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleSetModulePause(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p modulePauseParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.SetModulePause(caller, p.Module, p.Paused); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleWhitelistAsset(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p whitelistParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.WhitelistAsset(caller, p.Asset, p.Allowed); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleCreatePool(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p assetParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.CreatePool(caller, p.Asset); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	state, err := s.ledger.PoolState(p.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, state)
}

func (s *Server) handleGrantRole(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	s.roleChange(w, caller, req, s.ledger.GrantRole)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	s.roleChange(w, caller, req, s.ledger.RevokeRole)
}

func (s *Server) roleChange(w http.ResponseWriter, caller common.Address, req *RPCRequest, op func(common.Address, string, common.Address) error) {
	var p roleParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := op(caller, p.Role, addr); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleWithdrawReserves(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p withdrawReservesParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := parseAddress(p.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.WithdrawReserves(caller, p.Asset, amount, recipient); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleSetCreditScore(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p creditScoreParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	subject, err := parseAddress(p.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.SetCreditScore(caller, subject, p.Score); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, creditScoreResult{Address: subject.Hex(), Score: p.Score})
}

func (s *Server) handleMint(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p mintParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.Mint(caller, addr, p.Asset, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleCreditScore(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p addressParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	score, err := s.ledger.CreditScore(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, creditScoreResult{Address: addr.Hex(), Score: score})
}

func (s *Server) handleBalance(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p balanceParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.ledger.Balance(addr, p.Asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: addr.Hex(), Asset: p.Asset, Balance: balance.String()})
}

func (s *Server) handleAuditList(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p auditListParams
	if err := decodeOptionalParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	records, err := s.ledger.AuditRange(p.From, p.Limit)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, records)
}
