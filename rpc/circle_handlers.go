package rpc

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

type circleCreateParams struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	MaxMembers     uint32 `json:"maxMembers"`
	MinCreditScore uint64 `json:"minCreditScore"`
}

type circleIDParams struct {
	CircleID uint64 `json:"circleId"`
}

type circleMemberParams struct {
	CircleID uint64 `json:"circleId"`
	Member   string `json:"member"`
}

type circleProposeParams struct {
	CircleID        uint64 `json:"circleId"`
	Asset           string `json:"asset"`
	Amount          string `json:"amount"`
	DurationSeconds uint64 `json:"durationSeconds"`
	Purpose         string `json:"purpose,omitempty"`
}

type circleVoteParams struct {
	ProposalID uint64 `json:"proposalId"`
	Support    bool   `json:"support"`
}

type proposalIDParams struct {
	ProposalID uint64 `json:"proposalId"`
}

type circleTreasuryParams struct {
	CircleID uint64 `json:"circleId"`
	Asset    string `json:"asset"`
	Amount   string `json:"amount"`
}

type executeProposalResult struct {
	ProposalID uint64 `json:"proposalId"`
	LoanID     uint64 `json:"loanId"`
}

func (s *Server) handleCircleCreate(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p circleCreateParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	created, err := s.ledger.CreateCircle(caller, p.Name, p.Description, p.MaxMembers, p.MinCreditScore)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, created)
}

func (s *Server) handleCircleJoin(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p circleIDParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.RequestToJoin(caller, p.CircleID); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.circleResult(w, req, p.CircleID)
}

func (s *Server) handleCircleRemoveMember(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p circleMemberParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	member, err := parseAddress(p.Member)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.RemoveMember(caller, p.CircleID, member); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.circleResult(w, req, p.CircleID)
}

func (s *Server) handleCircleProposeLoan(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p circleProposeParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proposal, err := s.ledger.ProposeLoan(caller, p.CircleID, p.Asset, amount, p.DurationSeconds, p.Purpose)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposal)
}

func (s *Server) handleCircleVote(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p circleVoteParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.VoteOnProposal(caller, p.ProposalID, p.Support); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	proposal, err := s.ledger.GetProposal(p.ProposalID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposal)
}

func (s *Server) handleCircleExecuteProposal(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p proposalIDParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	loanID, err := s.ledger.ExecuteProposal(caller, p.ProposalID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, executeProposalResult{ProposalID: p.ProposalID, LoanID: loanID})
}

func (s *Server) handleCircleDepositTreasury(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p circleTreasuryParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.DepositToTreasury(caller, p.CircleID, p.Asset, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.circleResult(w, req, p.CircleID)
}

func (s *Server) handleCircleVouch(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p circleMemberParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseAddress(p.Member)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.VouchForMember(caller, p.CircleID, target); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.circleResult(w, req, p.CircleID)
}

func (s *Server) handleCircleGet(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p circleIDParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	s.circleResult(w, req, p.CircleID)
}

func (s *Server) handleCircleGetProposal(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p proposalIDParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proposal, err := s.ledger.GetProposal(p.ProposalID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposal)
}

func (s *Server) circleResult(w http.ResponseWriter, req *RPCRequest, id uint64) {
	updated, err := s.ledger.GetCircle(id)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, updated)
}
