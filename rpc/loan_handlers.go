package rpc

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/native/loan"
)

type requestLoanParams struct {
	Asset            string `json:"asset"`
	Amount           string `json:"amount"`
	DurationSeconds  uint64 `json:"durationSeconds"`
	Frequency        string `json:"frequency"`
	CollateralAsset  string `json:"collateralAsset,omitempty"`
	CollateralAmount string `json:"collateralAmount,omitempty"`
}

type loanIDParams struct {
	ID uint64 `json:"id"`
}

type makePaymentParams struct {
	ID     uint64 `json:"id"`
	Amount string `json:"amount"`
}

type loansByBorrowerParams struct {
	Borrower string `json:"borrower"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

type loanListParams struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type latePenaltyResult struct {
	ID      uint64 `json:"id"`
	Penalty string `json:"penalty"`
}

func (s *Server) handleRequestLoan(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p requestLoanParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	freq := loan.Frequency(strings.ToLower(strings.TrimSpace(p.Frequency)))

	var result *loan.Loan
	if strings.TrimSpace(p.CollateralAsset) != "" {
		collateralAmount, err := parseAmount(p.CollateralAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		result, err = s.ledger.RequestLoanWithCollateral(caller, p.Asset, amount, p.DurationSeconds, freq, p.CollateralAsset, collateralAmount)
		if err != nil {
			writeLedgerError(w, req.ID, err)
			return
		}
	} else {
		result, err = s.ledger.RequestLoan(caller, p.Asset, amount, p.DurationSeconds, freq)
		if err != nil {
			writeLedgerError(w, req.ID, err)
			return
		}
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleApproveLoan(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	s.loanTransition(w, caller, req, s.ledger.ApproveLoan)
}

func (s *Server) handleRejectLoan(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	s.loanTransition(w, caller, req, s.ledger.RejectLoan)
}

func (s *Server) handleDisburseLoan(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	s.loanTransition(w, caller, req, s.ledger.DisburseLoan)
}

func (s *Server) handleMarkAsDefaulted(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	s.loanTransition(w, caller, req, s.ledger.MarkAsDefaulted)
}

// loanTransition runs an id-only state transition and echoes the updated
// loan back to the caller.
func (s *Server) loanTransition(w http.ResponseWriter, caller common.Address, req *RPCRequest, op func(common.Address, uint64) error) {
	var p loanIDParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := op(caller, p.ID); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	updated, err := s.ledger.GetLoan(p.ID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, updated)
}

func (s *Server) handleMakePayment(w http.ResponseWriter, caller common.Address, req *RPCRequest) {
	var p makePaymentParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.MakePayment(caller, p.ID, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	updated, err := s.ledger.GetLoan(p.ID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, updated)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p loanIDParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.ledger.GetLoan(p.ID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleLoansByBorrower(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p loansByBorrowerParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	borrower, err := parseAddress(p.Borrower)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	loans, err := s.ledger.LoansByBorrower(borrower, p.Offset, p.Limit)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if loans == nil {
		loans = []*loan.Loan{}
	}
	writeResult(w, req.ID, loans)
}

func (s *Server) handleActiveLoans(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p loanListParams
	if err := decodeOptionalParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	loans, err := s.ledger.ActiveLoans(p.Offset, p.Limit)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if loans == nil {
		loans = []*loan.Loan{}
	}
	writeResult(w, req.ID, loans)
}

func (s *Server) handleLatePenalty(w http.ResponseWriter, _ common.Address, req *RPCRequest) {
	var p loanIDParams
	if err := decodeParams(req, &p); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	penalty, err := s.ledger.CalculateLatePenalty(p.ID)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, latePenaltyResult{ID: p.ID, Penalty: penalty.String()})
}
