package rpc

import (
	"errors"
	"net/http"

	"lendnet/core/ledger"
	"lendnet/native/circle"
	"lendnet/native/collateral"
	nativecommon "lendnet/native/common"
	"lendnet/native/loan"
	"lendnet/native/pool"
)

var notFoundErrors = []error{
	loan.ErrLoanNotFound,
	circle.ErrCircleNotFound,
	circle.ErrProposalNotFound,
	pool.ErrPoolNotCreated,
	collateral.ErrLockNotFound,
}

var conflictErrors = []error{
	pool.ErrPoolExists,
	loan.ErrAlreadyDisbursed,
	loan.ErrInvalidStateTransition,
	circle.ErrAlreadyMember,
	circle.ErrDuplicateVote,
	circle.ErrDuplicateVouch,
	circle.ErrProposalExecuted,
	collateral.ErrLockExists,
	collateral.ErrAlreadyLocked,
}

var rejectedErrors = []error{
	ledger.ErrInvalidAmount,
	loan.ErrInvalidAmount,
	loan.ErrInvalidDuration,
	loan.ErrInvalidFrequency,
	loan.ErrCreditScoreTooLow,
	loan.ErrActiveLoanLimit,
	loan.ErrInsufficientRepayment,
	loan.ErrNotYetDefaultable,
	loan.ErrInsufficientBalance,
	pool.ErrAssetNotWhitelisted,
	pool.ErrBelowMinimumDeposit,
	pool.ErrInsufficientShares,
	pool.ErrInsufficientLiquidity,
	pool.ErrInsufficientBalance,
	circle.ErrInvalidConfig,
	circle.ErrInvalidAmount,
	circle.ErrNotAMember,
	circle.ErrCircleFull,
	circle.ErrScoreBelowMinimum,
	circle.ErrNotCreator,
	circle.ErrVotingClosed,
	circle.ErrProposalNotPassed,
	circle.ErrProposalExpired,
	circle.ErrSelfVouch,
	circle.ErrInsufficientReputation,
	circle.ErrInsufficientBalance,
}

// errorStatus maps a ledger failure onto an HTTP status and JSON-RPC code.
func errorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, nativecommon.ErrUnauthorized):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable, codePaused
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound, codeNotFound
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return http.StatusConflict, codeConflict
		}
	}
	for _, target := range rejectedErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, codeInvalidParams
		}
	}
	return http.StatusInternalServerError, codeServerError
}

func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	status, code := errorStatus(err)
	writeError(w, status, id, code, err.Error(), nil)
}
