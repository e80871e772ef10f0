package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	accountPrefix       = "account/"
	poolMarketPrefix    = "pool/market/"
	poolPositionPrefix  = "pool/position/"
	poolWhitelistPrefix = "pool/whitelist/"
	loanPrefix          = "loan/item/"
	loanBorrowerPrefix  = "loan/borrower/"
	loanActiveKey       = []byte("loan/active")
	loanNextIDKey       = []byte("loan/nextid")
	circlePrefix        = "circle/item/"
	circleNextIDKey     = []byte("circle/nextid")
	proposalPrefix      = "circle/proposal/"
	proposalNextIDKey   = []byte("circle/proposal/nextid")
	vouchPrefix         = "circle/vouch/"
	creditScorePrefix   = "credit/score/"
	lockPrefix          = "collateral/lock/"
	lockOwnerPrefix     = "collateral/owner/"
	auditPrefix         = "audit/item/"
	auditNextSeqKey     = []byte("audit/nextseq")
	rolePrefix          = "role/"
)

func accountKey(addr common.Address) []byte {
	return []byte(accountPrefix + addr.Hex())
}

func poolKey(asset string) []byte {
	return []byte(poolMarketPrefix + asset)
}

func positionKey(owner common.Address, asset string) []byte {
	return []byte(poolPositionPrefix + asset + "/" + owner.Hex())
}

func whitelistKey(asset string) []byte {
	return []byte(poolWhitelistPrefix + asset)
}

func loanKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", loanPrefix, id))
}

func loanBorrowerKey(addr common.Address) []byte {
	return []byte(loanBorrowerPrefix + addr.Hex())
}

func circleKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", circlePrefix, id))
}

func proposalKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", proposalPrefix, id))
}

func vouchKey(circleID uint64, voucher, target common.Address) []byte {
	return []byte(fmt.Sprintf("%s%d/%s/%s", vouchPrefix, circleID, voucher.Hex(), target.Hex()))
}

func creditScoreKey(addr common.Address) []byte {
	return []byte(creditScorePrefix + addr.Hex())
}

func lockKey(loanID uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", lockPrefix, loanID))
}

func lockOwnerKey(owner common.Address) []byte {
	return []byte(lockOwnerPrefix + owner.Hex())
}

func auditKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", auditPrefix, seq))
}

func roleKey(role string) []byte {
	return []byte(rolePrefix + role)
}
