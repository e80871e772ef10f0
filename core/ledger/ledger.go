package ledger

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lendnet/core/events"
	"lendnet/core/state"
	"lendnet/native/circle"
	"lendnet/native/collateral"
	nativecommon "lendnet/native/common"
	"lendnet/native/credit"
	"lendnet/native/loan"
	"lendnet/native/pool"
	"lendnet/observability/metrics"
	"lendnet/storage"
)

// Module accounts. Balances held on behalf of the protocol live at fixed
// addresses so conservation can be checked against ordinary accounts.
var (
	PoolModuleAddress      = common.BytesToAddress([]byte("lendnet/module/pool"))
	CollateralVaultAddress = common.BytesToAddress([]byte("lendnet/module/vault"))
	CircleTreasuryAddress  = common.BytesToAddress([]byte("lendnet/module/circle"))
)

// Ledger is the single entry point for every platform operation. It owns the
// state manager, the native engines, role and pause enforcement, and the
// audit trail. Every mutating operation runs inside a state overlay that
// commits only on success, and operations are serialized so each one sees a
// consistent snapshot.
type Ledger struct {
	mu sync.Mutex

	db          storage.Database
	state       *state.Manager
	roles       *nativecommon.RoleSet
	switchboard *nativecommon.Switchboard
	emitter     events.Emitter
	loanParams  loan.Parameters
	poolOptions PoolOptions
	log         *slog.Logger
	nowFn       func() time.Time
}

// PoolOptions carries the pool engine policy knobs set from configuration.
type PoolOptions struct {
	MinDeposit       *big.Int
	ReserveFactorBps uint64
	RateModel        *pool.RateModel
}

// Options configures a Ledger.
type Options struct {
	LoanParameters loan.Parameters
	Pool           PoolOptions
	Emitter        events.Emitter
	Logger         *slog.Logger
	NowFunc        func() time.Time
	// GenesisAdmin is granted ADMIN on first start so roles can be
	// bootstrapped. Ignored when an admin grant is already persisted.
	GenesisAdmin common.Address
}

// New builds a ledger over db, loading persisted role grants.
func New(db storage.Database, opts Options) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("ledger: database required")
	}
	l := &Ledger{
		db:          db,
		state:       state.NewManager(db),
		roles:       nativecommon.NewRoleSet(),
		switchboard: nativecommon.NewSwitchboard(),
		emitter:     opts.Emitter,
		loanParams:  opts.LoanParameters,
		poolOptions: opts.Pool,
		log:         opts.Logger,
		nowFn:       opts.NowFunc,
	}
	if l.emitter == nil {
		l.emitter = events.NoopEmitter{}
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	if l.nowFn == nil {
		l.nowFn = func() time.Time { return time.Now().UTC() }
	}
	if l.loanParams.MinAmount == nil {
		l.loanParams = loan.DefaultParameters()
	}
	for _, role := range []nativecommon.Role{
		nativecommon.RoleAdmin,
		nativecommon.RoleApprover,
		nativecommon.RoleLoanOperator,
		nativecommon.RoleRegistrar,
	} {
		members, err := l.state.RoleMembers(string(role))
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			l.roles.Grant(member, role)
		}
	}
	if opts.GenesisAdmin != (common.Address{}) {
		admins, err := l.state.RoleMembers(string(nativecommon.RoleAdmin))
		if err != nil {
			return nil, err
		}
		if len(admins) == 0 {
			if err := l.state.GrantRole(string(nativecommon.RoleAdmin), opts.GenesisAdmin); err != nil {
				return nil, err
			}
			l.roles.Grant(opts.GenesisAdmin, nativecommon.RoleAdmin)
		}
	}
	return l, nil
}

// Switchboard exposes the pause switches for configuration wiring.
func (l *Ledger) Switchboard() *nativecommon.Switchboard { return l.switchboard }

func (l *Ledger) now() time.Time { return l.nowFn() }

// engines binds every native engine to one state snapshot.
type engines struct {
	pool    *pool.Engine
	loans   *loan.Engine
	credit  *credit.Registry
	vault   *collateral.Vault
	circles *circle.Engine
}

type circleOriginator struct {
	loans *loan.Engine
}

func (o circleOriginator) RequestCircleLoan(borrower common.Address, asset string, amount *big.Int, durationSeconds uint64, circleID uint64) (uint64, error) {
	created, err := o.loans.RequestCircleLoan(borrower, asset, amount, durationSeconds, circleID)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (l *Ledger) build(sm *state.Manager) *engines {
	registry := credit.NewRegistry()
	registry.SetState(sm)

	vault := collateral.NewVault()
	vault.SetState(sm)

	poolEngine := pool.NewEngine(PoolModuleAddress)
	poolEngine.SetState(sm)
	poolEngine.SetPauses(l.switchboard)
	poolEngine.SetEmitter(l.emitter)
	if l.poolOptions.MinDeposit != nil {
		poolEngine.SetMinDeposit(l.poolOptions.MinDeposit)
	}
	if l.poolOptions.ReserveFactorBps > 0 {
		poolEngine.SetReserveFactor(l.poolOptions.ReserveFactorBps)
	}
	if l.poolOptions.RateModel != nil {
		poolEngine.SetRateModel(l.poolOptions.RateModel)
	}

	loanEngine := loan.NewEngine(CollateralVaultAddress, l.loanParams)
	loanEngine.SetState(sm)
	loanEngine.SetPool(poolEngine)
	loanEngine.SetCreditRegistry(registry)
	loanEngine.SetVault(vault)
	loanEngine.SetPauses(l.switchboard)
	loanEngine.SetEmitter(l.emitter)
	loanEngine.SetNowFunc(l.nowFn)

	circleEngine := circle.NewEngine(CircleTreasuryAddress)
	circleEngine.SetState(sm)
	circleEngine.SetCreditRegistry(registry)
	circleEngine.SetLoanLedger(circleOriginator{loans: loanEngine})
	circleEngine.SetPauses(l.switchboard)
	circleEngine.SetEmitter(l.emitter)
	circleEngine.SetNowFunc(l.nowFn)

	return &engines{
		pool:    poolEngine,
		loans:   loanEngine,
		credit:  registry,
		vault:   vault,
		circles: circleEngine,
	}
}

// write runs op against a state overlay under the ledger lock, appending an
// audit record and committing only when op succeeds.
func (l *Ledger) write(actor common.Address, action, reference string, op func(*engines, *state.Manager) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := l.now()
	err := l.state.Apply(func(sm *state.Manager) error {
		if err := op(l.build(sm), sm); err != nil {
			return err
		}
		return sm.AppendAudit(actor, action, reference, start)
	})
	metrics.Ledger().ObserveOperation(action, err, time.Since(start))
	if err != nil {
		l.log.Warn("ledger operation rejected", "action", action, "actor", actor.Hex(), "err", err)
		return err
	}
	l.log.Info("ledger operation applied", "action", action, "actor", actor.Hex(), "ref", reference, "took", time.Since(start))
	return nil
}

// read runs op against the live state without taking the write lock.
func (l *Ledger) read(op func(*engines) error) error {
	return op(l.build(l.state))
}

func (l *Ledger) caller(addr common.Address) nativecommon.Caller {
	return l.roles.CallerFor(addr)
}

// AuditRange returns audit records starting at sequence from.
func (l *Ledger) AuditRange(from uint64, limit int) ([]state.AuditRecord, error) {
	return l.state.AuditRange(from, limit)
}
