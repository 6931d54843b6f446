package registry

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Account is one ledger record: a lamport balance, the owning program and
// opaque data bytes. Plain wallets are accounts owned by the system
// program with no data.
type Account struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

func (a *Account) clone() *Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{Lamports: a.Lamports, Owner: a.Owner, Data: data}
}

// Ledger is an in-memory account store with serializable transaction
// semantics: each instruction executes against an overlay that commits
// all-or-nothing, so no handler ever leaves partial writes behind. The
// mutex serializes transactions the way account locks do on the hosting
// runtime; handlers themselves are lock-free and CPU-bound.
type Ledger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[solana.PublicKey]*Account)}
}

// Fund credits lamports to an address, creating a system-owned wallet
// account if needed. Test and bootstrap helper (the airdrop analog).
func (l *Ledger) Fund(addr solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok {
		acc = &Account{Owner: solana.SystemProgramID}
		l.accounts[addr] = acc
	}
	acc.Lamports += lamports
}

// Balance returns the lamport balance of an address (zero if absent).
func (l *Ledger) Balance(addr solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[addr]; ok {
		return acc.Lamports
	}
	return 0
}

// Account returns a copy of the account at addr.
func (l *Ledger) Account(addr solana.PublicKey) (*Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return nil, false
	}
	return acc.clone(), true
}

// execute runs fn against a fresh overlay and commits it only on success.
func (l *Ledger) execute(fn func(*execCtx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ec := &execCtx{base: l.accounts, dirty: make(map[solana.PublicKey]*Account)}
	if err := fn(ec); err != nil {
		return err
	}
	for addr, acc := range ec.dirty {
		if acc == nil {
			delete(l.accounts, addr)
		} else {
			l.accounts[addr] = acc
		}
	}
	return nil
}

// execCtx is the per-transaction view of the ledger. Reads fall through to
// the base store; writes land in the dirty set until commit. A nil dirty
// entry marks a closed account.
type execCtx struct {
	base  map[solana.PublicKey]*Account
	dirty map[solana.PublicKey]*Account
}

func (ec *execCtx) get(addr solana.PublicKey) (*Account, bool) {
	if acc, ok := ec.dirty[addr]; ok {
		return acc, acc != nil
	}
	acc, ok := ec.base[addr]
	if !ok {
		return nil, false
	}
	// Copy on first touch so a failed transaction never mutates base state.
	cp := acc.clone()
	ec.dirty[addr] = cp
	return cp, true
}

func (ec *execCtx) put(addr solana.PublicKey, acc *Account) {
	ec.dirty[addr] = acc
}

// rentExempt is the deposit required to keep an account alive: two years
// of storage at the default lamports-per-byte-year rate, including the
// fixed account overhead.
func rentExempt(dataLen int) uint64 {
	const (
		lamportsPerByteYear = 3480
		storageOverhead     = 128
		exemptionYears      = 2
	)
	return uint64(storageOverhead+dataLen) * lamportsPerByteYear * exemptionYears
}

// create initializes a program-owned account at addr, funded by payer.
// Fails if the address is already in use.
func (ec *execCtx) create(addr, payer solana.PublicKey, data []byte) error {
	if _, ok := ec.get(addr); ok {
		return ErrAlreadyInitialized
	}
	rent := rentExempt(len(data))
	payerAcc, ok := ec.get(payer)
	if !ok || payerAcc.Lamports < rent {
		return ErrInsufficientFunds
	}
	payerAcc.Lamports -= rent
	ec.put(payer, payerAcc)
	ec.put(addr, &Account{Lamports: rent, Owner: ProgramID, Data: data})
	return nil
}

// store replaces the data of an existing program-owned account.
func (ec *execCtx) store(addr solana.PublicKey, data []byte) error {
	acc, ok := ec.get(addr)
	if !ok {
		return ErrAccountNotFound
	}
	acc.Data = data
	ec.put(addr, acc)
	return nil
}

// close deletes the account at addr and refunds its lamports to recipient.
func (ec *execCtx) close(addr, recipient solana.PublicKey) error {
	acc, ok := ec.get(addr)
	if !ok {
		return ErrAccountNotFound
	}
	rec, ok := ec.get(recipient)
	if !ok {
		rec = &Account{Owner: solana.SystemProgramID}
	}
	rec.Lamports += acc.Lamports
	ec.put(recipient, rec)
	ec.put(addr, nil)
	return nil
}
