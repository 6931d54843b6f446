// Package registry implements the agent registry program: on-chain account
// layouts, PDA derivation and the instruction handlers that govern agent
// identity, challenge verification and the audit trail.
//
// The package is a deterministic state machine over a Ledger. Signature
// verification happens in the hosting runtime; the signer keys passed into
// each instruction are taken as verified, and handlers enforce the
// authority constraints (owner, admin, challenger) against them.
package registry

import (
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Program executes registry instructions against a ledger. Clock supplies
// the unix timestamp observed by handlers; tests substitute a fixed clock.
type Program struct {
	ledger *Ledger
	Clock  func() int64
}

// NewProgram returns a Program bound to the given ledger.
func NewProgram(ledger *Ledger) *Program {
	return &Program{
		ledger: ledger,
		Clock: func() int64 {
			return time.Now().Unix()
		},
	}
}

// Ledger exposes the backing ledger for reads.
func (p *Program) Ledger() *Ledger {
	return p.ledger
}

// --- typed account loaders/storers -------------------------------------

func loadRegistry(ec *execCtx) (*RegistryState, solana.PublicKey, error) {
	addr, _, err := GetRegistryPDA()
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	acc, ok := ec.get(addr)
	if !ok {
		return nil, addr, ErrAccountNotFound
	}
	registry := new(RegistryState)
	if err := registry.UnmarshalWithDecoder(bin.NewBorshDecoder(acc.Data)); err != nil {
		return nil, addr, err
	}
	return registry, addr, nil
}

func storeRegistry(ec *execCtx, addr solana.PublicKey, registry *RegistryState) error {
	data, err := MarshalAccount(*registry)
	if err != nil {
		return err
	}
	return ec.store(addr, data)
}

// loadAgent deserializes the agent at addr and checks the seeds constraint:
// the address must equal the PDA derived from the stored owner and id.
func loadAgent(ec *execCtx, addr solana.PublicKey) (*AgentAccount, error) {
	acc, ok := ec.get(addr)
	if !ok {
		return nil, ErrAgentNotFound
	}
	agent := new(AgentAccount)
	if err := agent.UnmarshalWithDecoder(bin.NewBorshDecoder(acc.Data)); err != nil {
		return nil, err
	}
	derived, _, err := GetAgentPDA(agent.Owner, agent.AgentId)
	if err != nil {
		return nil, err
	}
	if !derived.Equals(addr) {
		return nil, ErrConstraintSeeds
	}
	return agent, nil
}

func storeAgent(ec *execCtx, addr solana.PublicKey, agent *AgentAccount) error {
	data, err := MarshalAccount(*agent)
	if err != nil {
		return err
	}
	return ec.store(addr, data)
}

func loadChallenge(ec *execCtx, addr solana.PublicKey) (*Challenge, error) {
	acc, ok := ec.get(addr)
	if !ok {
		return nil, ErrAccountNotFound
	}
	challenge := new(Challenge)
	if err := challenge.UnmarshalWithDecoder(bin.NewBorshDecoder(acc.Data)); err != nil {
		return nil, err
	}
	derived, _, err := GetChallengePDA(challenge.Agent, challenge.Challenger, challenge.Nonce)
	if err != nil {
		return nil, err
	}
	if !derived.Equals(addr) {
		return nil, ErrConstraintSeeds
	}
	return challenge, nil
}

func storeChallenge(ec *execCtx, addr solana.PublicKey, challenge *Challenge) error {
	data, err := MarshalAccount(*challenge)
	if err != nil {
		return err
	}
	return ec.store(addr, data)
}

// --- field validation ---------------------------------------------------

func isHexString(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// isHex64 reports whether s is a 64-character hex digest.
func isHex64(s string) bool {
	return len(s) == 64 && isHexString(s)
}

// validModelHash checks the "sha256:" + 64 hex chars identity anchor format.
func validModelHash(s string) bool {
	const prefix = "sha256:"
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	return isHex64(s[len(prefix):])
}
