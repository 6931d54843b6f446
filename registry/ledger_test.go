package registry

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestLedgerFundAndBalance(t *testing.T) {
	ledger := NewLedger()
	addr := solana.NewWallet().PublicKey()

	require.Zero(t, ledger.Balance(addr))
	ledger.Fund(addr, 500)
	ledger.Fund(addr, 250)
	require.Equal(t, uint64(750), ledger.Balance(addr))
}

// A handler that fails after touching accounts must leave no trace: the
// whole instruction commits or none of it does.
func TestFailedInstructionLeavesNoPartialWrites(t *testing.T) {
	ledger := NewLedger()
	program := NewProgram(ledger)
	admin := solana.NewWallet().PublicKey()
	ledger.Fund(admin, testFunding)
	require.NoError(t, program.Initialize(admin))
	require.NoError(t, program.CreateCollection(admin, solana.NewWallet().PublicKey()))

	// a pauper owner passes validation but cannot pay rent
	pauper := solana.NewWallet().PublicKey()
	ledger.Fund(pauper, 1)

	addr, _, err := GetAgentPDA(pauper, 0)
	require.NoError(t, err)
	err = program.RegisterAgent(RegisterAgentParams{
		Owner:     pauper,
		Agent:     addr,
		NftMint:   solana.NewWallet().PublicKey(),
		Name:      "broke",
		ModelHash: testModelHash(),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// nothing moved: no agent account, counter still zero, lamports intact
	_, exists := ledger.Account(addr)
	require.False(t, exists)
	require.Equal(t, uint64(1), ledger.Balance(pauper))

	regAddr, _, err := GetRegistryPDA()
	require.NoError(t, err)
	acc, ok := ledger.Account(regAddr)
	require.True(t, ok)
	reg, err := ParseAccount_RegistryState(acc.Data)
	require.NoError(t, err)
	require.Zero(t, reg.TotalAgents)
}

func TestRentChargedAndRefunded(t *testing.T) {
	f := newFixture(t)
	addr := f.challenge(t, 1, sha256Hex("42"))

	rent := f.ledger.Balance(addr)
	require.Equal(t, rentExempt(len(mustAccountData(t, f, addr))), rent)

	require.NoError(t, f.program.SubmitResponse(f.owner, f.agent, addr, sha256Hex("42")))

	before := f.ledger.Balance(f.challenger)
	require.NoError(t, f.program.CloseChallenge(f.challenger, f.agent, addr))
	require.Equal(t, before+rent, f.ledger.Balance(f.challenger))
}

func mustAccountData(t *testing.T, f *fixture, addr solana.PublicKey) []byte {
	t.Helper()
	acc, ok := f.ledger.Account(addr)
	require.True(t, ok)
	return acc.Data
}
