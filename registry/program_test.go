package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

const testFunding = 10_000_000_000

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func testModelHash() string {
	return "sha256:" + strings.Repeat("a", 64)
}

// fixture is a ledger with an initialized registry, a set collection and
// one registered agent, driven by a controllable clock.
type fixture struct {
	ledger     *Ledger
	program    *Program
	now        int64
	admin      solana.PublicKey
	owner      solana.PublicKey
	challenger solana.PublicKey
	agent      solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ledger:     NewLedger(),
		now:        1_700_000_000,
		admin:      solana.NewWallet().PublicKey(),
		owner:      solana.NewWallet().PublicKey(),
		challenger: solana.NewWallet().PublicKey(),
	}
	f.program = NewProgram(f.ledger)
	f.program.Clock = func() int64 { return f.now }

	for _, w := range []solana.PublicKey{f.admin, f.owner, f.challenger} {
		f.ledger.Fund(w, testFunding)
	}

	require.NoError(t, f.program.Initialize(f.admin))
	require.NoError(t, f.program.CreateCollection(f.admin, solana.NewWallet().PublicKey()))

	f.agent = f.register(t, f.owner, "oracle-7b")
	return f
}

// register creates an agent for owner against the current counter and
// returns its address.
func (f *fixture) register(t *testing.T, owner solana.PublicKey, name string) solana.PublicKey {
	t.Helper()
	reg := f.registry(t)
	addr, _, err := GetAgentPDA(owner, reg.TotalAgents)
	require.NoError(t, err)
	require.NoError(t, f.program.RegisterAgent(RegisterAgentParams{
		Owner:        owner,
		Agent:        addr,
		NftMint:      solana.NewWallet().PublicKey(),
		Name:         name,
		ModelHash:    testModelHash(),
		Capabilities: "analysis,coding",
	}))
	return addr
}

func (f *fixture) registry(t *testing.T) *RegistryState {
	t.Helper()
	addr, _, err := GetRegistryPDA()
	require.NoError(t, err)
	acc, ok := f.ledger.Account(addr)
	require.True(t, ok)
	reg, err := ParseAccount_RegistryState(acc.Data)
	require.NoError(t, err)
	return reg
}

func (f *fixture) agentState(t *testing.T, addr solana.PublicKey) *AgentAccount {
	t.Helper()
	acc, ok := f.ledger.Account(addr)
	require.True(t, ok)
	agent, err := ParseAccount_AgentAccount(acc.Data)
	require.NoError(t, err)
	return agent
}

func (f *fixture) challengeState(t *testing.T, addr solana.PublicKey) *Challenge {
	t.Helper()
	acc, ok := f.ledger.Account(addr)
	require.True(t, ok)
	ch, err := ParseAccount_Challenge(acc.Data)
	require.NoError(t, err)
	return ch
}

func TestInitializeTwiceFails(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.program.Initialize(f.admin), ErrAlreadyInitialized)
}

func TestCreateCollectionGuards(t *testing.T) {
	ledger := NewLedger()
	program := NewProgram(ledger)
	admin := solana.NewWallet().PublicKey()
	ledger.Fund(admin, testFunding)
	require.NoError(t, program.Initialize(admin))

	stranger := solana.NewWallet().PublicKey()
	require.ErrorIs(t, program.CreateCollection(stranger, solana.NewWallet().PublicKey()), ErrUnauthorized)

	require.NoError(t, program.CreateCollection(admin, solana.NewWallet().PublicKey()))
	require.ErrorIs(t, program.CreateCollection(admin, solana.NewWallet().PublicKey()), ErrCollectionAlreadyInitialized)
}

func TestRegisterBeforeCollectionFails(t *testing.T) {
	ledger := NewLedger()
	program := NewProgram(ledger)
	admin := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	ledger.Fund(admin, testFunding)
	ledger.Fund(owner, testFunding)
	require.NoError(t, program.Initialize(admin))

	addr, _, err := GetAgentPDA(owner, 0)
	require.NoError(t, err)
	err = program.RegisterAgent(RegisterAgentParams{
		Owner:     owner,
		Agent:     addr,
		NftMint:   solana.NewWallet().PublicKey(),
		Name:      "x",
		ModelHash: testModelHash(),
	})
	require.ErrorIs(t, err, ErrCollectionNotInitialized)
}

func TestRegisterAgentRoundTrip(t *testing.T) {
	f := newFixture(t)

	agent := f.agentState(t, f.agent)
	require.Equal(t, uint64(0), agent.AgentId)
	require.Equal(t, f.owner, agent.Owner)
	require.Equal(t, "oracle-7b", agent.Name)
	require.Equal(t, testModelHash(), agent.ModelHash)
	require.Equal(t, "analysis,coding", agent.Capabilities)
	require.Equal(t, InitialReputation, agent.ReputationScore)
	require.Equal(t, uint32(0), agent.ChallengesPassed)
	require.Equal(t, uint32(0), agent.ChallengesFailed)
	require.False(t, agent.Verified)
	require.Equal(t, f.now, agent.CreatedAt)

	require.Equal(t, uint64(1), f.registry(t).TotalAgents)
}

func TestRegisterAgentValidation(t *testing.T) {
	f := newFixture(t)
	reg := f.registry(t)
	addr, _, err := GetAgentPDA(f.owner, reg.TotalAgents)
	require.NoError(t, err)

	base := RegisterAgentParams{
		Owner:     f.owner,
		Agent:     addr,
		NftMint:   solana.NewWallet().PublicKey(),
		Name:      "agent",
		ModelHash: testModelHash(),
	}

	tests := []struct {
		name    string
		mutate  func(*RegisterAgentParams)
		wantErr error
	}{
		{"bad model hash", func(p *RegisterAgentParams) { p.ModelHash = "not-a-hash" }, ErrInvalidModelHash},
		{"short model hash", func(p *RegisterAgentParams) { p.ModelHash = "sha256:abc" }, ErrInvalidModelHash},
		{"non-hex model hash", func(p *RegisterAgentParams) { p.ModelHash = "sha256:" + strings.Repeat("z", 64) }, ErrInvalidModelHash},
		{"empty name", func(p *RegisterAgentParams) { p.Name = "" }, ErrNameTooLong},
		{"long name", func(p *RegisterAgentParams) { p.Name = strings.Repeat("n", 65) }, ErrNameTooLong},
		{"long capabilities", func(p *RegisterAgentParams) { p.Capabilities = strings.Repeat("c", 257) }, ErrCapabilitiesTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := base
			tt.mutate(&params)
			before := f.registry(t).TotalAgents
			require.ErrorIs(t, f.program.RegisterAgent(params), tt.wantErr)
			require.Equal(t, before, f.registry(t).TotalAgents, "counter must not move on failure")
			_, exists := f.ledger.Account(addr)
			require.False(t, exists, "no account may be created on failure")
		})
	}
}

// Two registrations racing on the same counter value: the second one
// derives its address from a counter that is stale by the time it runs,
// so only one lands and the counter advances by exactly one.
func TestRegisterAgentStaleCounterRace(t *testing.T) {
	f := newFixture(t)
	reg := f.registry(t)

	ownerA := solana.NewWallet().PublicKey()
	ownerB := solana.NewWallet().PublicKey()
	f.ledger.Fund(ownerA, testFunding)
	f.ledger.Fund(ownerB, testFunding)

	// Both read total_agents == N and derive against it.
	addrA, _, err := GetAgentPDA(ownerA, reg.TotalAgents)
	require.NoError(t, err)
	addrB, _, err := GetAgentPDA(ownerB, reg.TotalAgents)
	require.NoError(t, err)

	require.NoError(t, f.program.RegisterAgent(RegisterAgentParams{
		Owner: ownerA, Agent: addrA, NftMint: solana.NewWallet().PublicKey(),
		Name: "first", ModelHash: testModelHash(),
	}))
	err = f.program.RegisterAgent(RegisterAgentParams{
		Owner: ownerB, Agent: addrB, NftMint: solana.NewWallet().PublicKey(),
		Name: "second", ModelHash: testModelHash(),
	})
	require.ErrorIs(t, err, ErrConstraintSeeds)

	require.Equal(t, reg.TotalAgents+1, f.registry(t).TotalAgents)
}

func TestUpdateAgent(t *testing.T) {
	f := newFixture(t)

	name := "oracle-7b-v2"
	caps := "analysis,coding,trading"
	f.now += 60
	require.NoError(t, f.program.UpdateAgent(f.owner, f.agent, &name, &caps))

	agent := f.agentState(t, f.agent)
	require.Equal(t, name, agent.Name)
	require.Equal(t, caps, agent.Capabilities)
	require.Equal(t, testModelHash(), agent.ModelHash, "model hash is immutable")
	require.Equal(t, f.now, agent.UpdatedAt)

	// nil keeps the current value
	require.NoError(t, f.program.UpdateAgent(f.owner, f.agent, nil, nil))
	require.Equal(t, name, f.agentState(t, f.agent).Name)

	require.ErrorIs(t, f.program.UpdateAgent(f.challenger, f.agent, &name, nil), ErrUnauthorized)
}

func TestVerifyAgent(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.program.VerifyAgent(f.owner, f.agent), ErrUnauthorized)

	require.NoError(t, f.program.VerifyAgent(f.admin, f.agent))
	require.True(t, f.agentState(t, f.agent).Verified)

	// idempotent: verifying again is a no-op, not an error
	require.NoError(t, f.program.VerifyAgent(f.admin, f.agent))
	require.True(t, f.agentState(t, f.agent).Verified)
}

func TestUpdateReputation(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.program.UpdateReputation(f.owner, f.agent, 100), ErrUnauthorized)
	require.ErrorIs(t, f.program.UpdateReputation(f.admin, f.agent, 1001), ErrReputationDeltaTooLarge)
	require.ErrorIs(t, f.program.UpdateReputation(f.admin, f.agent, -1001), ErrReputationDeltaTooLarge)

	require.NoError(t, f.program.UpdateReputation(f.admin, f.agent, 250))
	agent := f.agentState(t, f.agent)
	require.Equal(t, uint32(5250), agent.ReputationScore)
	require.Equal(t, uint32(1), agent.ChallengesPassed)

	require.NoError(t, f.program.UpdateReputation(f.admin, f.agent, -1000))
	agent = f.agentState(t, f.agent)
	require.Equal(t, uint32(4250), agent.ReputationScore)
	require.Equal(t, uint32(1), agent.ChallengesFailed)
}

// The score saturates at both bounds under any instruction sequence.
func TestReputationSaturation(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 12; i++ {
		require.NoError(t, f.program.UpdateReputation(f.admin, f.agent, 1000))
	}
	require.Equal(t, MaxReputation, f.agentState(t, f.agent).ReputationScore)

	for i := 0; i < 25; i++ {
		require.NoError(t, f.program.UpdateReputation(f.admin, f.agent, -1000))
	}
	require.Equal(t, MinReputation, f.agentState(t, f.agent).ReputationScore)
}

func TestAdjustReputationClamp(t *testing.T) {
	agent := &AgentAccount{ReputationScore: 30}
	agent.AdjustReputation(-50)
	require.Equal(t, uint32(0), agent.ReputationScore, "must floor, never underflow")

	agent.ReputationScore = 9990
	agent.AdjustReputation(100)
	require.Equal(t, MaxReputation, agent.ReputationScore, "must cap, never exceed scale")
}
