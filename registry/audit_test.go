package registry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func (f *fixture) auditSummary(t *testing.T) *AgentAuditSummary {
	t.Helper()
	addr, _, err := GetAuditSummaryPDA(f.agent)
	require.NoError(t, err)
	acc, ok := f.ledger.Account(addr)
	require.True(t, ok)
	summary, err := ParseAccount_AgentAuditSummary(acc.Data)
	require.NoError(t, err)
	return summary
}

func (f *fixture) merkleSummary(t *testing.T) *MerkleAuditSummary {
	t.Helper()
	addr, _, err := GetMerkleSummaryPDA(f.agent)
	require.NoError(t, err)
	acc, ok := f.ledger.Account(addr)
	require.True(t, ok)
	summary, err := ParseAccount_MerkleAuditSummary(acc.Data)
	require.NoError(t, err)
	return summary
}

func TestLogAudit(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.program.LogAudit(LogAuditParams{
		Actor:       f.owner,
		Agent:       f.agent,
		AuditIndex:  0,
		ActionType:  ActionType_AgentRegistered,
		ContextRisk: 0,
		DetailsHash: sha256Hex("registered"),
	}))

	entryAddr, _, err := GetAuditEntryPDA(f.agent, 0)
	require.NoError(t, err)
	acc, ok := f.ledger.Account(entryAddr)
	require.True(t, ok)
	entry, err := ParseAccount_AuditEntry(acc.Data)
	require.NoError(t, err)
	require.Equal(t, f.agent, entry.Agent)
	require.Equal(t, f.owner, entry.Actor)
	require.Equal(t, uint8(0), entry.RiskScore)
	require.Equal(t, RiskLevel_None, entry.RiskLevel)
	require.Equal(t, uint64(0), entry.AuditIndex)

	summary := f.auditSummary(t)
	require.Equal(t, uint64(1), summary.TotalEntries)
	require.Equal(t, uint32(1), summary.SafeStreak)
}

func TestLogAuditValidation(t *testing.T) {
	f := newFixture(t)

	err := f.program.LogAudit(LogAuditParams{
		Actor: f.owner, Agent: f.agent,
		ActionType:  ActionType_Custom,
		DetailsHash: "short",
	})
	require.ErrorIs(t, err, ErrInvalidDetailsHash)

	err = f.program.LogAudit(LogAuditParams{
		Actor: f.owner, Agent: f.agent,
		ActionType:  ActionType_Custom,
		ContextRisk: 101,
		DetailsHash: sha256Hex("x"),
	})
	require.ErrorIs(t, err, ErrInvalidRiskScore)
}

func TestLogAuditSequence(t *testing.T) {
	f := newFixture(t)

	log := func(index uint64, action ActionType, contextRisk uint8) error {
		return f.program.LogAudit(LogAuditParams{
			Actor:       f.owner,
			Agent:       f.agent,
			AuditIndex:  index,
			ActionType:  action,
			ContextRisk: contextRisk,
			DetailsHash: sha256Hex("details"),
		})
	}

	require.NoError(t, log(0, ActionType_AgentRegistered, 0))
	require.NoError(t, log(1, ActionType_ChallengePassed, 0))

	// out-of-order and duplicate indices are rejected
	require.ErrorIs(t, log(1, ActionType_ChallengePassed, 0), ErrSequenceMismatch)
	require.ErrorIs(t, log(5, ActionType_ChallengePassed, 0), ErrSequenceMismatch)

	require.NoError(t, log(2, ActionType_SecurityAlert, 10))

	summary := f.auditSummary(t)
	require.Equal(t, uint64(3), summary.TotalEntries)
	require.Equal(t, uint32(1), summary.SecurityAlerts)
	require.Equal(t, uint32(0), summary.SafeStreak, "alert resets the safe streak")
	// SecurityAlert base 75 + context 10 = 85
	require.Equal(t, uint8(85), summary.MaxRiskScore)
}

func TestCalculateRiskScore(t *testing.T) {
	tests := []struct {
		action  ActionType
		context uint8
		want    uint8
	}{
		{ActionType_AgentRegistered, 0, 0},
		{ActionType_AgentUpdated, 0, 5},
		{ActionType_ChallengeFailed, 10, 35},
		{ActionType_SecurityAlert, 50, 100}, // capped
		{ActionType_Custom, 30, 60},         // custom's base risk is the context itself
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CalculateRiskScore(tt.action, tt.context),
			"action=%s context=%d", tt.action, tt.context)
	}
}

func TestRiskLevelFromScore(t *testing.T) {
	require.Equal(t, RiskLevel_None, RiskLevelFromScore(0))
	require.Equal(t, RiskLevel_Low, RiskLevelFromScore(25))
	require.Equal(t, RiskLevel_Medium, RiskLevelFromScore(26))
	require.Equal(t, RiskLevel_High, RiskLevelFromScore(75))
	require.Equal(t, RiskLevel_Critical, RiskLevelFromScore(76))
}

func TestAuditSummaryRollingAverage(t *testing.T) {
	s := &AgentAuditSummary{}
	s.RecordEntry(10, false, 1)
	s.RecordEntry(20, false, 2)
	s.RecordEntry(30, false, 3)
	require.Equal(t, uint64(3), s.TotalEntries)
	require.Equal(t, uint8(20), s.AvgRiskScore)
	require.Equal(t, uint8(30), s.MaxRiskScore)
	require.Equal(t, int64(3), s.LastAuditAt)
}

func TestCountersSaturateInsteadOfWrapping(t *testing.T) {
	s := &AgentAuditSummary{
		TotalEntries:   math.MaxUint64,
		SecurityAlerts: math.MaxUint32,
	}
	s.RecordEntry(90, true, 1)
	require.Equal(t, uint64(math.MaxUint64), s.TotalEntries)
	require.Equal(t, uint32(math.MaxUint32), s.SecurityAlerts)

	s = &AgentAuditSummary{SafeStreak: math.MaxUint32}
	s.RecordEntry(0, false, 2)
	require.Equal(t, uint32(math.MaxUint32), s.SafeStreak)

	require.Equal(t, uint32(math.MaxUint32), saturatingAdd32(math.MaxUint32, 1))
	require.Equal(t, uint64(math.MaxUint64), saturatingAdd64(math.MaxUint64-1, 5))
	require.Equal(t, uint32(7), saturatingAdd32(3, 4))
}

func TestIsTrusted(t *testing.T) {
	s := &AgentAuditSummary{AvgRiskScore: 10, SafeStreak: 10}
	require.True(t, s.IsTrusted())

	s.SecurityAlerts = 1
	require.False(t, s.IsTrusted())
}

func TestStoreMerkleAudit(t *testing.T) {
	f := newFixture(t)

	var root [32]uint8
	copy(root[:], []byte("0123456789abcdef0123456789abcdef"))

	store := func(batch uint64, count uint32) error {
		return f.program.StoreMerkleAudit(StoreMerkleAuditParams{
			Owner:        f.owner,
			Agent:        f.agent,
			BatchIndex:   batch,
			MerkleRoot:   root,
			EntriesCount: count,
		})
	}

	// only the agent owner may commit batches
	err := f.program.StoreMerkleAudit(StoreMerkleAuditParams{
		Owner: f.challenger, Agent: f.agent, BatchIndex: 0, MerkleRoot: root, EntriesCount: 1,
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, store(0, 25))
	require.NoError(t, store(1, 17))

	// duplicate or skipped batch indices are rejected
	require.ErrorIs(t, store(1, 5), ErrSequenceMismatch)
	require.ErrorIs(t, store(3, 5), ErrSequenceMismatch)

	summary := f.merkleSummary(t)
	require.Equal(t, uint64(2), summary.TotalBatches)
	require.Equal(t, uint64(42), summary.TotalEntries)

	rootAddr, _, err := GetMerkleRootPDA(f.agent, 0)
	require.NoError(t, err)
	acc, ok := f.ledger.Account(rootAddr)
	require.True(t, ok)
	stored, err := ParseAccount_MerkleAuditRoot(acc.Data)
	require.NoError(t, err)
	require.Equal(t, root, stored.MerkleRoot)
	require.Equal(t, uint32(25), stored.EntriesCount)
	require.Equal(t, uint64(0), stored.BatchIndex)
}
