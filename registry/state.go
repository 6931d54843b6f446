package registry

import (
	"crypto/sha256"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ProgramID is the on-chain address of the agent registry program.
var ProgramID = solana.MustPublicKeyFromBase58("EQ2Zv3cTDBzY1PafPz2WDoup6niUv6X8t9id4PBACL38")

// Account discriminators: first 8 bytes of sha256("account:<Name>"),
// prepended to every serialized account.
var (
	Account_RegistryState      = accountDiscriminator("RegistryState")
	Account_AgentAccount       = accountDiscriminator("AgentAccount")
	Account_Challenge          = accountDiscriminator("Challenge")
	Account_AuditEntry         = accountDiscriminator("AuditEntry")
	Account_AgentAuditSummary  = accountDiscriminator("AgentAuditSummary")
	Account_MerkleAuditSummary = accountDiscriminator("MerkleAuditSummary")
	Account_MerkleAuditRoot    = accountDiscriminator("MerkleAuditRoot")
)

func accountDiscriminator(name string) bin.TypeID {
	h := sha256.Sum256([]byte("account:" + name))
	return bin.TypeIDFromBytes(h[:8])
}

// RegistryState is the global singleton tracking the admin and the agent counter.
type RegistryState struct {
	Admin                 solana.PublicKey
	TotalAgents           uint64
	Collection            solana.PublicKey
	CollectionInitialized bool
	Bump                  uint8
}

// AgentAccount represents one registered agent.
type AgentAccount struct {
	AgentId          uint64
	Owner            solana.PublicKey
	Name             string
	ModelHash        string
	Capabilities     string
	ReputationScore  uint32
	ChallengesPassed uint32
	ChallengesFailed uint32
	Verified         bool
	CreatedAt        int64
	UpdatedAt        int64
	NftMint          solana.PublicKey
	Bump             uint8
}

const (
	// MaxNameLen bounds AgentAccount.Name.
	MaxNameLen = 64
	// MaxModelHashLen bounds AgentAccount.ModelHash ("sha256:" + 64 hex).
	MaxModelHashLen = 72
	// MaxCapabilitiesLen bounds AgentAccount.Capabilities.
	MaxCapabilitiesLen = 256
	// MaxQuestionLen / MinQuestionLen bound Challenge.Question.
	MaxQuestionLen = 256
	MinQuestionLen = 10

	// InitialReputation is assigned at registration (50% of scale).
	InitialReputation uint32 = 5000
	// MaxReputation is the score ceiling (100.00%).
	MaxReputation uint32 = 10000
	// MinReputation is the score floor.
	MinReputation uint32 = 0
)

// ReputationPercentage maps the raw score onto 0.00-100.00.
func (a *AgentAccount) ReputationPercentage() float64 {
	return float64(a.ReputationScore) / 100.0
}

// AdjustReputation applies delta with saturation at [MinReputation, MaxReputation].
// The score never wraps; out-of-range results clamp to the nearest bound.
func (a *AgentAccount) AdjustReputation(delta int32) {
	score := int64(a.ReputationScore) + int64(delta)
	if score < int64(MinReputation) {
		score = int64(MinReputation)
	}
	if score > int64(MaxReputation) {
		score = int64(MaxReputation)
	}
	a.ReputationScore = uint32(score)
}

// saturatingAdd32 and saturatingAdd64 cap at the type maximum instead of
// wrapping, like the reputation clamp.
func saturatingAdd32(v, n uint32) uint32 {
	if v > math.MaxUint32-n {
		return math.MaxUint32
	}
	return v + n
}

func saturatingAdd64(v, n uint64) uint64 {
	if v > math.MaxUint64-n {
		return math.MaxUint64
	}
	return v + n
}

// ChallengeStatus is the lifecycle state of a Challenge.
type ChallengeStatus bin.BorshEnum

const (
	ChallengeStatus_Pending ChallengeStatus = iota
	ChallengeStatus_Passed
	ChallengeStatus_Failed
	ChallengeStatus_Expired
)

func (s ChallengeStatus) String() string {
	switch s {
	case ChallengeStatus_Pending:
		return "pending"
	case ChallengeStatus_Passed:
		return "passed"
	case ChallengeStatus_Failed:
		return "failed"
	case ChallengeStatus_Expired:
		return "expired"
	default:
		return fmt.Sprintf("ChallengeStatus(%d)", uint8(s))
	}
}

// Terminal reports whether the status can no longer change.
func (s ChallengeStatus) Terminal() bool {
	return s != ChallengeStatus_Pending
}

// Challenge is one verification challenge posed to an agent.
type Challenge struct {
	Agent        solana.PublicKey
	Challenger   solana.PublicKey
	Question     string
	ExpectedHash string
	Status       ChallengeStatus
	CreatedAt    int64
	ExpiresAt    int64
	RespondedAt  int64
	Nonce        uint64
	Bump         uint8
}

const (
	// ChallengeDuration is the response window in seconds.
	ChallengeDuration int64 = 3600
	// PassReputationDelta is credited on a correct response.
	PassReputationDelta int32 = 100
	// FailReputationDelta is debited on a wrong response or expiry.
	FailReputationDelta int32 = -50
)

// IsExpired reports whether the response window has closed.
func (c *Challenge) IsExpired(now int64) bool {
	return now > c.ExpiresAt
}

// ActionType classifies an audited agent activity.
type ActionType bin.BorshEnum

const (
	ActionType_AgentRegistered ActionType = iota
	ActionType_AgentUpdated
	ActionType_AgentVerified
	ActionType_ChallengeCreated
	ActionType_ChallengePassed
	ActionType_ChallengeFailed
	ActionType_ReputationIncreased
	ActionType_ReputationDecreased
	ActionType_SecurityAlert
	ActionType_Custom
)

func (a ActionType) String() string {
	switch a {
	case ActionType_AgentRegistered:
		return "agent_registered"
	case ActionType_AgentUpdated:
		return "agent_updated"
	case ActionType_AgentVerified:
		return "agent_verified"
	case ActionType_ChallengeCreated:
		return "challenge_created"
	case ActionType_ChallengePassed:
		return "challenge_passed"
	case ActionType_ChallengeFailed:
		return "challenge_failed"
	case ActionType_ReputationIncreased:
		return "reputation_increased"
	case ActionType_ReputationDecreased:
		return "reputation_decreased"
	case ActionType_SecurityAlert:
		return "security_alert"
	case ActionType_Custom:
		return "custom"
	default:
		return fmt.Sprintf("ActionType(%d)", uint8(a))
	}
}

// baseRisk is the inherent risk contribution of an action type.
func (a ActionType) baseRisk(contextRisk uint8) uint8 {
	switch a {
	case ActionType_AgentUpdated:
		return 5
	case ActionType_ChallengeCreated:
		return 10
	case ActionType_ChallengeFailed:
		return 25
	case ActionType_ReputationDecreased:
		return 20
	case ActionType_SecurityAlert:
		return 75
	case ActionType_Custom:
		return contextRisk
	default:
		return 0
	}
}

// CalculateRiskScore combines the action's base risk with caller-supplied
// context risk, capped at 100.
func CalculateRiskScore(action ActionType, contextRisk uint8) uint8 {
	risk := uint16(action.baseRisk(contextRisk)) + uint16(contextRisk)
	if risk > 100 {
		risk = 100
	}
	return uint8(risk)
}

// RiskLevel is the coarse classification of a risk score.
type RiskLevel bin.BorshEnum

const (
	RiskLevel_None RiskLevel = iota
	RiskLevel_Low
	RiskLevel_Medium
	RiskLevel_High
	RiskLevel_Critical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLevel_None:
		return "none"
	case RiskLevel_Low:
		return "low"
	case RiskLevel_Medium:
		return "medium"
	case RiskLevel_High:
		return "high"
	case RiskLevel_Critical:
		return "critical"
	default:
		return fmt.Sprintf("RiskLevel(%d)", uint8(r))
	}
}

// RiskLevelFromScore buckets a 0-100 score into a RiskLevel.
func RiskLevelFromScore(score uint8) RiskLevel {
	switch {
	case score == 0:
		return RiskLevel_None
	case score <= 25:
		return RiskLevel_Low
	case score <= 50:
		return RiskLevel_Medium
	case score <= 75:
		return RiskLevel_High
	default:
		return RiskLevel_Critical
	}
}

// AuditEntry is one immutable audit record for an agent.
type AuditEntry struct {
	Agent       solana.PublicKey
	Actor       solana.PublicKey
	ActionType  ActionType
	RiskScore   uint8
	RiskLevel   RiskLevel
	Timestamp   int64
	DetailsHash string
	AuditIndex  uint64
	Bump        uint8
}

// AgentAuditSummary aggregates an agent's audit trail for cheap lookups.
type AgentAuditSummary struct {
	Agent          solana.PublicKey
	TotalEntries   uint64
	SecurityAlerts uint32
	AvgRiskScore   uint8
	MaxRiskScore   uint8
	LastAuditAt    int64
	SafeStreak     uint32
	Bump           uint8
}

// RecordEntry folds a new audit entry into the summary.
func (s *AgentAuditSummary) RecordEntry(riskScore uint8, isAlert bool, timestamp int64) {
	s.TotalEntries = saturatingAdd64(s.TotalEntries, 1)

	if isAlert {
		s.SecurityAlerts = saturatingAdd32(s.SecurityAlerts, 1)
		s.SafeStreak = 0
	} else if riskScore <= 10 {
		s.SafeStreak = saturatingAdd32(s.SafeStreak, 1)
	}

	if riskScore > s.MaxRiskScore {
		s.MaxRiskScore = riskScore
	}

	// Rolling average over all entries so far.
	total := uint64(s.TotalEntries)
	s.AvgRiskScore = uint8((uint64(s.AvgRiskScore)*(total-1) + uint64(riskScore)) / total)

	s.LastAuditAt = timestamp
}

// IsTrusted reports whether the agent is in good security standing.
func (s *AgentAuditSummary) IsTrusted() bool {
	return s.AvgRiskScore <= 25 && s.SafeStreak >= 10 && s.SecurityAlerts == 0
}

// MerkleAuditSummary tracks an agent's batched audit log.
// Append-only: TotalBatches advances by exactly one per stored root.
type MerkleAuditSummary struct {
	Agent        solana.PublicKey
	TotalBatches uint64
	TotalEntries uint64
	LastBatchAt  int64
	Bump         uint8
}

// MerkleAuditRoot commits one batch of off-chain audit entries as a single
// 32-byte merkle root.
type MerkleAuditRoot struct {
	Agent        solana.PublicKey
	MerkleRoot   [32]uint8
	EntriesCount uint32
	BatchIndex   uint64
	Timestamp    int64
	Bump         uint8
}
