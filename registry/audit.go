package registry

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// LogAuditParams are the accounts and arguments for LogAudit. Actor signs
// and pays. AuditIndex must equal the summary's current TotalEntries; a
// duplicate or out-of-order index is rejected before any write.
type LogAuditParams struct {
	Actor       solana.PublicKey
	Agent       solana.PublicKey
	AuditIndex  uint64
	ActionType  ActionType
	ContextRisk uint8
	DetailsHash string
}

// LogAudit appends one immutable audit entry for an agent and folds it
// into the agent's audit summary, creating the summary on first use.
func (p *Program) LogAudit(params LogAuditParams) error {
	return p.ledger.execute(func(ec *execCtx) error {
		if !isHex64(params.DetailsHash) {
			return ErrInvalidDetailsHash
		}
		if params.ContextRisk > 100 {
			return ErrInvalidRiskScore
		}

		if _, err := loadAgent(ec, params.Agent); err != nil {
			return err
		}

		summaryAddr, summaryBump, err := GetAuditSummaryPDA(params.Agent)
		if err != nil {
			return err
		}
		summary, _, err := loadOrInitAuditSummary(ec, summaryAddr, summaryBump, params.Agent, params.Actor)
		if err != nil {
			return err
		}
		if params.AuditIndex != summary.TotalEntries {
			return ErrSequenceMismatch
		}

		entryAddr, entryBump, err := GetAuditEntryPDA(params.Agent, summary.TotalEntries)
		if err != nil {
			return err
		}

		now := p.Clock()
		riskScore := CalculateRiskScore(params.ActionType, params.ContextRisk)
		isAlert := params.ActionType == ActionType_SecurityAlert || riskScore >= 75

		entry := AuditEntry{
			Agent:       params.Agent,
			Actor:       params.Actor,
			ActionType:  params.ActionType,
			RiskScore:   riskScore,
			RiskLevel:   RiskLevelFromScore(riskScore),
			Timestamp:   now,
			DetailsHash: params.DetailsHash,
			AuditIndex:  summary.TotalEntries,
			Bump:        entryBump,
		}
		entryData, err := MarshalAccount(entry)
		if err != nil {
			return err
		}
		if err := ec.create(entryAddr, params.Actor, entryData); err != nil {
			return err
		}

		summary.RecordEntry(riskScore, isAlert, now)
		summaryData, err := MarshalAccount(*summary)
		if err != nil {
			return err
		}
		return ec.store(summaryAddr, summaryData)
	})
}

// StoreMerkleAuditParams are the accounts and arguments for
// StoreMerkleAudit. Owner signs and pays. BatchIndex must equal the
// merkle summary's TotalBatches.
type StoreMerkleAuditParams struct {
	Owner        solana.PublicKey
	Agent        solana.PublicKey
	BatchIndex   uint64
	MerkleRoot   [32]uint8
	EntriesCount uint32
}

// StoreMerkleAudit commits one batch of off-chain audit entries as a
// single merkle root and atomically bumps the per-agent batch counters.
// Batches are append-only; a stored root is never mutated.
func (p *Program) StoreMerkleAudit(params StoreMerkleAuditParams) error {
	return p.ledger.execute(func(ec *execCtx) error {
		agent, err := loadAgent(ec, params.Agent)
		if err != nil {
			return err
		}
		if !agent.Owner.Equals(params.Owner) {
			return ErrUnauthorized
		}

		summaryAddr, summaryBump, err := GetMerkleSummaryPDA(params.Agent)
		if err != nil {
			return err
		}
		summary, _, err := loadOrInitMerkleSummary(ec, summaryAddr, summaryBump, params.Agent, params.Owner)
		if err != nil {
			return err
		}
		if params.BatchIndex != summary.TotalBatches {
			return ErrSequenceMismatch
		}

		rootAddr, rootBump, err := GetMerkleRootPDA(params.Agent, summary.TotalBatches)
		if err != nil {
			return err
		}

		now := p.Clock()
		root := MerkleAuditRoot{
			Agent:        params.Agent,
			MerkleRoot:   params.MerkleRoot,
			EntriesCount: params.EntriesCount,
			BatchIndex:   summary.TotalBatches,
			Timestamp:    now,
			Bump:         rootBump,
		}
		rootData, err := MarshalAccount(root)
		if err != nil {
			return err
		}
		if err := ec.create(rootAddr, params.Owner, rootData); err != nil {
			return err
		}

		summary.TotalBatches = saturatingAdd64(summary.TotalBatches, 1)
		summary.TotalEntries = saturatingAdd64(summary.TotalEntries, uint64(params.EntriesCount))
		summary.LastBatchAt = now
		summaryData, err := MarshalAccount(*summary)
		if err != nil {
			return err
		}
		return ec.store(summaryAddr, summaryData)
	})
}

// loadOrInitAuditSummary returns the agent's audit summary, creating an
// empty one (paid by payer) when this is the first audit.
func loadOrInitAuditSummary(ec *execCtx, addr solana.PublicKey, bump uint8, agent, payer solana.PublicKey) (*AgentAuditSummary, bool, error) {
	if acc, ok := ec.get(addr); ok {
		summary := new(AgentAuditSummary)
		if err := summary.UnmarshalWithDecoder(bin.NewBorshDecoder(acc.Data)); err != nil {
			return nil, false, err
		}
		return summary, false, nil
	}
	summary := &AgentAuditSummary{Agent: agent, Bump: bump}
	data, err := MarshalAccount(*summary)
	if err != nil {
		return nil, false, err
	}
	if err := ec.create(addr, payer, data); err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

// loadOrInitMerkleSummary mirrors loadOrInitAuditSummary for the batched log.
func loadOrInitMerkleSummary(ec *execCtx, addr solana.PublicKey, bump uint8, agent, payer solana.PublicKey) (*MerkleAuditSummary, bool, error) {
	if acc, ok := ec.get(addr); ok {
		summary := new(MerkleAuditSummary)
		if err := summary.UnmarshalWithDecoder(bin.NewBorshDecoder(acc.Data)); err != nil {
			return nil, false, err
		}
		return summary, false, nil
	}
	summary := &MerkleAuditSummary{Agent: agent, Bump: bump}
	data, err := MarshalAccount(*summary)
	if err != nil {
		return nil, false, err
	}
	if err := ec.create(addr, payer, data); err != nil {
		return nil, false, err
	}
	return summary, true, nil
}
