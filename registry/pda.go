package registry

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// PDA seed tags. Account addresses are pure functions of these tags plus
// the referenced keys and little-endian integers; no pointers are stored
// on-chain.
var (
	SeedRegistry      = []byte("registry")
	SeedAgent         = []byte("agent")
	SeedChallenge     = []byte("challenge")
	SeedAuditEntry    = []byte("audit")
	SeedAuditSummary  = []byte("audit_summary")
	SeedMerkleSummary = []byte("merkle_summary")
	SeedMerkleAudit   = []byte("merkle_audit")
)

func leUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// GetRegistryPDA returns the address of the global RegistryState singleton.
func GetRegistryPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedRegistry},
		ProgramID,
	)
}

// GetAgentPDA returns the address of an agent account. The id seed is the
// registry counter value at registration time, so a registration built
// against a stale counter derives a different (and rejected) address.
func GetAgentPDA(owner solana.PublicKey, agentID uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedAgent,
			owner.Bytes(),
			leUint64(agentID),
		},
		ProgramID,
	)
}

// GetChallengePDA returns the address of a challenge account. The nonce
// seed allows unlimited challenges between the same agent and challenger.
func GetChallengePDA(agent, challenger solana.PublicKey, nonce uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedChallenge,
			agent.Bytes(),
			challenger.Bytes(),
			leUint64(nonce),
		},
		ProgramID,
	)
}

// GetAuditSummaryPDA returns the address of an agent's audit summary.
func GetAuditSummaryPDA(agent solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedAuditSummary,
			agent.Bytes(),
		},
		ProgramID,
	)
}

// GetAuditEntryPDA returns the address of the audit entry at the given index.
func GetAuditEntryPDA(agent solana.PublicKey, auditIndex uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedAuditEntry,
			agent.Bytes(),
			leUint64(auditIndex),
		},
		ProgramID,
	)
}

// GetMerkleSummaryPDA returns the address of an agent's merkle audit summary.
func GetMerkleSummaryPDA(agent solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedMerkleSummary,
			agent.Bytes(),
		},
		ProgramID,
	)
}

// GetMerkleRootPDA returns the address of the merkle root for a batch.
func GetMerkleRootPDA(agent solana.PublicKey, batchIndex uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedMerkleAudit,
			agent.Bytes(),
			leUint64(batchIndex),
		},
		ProgramID,
	)
}
