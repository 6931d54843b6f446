package sentinel_protocol

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"sentinel-cli/registry"
)

// anchorInstructionDiscriminator returns the 8-byte sighash the program
// dispatches on: sha256("global:<instruction_name>")[..8].
func anchorInstructionDiscriminator(ixName string) [8]byte {
	hash := sha256.Sum256([]byte("global:" + ixName))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

var (
	Instruction_Initialize       = anchorInstructionDiscriminator("initialize")
	Instruction_CreateCollection = anchorInstructionDiscriminator("create_collection")
	Instruction_RegisterAgent    = anchorInstructionDiscriminator("register_agent")
	Instruction_UpdateAgent      = anchorInstructionDiscriminator("update_agent")
	Instruction_VerifyAgent      = anchorInstructionDiscriminator("verify_agent")
	Instruction_UpdateReputation = anchorInstructionDiscriminator("update_reputation")
	Instruction_CreateChallenge  = anchorInstructionDiscriminator("create_challenge")
	Instruction_SubmitResponse   = anchorInstructionDiscriminator("submit_response")
	Instruction_ExpireChallenge  = anchorInstructionDiscriminator("expire_challenge")
	Instruction_CloseChallenge   = anchorInstructionDiscriminator("close_challenge")
	Instruction_LogAudit         = anchorInstructionDiscriminator("log_audit")
	Instruction_StoreMerkleAudit = anchorInstructionDiscriminator("store_merkle_audit")
)

// encodeInstructionData serializes the discriminator followed by the
// Borsh encoding of each argument in order.
func encodeInstructionData(discriminator [8]byte, args ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(discriminator[:])
	encoder := bin.NewBorshEncoder(buf)
	for i, arg := range args {
		if err := encoder.Encode(arg); err != nil {
			return nil, fmt.Errorf("failed to encode instruction arg %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// NewInitializeInstruction creates the instruction that initializes the
// global registry state.
func NewInitializeInstruction(
	admin solana.PublicKey,
	registryPDA solana.PublicKey,
	systemProgram solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_Initialize)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(admin, true, true),
		solana.NewAccountMeta(registryPDA, true, false),
		solana.NewAccountMeta(systemProgram, false, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewCreateCollectionInstruction creates the instruction that records the
// identity NFT collection on the registry (admin only, one-time).
func NewCreateCollectionInstruction(
	admin solana.PublicKey,
	registryPDA solana.PublicKey,
	collection solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_CreateCollection)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(admin, true, true),
		solana.NewAccountMeta(registryPDA, true, false),
		solana.NewAccountMeta(collection, false, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewRegisterAgentInstruction creates the instruction that registers a new
// agent account.
func NewRegisterAgentInstruction(
	name string,
	modelHash string,
	capabilities string,
	owner solana.PublicKey,
	registryPDA solana.PublicKey,
	agentPDA solana.PublicKey,
	nftMint solana.PublicKey,
	systemProgram solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_RegisterAgent, name, modelHash, capabilities)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(registryPDA, true, false),
		solana.NewAccountMeta(agentPDA, true, false),
		solana.NewAccountMeta(nftMint, false, false),
		solana.NewAccountMeta(systemProgram, false, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewUpdateAgentInstruction creates the instruction that updates an
// agent's mutable metadata. Nil arguments keep the current value.
func NewUpdateAgentInstruction(
	name *string,
	capabilities *string,
	owner solana.PublicKey,
	agentPDA solana.PublicKey,
) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	buf.Write(Instruction_UpdateAgent[:])
	encoder := bin.NewBorshEncoder(buf)
	for _, opt := range []*string{name, capabilities} {
		if opt == nil {
			if err := encoder.WriteBool(false); err != nil {
				return nil, err
			}
			continue
		}
		if err := encoder.WriteBool(true); err != nil {
			return nil, err
		}
		if err := encoder.WriteString(*opt); err != nil {
			return nil, err
		}
	}
	data := buf.Bytes()

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(agentPDA, true, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewVerifyAgentInstruction creates the instruction that marks an agent
// verified (admin only).
func NewVerifyAgentInstruction(
	authority solana.PublicKey,
	registryPDA solana.PublicKey,
	agentPDA solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_VerifyAgent)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(registryPDA, false, false),
		solana.NewAccountMeta(agentPDA, true, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewUpdateReputationInstruction creates the instruction that applies a
// signed reputation delta to an agent (admin only).
func NewUpdateReputationInstruction(
	delta int32,
	authority solana.PublicKey,
	registryPDA solana.PublicKey,
	agentPDA solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_UpdateReputation, delta)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(registryPDA, false, false),
		solana.NewAccountMeta(agentPDA, true, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewCreateChallengeInstruction creates the instruction that opens a new
// challenge against an agent.
func NewCreateChallengeInstruction(
	question string,
	expectedHash string,
	nonce uint64,
	challenger solana.PublicKey,
	agentPDA solana.PublicKey,
	challengePDA solana.PublicKey,
	systemProgram solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_CreateChallenge, question, expectedHash, nonce)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(challenger, true, true),
		solana.NewAccountMeta(agentPDA, false, false),
		solana.NewAccountMeta(challengePDA, true, false),
		solana.NewAccountMeta(systemProgram, false, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewSubmitResponseInstruction creates the instruction that answers a
// pending challenge and settles reputation.
func NewSubmitResponseInstruction(
	responseHash string,
	nonce uint64,
	owner solana.PublicKey,
	registryPDA solana.PublicKey,
	agentPDA solana.PublicKey,
	challengePDA solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_SubmitResponse, responseHash, nonce)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(registryPDA, false, false),
		solana.NewAccountMeta(agentPDA, true, false),
		solana.NewAccountMeta(challengePDA, true, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewExpireChallengeInstruction creates the instruction that settles a
// pending challenge whose window has closed. Any fee payer can call it.
func NewExpireChallengeInstruction(
	nonce uint64,
	caller solana.PublicKey,
	registryPDA solana.PublicKey,
	agentPDA solana.PublicKey,
	challengePDA solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_ExpireChallenge, nonce)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(caller, true, true),
		solana.NewAccountMeta(registryPDA, false, false),
		solana.NewAccountMeta(agentPDA, true, false),
		solana.NewAccountMeta(challengePDA, true, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewCloseChallengeInstruction creates the instruction that closes a
// settled challenge account and refunds its rent to the challenger.
func NewCloseChallengeInstruction(
	nonce uint64,
	challenger solana.PublicKey,
	agentPDA solana.PublicKey,
	challengePDA solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_CloseChallenge, nonce)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(challenger, true, true),
		solana.NewAccountMeta(agentPDA, false, false),
		solana.NewAccountMeta(challengePDA, true, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewLogAuditInstruction creates the instruction that appends one audit
// entry and folds it into the agent's audit summary.
func NewLogAuditInstruction(
	actionType registry.ActionType,
	contextRisk uint8,
	detailsHash string,
	actor solana.PublicKey,
	agentPDA solana.PublicKey,
	auditSummaryPDA solana.PublicKey,
	auditEntryPDA solana.PublicKey,
	systemProgram solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_LogAudit, actionType, contextRisk, detailsHash)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(actor, true, true),
		solana.NewAccountMeta(agentPDA, false, false),
		solana.NewAccountMeta(auditSummaryPDA, true, false),
		solana.NewAccountMeta(auditEntryPDA, true, false),
		solana.NewAccountMeta(systemProgram, false, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}

// NewStoreMerkleAuditInstruction creates the instruction that commits a
// batch of off-chain audit entries as one merkle root.
func NewStoreMerkleAuditInstruction(
	merkleRoot [32]uint8,
	entriesCount uint32,
	owner solana.PublicKey,
	agentPDA solana.PublicKey,
	merkleSummaryPDA solana.PublicKey,
	merkleRootPDA solana.PublicKey,
	systemProgram solana.PublicKey,
) (solana.Instruction, error) {
	data, err := encodeInstructionData(Instruction_StoreMerkleAudit, merkleRoot, entriesCount)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(owner, true, true),
		solana.NewAccountMeta(agentPDA, false, false),
		solana.NewAccountMeta(merkleSummaryPDA, true, false),
		solana.NewAccountMeta(merkleRootPDA, true, false),
		solana.NewAccountMeta(systemProgram, false, false),
	}

	return solana.NewInstruction(registry.ProgramID, accounts, data), nil
}
