package sentinel_protocol

import (
	"crypto/sha256"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"sentinel-cli/registry"
)

func TestInstructionDiscriminators(t *testing.T) {
	// The program dispatches on sha256("global:<name>")[..8].
	want := sha256.Sum256([]byte("global:register_agent"))
	require.Equal(t, want[:8], Instruction_RegisterAgent[:])

	seen := map[[8]byte]string{}
	for name, disc := range map[string][8]byte{
		"initialize":         Instruction_Initialize,
		"create_collection":  Instruction_CreateCollection,
		"register_agent":     Instruction_RegisterAgent,
		"update_agent":       Instruction_UpdateAgent,
		"verify_agent":       Instruction_VerifyAgent,
		"update_reputation":  Instruction_UpdateReputation,
		"create_challenge":   Instruction_CreateChallenge,
		"submit_response":    Instruction_SubmitResponse,
		"expire_challenge":   Instruction_ExpireChallenge,
		"close_challenge":    Instruction_CloseChallenge,
		"log_audit":          Instruction_LogAudit,
		"store_merkle_audit": Instruction_StoreMerkleAudit,
	} {
		require.Equal(t, anchorInstructionDiscriminator(name), disc)
		prev, dup := seen[disc]
		require.False(t, dup, "%s and %s share a discriminator", name, prev)
		seen[disc] = name
	}
}

func TestRegisterAgentInstructionEncoding(t *testing.T) {
	owner := solana.NewWallet().PrivateKey.PublicKey()
	nftMint := solana.NewWallet().PrivateKey.PublicKey()
	registryPDA, _, err := registry.GetRegistryPDA()
	require.NoError(t, err)
	agentPDA, _, err := registry.GetAgentPDA(owner, 0)
	require.NoError(t, err)

	ix, err := NewRegisterAgentInstruction(
		"oracle-7b",
		"sha256:"+hex64('a'),
		"qa,defi",
		owner,
		registryPDA,
		agentPDA,
		nftMint,
		solana.SystemProgramID,
	)
	require.NoError(t, err)
	require.Equal(t, registry.ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, Instruction_RegisterAgent[:], data[:8])

	// The args decode back in declaration order.
	decoder := bin.NewBorshDecoder(data[8:])
	var name, modelHash, capabilities string
	require.NoError(t, decoder.Decode(&name))
	require.NoError(t, decoder.Decode(&modelHash))
	require.NoError(t, decoder.Decode(&capabilities))
	require.Equal(t, "oracle-7b", name)
	require.Equal(t, "sha256:"+hex64('a'), modelHash)
	require.Equal(t, "qa,defi", capabilities)
	require.Zero(t, decoder.Remaining())

	accounts := ix.Accounts()
	require.Len(t, accounts, 5)
	require.Equal(t, owner, accounts[0].PublicKey)
	require.True(t, accounts[0].IsSigner)
	require.True(t, accounts[0].IsWritable)
	require.Equal(t, registryPDA, accounts[1].PublicKey)
	require.True(t, accounts[1].IsWritable)
	require.False(t, accounts[1].IsSigner)
	require.Equal(t, agentPDA, accounts[2].PublicKey)
	require.Equal(t, nftMint, accounts[3].PublicKey)
	require.Equal(t, solana.SystemProgramID, accounts[4].PublicKey)
}

func TestUpdateAgentOptionEncoding(t *testing.T) {
	owner := solana.NewWallet().PrivateKey.PublicKey()
	agentPDA, _, err := registry.GetAgentPDA(owner, 3)
	require.NoError(t, err)

	name := "renamed"
	ix, err := NewUpdateAgentInstruction(&name, nil, owner, agentPDA)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, Instruction_UpdateAgent[:], data[:8])

	decoder := bin.NewBorshDecoder(data[8:])
	present, err := decoder.ReadBool()
	require.NoError(t, err)
	require.True(t, present)
	got, err := decoder.ReadString()
	require.NoError(t, err)
	require.Equal(t, "renamed", got)

	present, err = decoder.ReadBool()
	require.NoError(t, err)
	require.False(t, present, "absent option is a bare false flag")
	require.Zero(t, decoder.Remaining())
}

func TestCreateChallengeEncoding(t *testing.T) {
	challenger := solana.NewWallet().PrivateKey.PublicKey()
	owner := solana.NewWallet().PrivateKey.PublicKey()
	agentPDA, _, err := registry.GetAgentPDA(owner, 0)
	require.NoError(t, err)
	challengePDA, _, err := registry.GetChallengePDA(agentPDA, challenger, 1755000000)
	require.NoError(t, err)

	ix, err := NewCreateChallengeInstruction(
		"What is impermanent loss in AMM liquidity pools?",
		hex64('c'),
		1755000000,
		challenger,
		agentPDA,
		challengePDA,
		solana.SystemProgramID,
	)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, Instruction_CreateChallenge[:], data[:8])

	// question, expected_hash, then the nonce that seeds the challenge PDA.
	decoder := bin.NewBorshDecoder(data[8:])
	question, err := decoder.ReadString()
	require.NoError(t, err)
	require.Equal(t, "What is impermanent loss in AMM liquidity pools?", question)
	expectedHash, err := decoder.ReadString()
	require.NoError(t, err)
	require.Equal(t, hex64('c'), expectedHash)
	nonce, err := decoder.ReadUint64(bin.LE)
	require.NoError(t, err)
	require.Equal(t, uint64(1755000000), nonce)
	require.Zero(t, decoder.Remaining())

	accounts := ix.Accounts()
	require.Len(t, accounts, 4)
	require.Equal(t, challenger, accounts[0].PublicKey)
	require.True(t, accounts[0].IsSigner)
	require.True(t, accounts[0].IsWritable)
	require.Equal(t, agentPDA, accounts[1].PublicKey)
	require.Equal(t, challengePDA, accounts[2].PublicKey)
	require.True(t, accounts[2].IsWritable)
	require.Equal(t, solana.SystemProgramID, accounts[3].PublicKey)
}

func TestSubmitResponseEncoding(t *testing.T) {
	challenger := solana.NewWallet().PrivateKey.PublicKey()
	owner := solana.NewWallet().PrivateKey.PublicKey()
	registryPDA, _, err := registry.GetRegistryPDA()
	require.NoError(t, err)
	agentPDA, _, err := registry.GetAgentPDA(owner, 0)
	require.NoError(t, err)
	challengePDA, _, err := registry.GetChallengePDA(agentPDA, challenger, 9)
	require.NoError(t, err)

	ix, err := NewSubmitResponseInstruction(
		hex64('d'),
		9,
		owner,
		registryPDA,
		agentPDA,
		challengePDA,
	)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, Instruction_SubmitResponse[:], data[:8])

	decoder := bin.NewBorshDecoder(data[8:])
	responseHash, err := decoder.ReadString()
	require.NoError(t, err)
	require.Equal(t, hex64('d'), responseHash)
	nonce, err := decoder.ReadUint64(bin.LE)
	require.NoError(t, err)
	require.Equal(t, uint64(9), nonce)
	require.Zero(t, decoder.Remaining())

	accounts := ix.Accounts()
	require.Len(t, accounts, 4)
	require.Equal(t, owner, accounts[0].PublicKey)
	require.True(t, accounts[0].IsSigner)
	require.Equal(t, registryPDA, accounts[1].PublicKey)
	require.Equal(t, agentPDA, accounts[2].PublicKey)
	require.True(t, accounts[2].IsWritable)
	require.Equal(t, challengePDA, accounts[3].PublicKey)
	require.True(t, accounts[3].IsWritable)
}

func TestUpdateReputationEncoding(t *testing.T) {
	authority := solana.NewWallet().PrivateKey.PublicKey()
	owner := solana.NewWallet().PrivateKey.PublicKey()
	registryPDA, _, err := registry.GetRegistryPDA()
	require.NoError(t, err)
	agentPDA, _, err := registry.GetAgentPDA(owner, 0)
	require.NoError(t, err)

	ix, err := NewUpdateReputationInstruction(-250, authority, registryPDA, agentPDA)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)

	decoder := bin.NewBorshDecoder(data[8:])
	var delta int32
	require.NoError(t, decoder.Decode(&delta))
	require.Equal(t, int32(-250), delta)
}

func TestLogAuditEncoding(t *testing.T) {
	actor := solana.NewWallet().PrivateKey.PublicKey()
	owner := solana.NewWallet().PrivateKey.PublicKey()
	agentPDA, _, err := registry.GetAgentPDA(owner, 0)
	require.NoError(t, err)
	summaryPDA, _, err := registry.GetAuditSummaryPDA(agentPDA)
	require.NoError(t, err)
	entryPDA, _, err := registry.GetAuditEntryPDA(agentPDA, 0)
	require.NoError(t, err)

	ix, err := NewLogAuditInstruction(
		registry.ActionType_SecurityAlert,
		90,
		hex64('b'),
		actor,
		agentPDA,
		summaryPDA,
		entryPDA,
		solana.SystemProgramID,
	)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, Instruction_LogAudit[:], data[:8])

	decoder := bin.NewBorshDecoder(data[8:])
	action, err := decoder.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(registry.ActionType_SecurityAlert), action)
	risk, err := decoder.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(90), risk)
	details, err := decoder.ReadString()
	require.NoError(t, err)
	require.Equal(t, hex64('b'), details)
	require.Zero(t, decoder.Remaining())
}

func TestStoreMerkleAuditEncoding(t *testing.T) {
	owner := solana.NewWallet().PrivateKey.PublicKey()
	agentPDA, _, err := registry.GetAgentPDA(owner, 0)
	require.NoError(t, err)
	summaryPDA, _, err := registry.GetMerkleSummaryPDA(agentPDA)
	require.NoError(t, err)
	rootPDA, _, err := registry.GetMerkleRootPDA(agentPDA, 7)
	require.NoError(t, err)

	var root [32]uint8
	for i := range root {
		root[i] = uint8(i)
	}

	ix, err := NewStoreMerkleAuditInstruction(
		root,
		42,
		owner,
		agentPDA,
		summaryPDA,
		rootPDA,
		solana.SystemProgramID,
	)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, Instruction_StoreMerkleAudit[:], data[:8])

	// [u8; 32] is raw bytes, no length prefix, then the u32 count.
	require.Equal(t, root[:], data[8:40])
	decoder := bin.NewBorshDecoder(data[40:])
	count, err := decoder.ReadUint32(bin.LE)
	require.NoError(t, err)
	require.Equal(t, uint32(42), count)
}

func hex64(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
