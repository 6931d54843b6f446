package registry

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// The wire format is the account discriminator followed by borsh fields;
// strings carry a u32 little-endian length prefix.
func TestAgentAccountWireFormat(t *testing.T) {
	agent := AgentAccount{
		AgentId:         3,
		Owner:           solana.NewWallet().PublicKey(),
		Name:            "probe",
		ModelHash:       testModelHash(),
		Capabilities:    "analysis",
		ReputationScore: 5000,
		CreatedAt:       1_700_000_000,
		UpdatedAt:       1_700_000_000,
		NftMint:         solana.NewWallet().PublicKey(),
		Bump:            254,
	}

	data, err := MarshalAccount(agent)
	require.NoError(t, err)

	var disc [8]byte
	copy(disc[:], Account_AgentAccount[:])
	require.Equal(t, disc[:], data[:8])

	// agent_id directly after the discriminator, then owner, then the
	// length-prefixed name
	require.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[8:16]))
	require.Equal(t, agent.Owner.Bytes(), data[16:48])
	require.Equal(t, uint32(len("probe")), binary.LittleEndian.Uint32(data[48:52]))
	require.Equal(t, []byte("probe"), data[52:57])

	decoded, err := ParseAccount_AgentAccount(data)
	require.NoError(t, err)
	require.Equal(t, &agent, decoded)
}

func TestParseRejectsWrongDiscriminator(t *testing.T) {
	data, err := MarshalAccount(Challenge{
		Agent:      solana.NewWallet().PublicKey(),
		Challenger: solana.NewWallet().PublicKey(),
		Question:   "What is rent exemption?",
	})
	require.NoError(t, err)

	_, err = ParseAccount_AgentAccount(data)
	require.Error(t, err)
}

func TestPDADerivationIsDeterministic(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	a, bumpA, err := GetAgentPDA(owner, 5)
	require.NoError(t, err)
	b, bumpB, err := GetAgentPDA(owner, 5)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, bumpA, bumpB)

	// different seed tuples never collide
	c, _, err := GetAgentPDA(owner, 6)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}
