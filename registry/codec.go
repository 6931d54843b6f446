package registry

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Accounts serialize as the 8-byte discriminator followed by the borsh
// encoding of the struct fields in declaration order. Strings are a u32
// little-endian length prefix plus UTF-8 bytes.

type accountMarshaler interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

// MarshalAccount serializes any registry account, discriminator included.
func MarshalAccount(acc accountMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := acc.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkDiscriminator(decoder *bin.Decoder, want bin.TypeID, name string) error {
	discriminator, err := decoder.ReadTypeID()
	if err != nil {
		return fmt.Errorf("error while unmarshaling account discriminator: %w", err)
	}
	if !discriminator.Equal(want[:]) {
		return fmt.Errorf("wrong discriminator: wanted %s, got %v", name, discriminator[:])
	}
	return nil
}

func (obj RegistryState) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(Account_RegistryState[:], false); err != nil {
		return err
	}
	return encodeFields(encoder,
		obj.Admin, obj.TotalAgents, obj.Collection, obj.CollectionInitialized, obj.Bump)
}

func (obj *RegistryState) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, Account_RegistryState, "RegistryState"); err != nil {
		return err
	}
	return decodeFields(decoder,
		&obj.Admin, &obj.TotalAgents, &obj.Collection, &obj.CollectionInitialized, &obj.Bump)
}

func (obj AgentAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(Account_AgentAccount[:], false); err != nil {
		return err
	}
	return encodeFields(encoder,
		obj.AgentId, obj.Owner, obj.Name, obj.ModelHash, obj.Capabilities,
		obj.ReputationScore, obj.ChallengesPassed, obj.ChallengesFailed,
		obj.Verified, obj.CreatedAt, obj.UpdatedAt, obj.NftMint, obj.Bump)
}

func (obj *AgentAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, Account_AgentAccount, "AgentAccount"); err != nil {
		return err
	}
	return decodeFields(decoder,
		&obj.AgentId, &obj.Owner, &obj.Name, &obj.ModelHash, &obj.Capabilities,
		&obj.ReputationScore, &obj.ChallengesPassed, &obj.ChallengesFailed,
		&obj.Verified, &obj.CreatedAt, &obj.UpdatedAt, &obj.NftMint, &obj.Bump)
}

func (obj Challenge) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(Account_Challenge[:], false); err != nil {
		return err
	}
	return encodeFields(encoder,
		obj.Agent, obj.Challenger, obj.Question, obj.ExpectedHash, obj.Status,
		obj.CreatedAt, obj.ExpiresAt, obj.RespondedAt, obj.Nonce, obj.Bump)
}

func (obj *Challenge) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, Account_Challenge, "Challenge"); err != nil {
		return err
	}
	return decodeFields(decoder,
		&obj.Agent, &obj.Challenger, &obj.Question, &obj.ExpectedHash, &obj.Status,
		&obj.CreatedAt, &obj.ExpiresAt, &obj.RespondedAt, &obj.Nonce, &obj.Bump)
}

func (obj AuditEntry) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(Account_AuditEntry[:], false); err != nil {
		return err
	}
	return encodeFields(encoder,
		obj.Agent, obj.Actor, obj.ActionType, obj.RiskScore, obj.RiskLevel,
		obj.Timestamp, obj.DetailsHash, obj.AuditIndex, obj.Bump)
}

func (obj *AuditEntry) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, Account_AuditEntry, "AuditEntry"); err != nil {
		return err
	}
	return decodeFields(decoder,
		&obj.Agent, &obj.Actor, &obj.ActionType, &obj.RiskScore, &obj.RiskLevel,
		&obj.Timestamp, &obj.DetailsHash, &obj.AuditIndex, &obj.Bump)
}

func (obj AgentAuditSummary) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(Account_AgentAuditSummary[:], false); err != nil {
		return err
	}
	return encodeFields(encoder,
		obj.Agent, obj.TotalEntries, obj.SecurityAlerts, obj.AvgRiskScore,
		obj.MaxRiskScore, obj.LastAuditAt, obj.SafeStreak, obj.Bump)
}

func (obj *AgentAuditSummary) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, Account_AgentAuditSummary, "AgentAuditSummary"); err != nil {
		return err
	}
	return decodeFields(decoder,
		&obj.Agent, &obj.TotalEntries, &obj.SecurityAlerts, &obj.AvgRiskScore,
		&obj.MaxRiskScore, &obj.LastAuditAt, &obj.SafeStreak, &obj.Bump)
}

func (obj MerkleAuditSummary) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(Account_MerkleAuditSummary[:], false); err != nil {
		return err
	}
	return encodeFields(encoder,
		obj.Agent, obj.TotalBatches, obj.TotalEntries, obj.LastBatchAt, obj.Bump)
}

func (obj *MerkleAuditSummary) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, Account_MerkleAuditSummary, "MerkleAuditSummary"); err != nil {
		return err
	}
	return decodeFields(decoder,
		&obj.Agent, &obj.TotalBatches, &obj.TotalEntries, &obj.LastBatchAt, &obj.Bump)
}

func (obj MerkleAuditRoot) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(Account_MerkleAuditRoot[:], false); err != nil {
		return err
	}
	return encodeFields(encoder,
		obj.Agent, obj.MerkleRoot, obj.EntriesCount, obj.BatchIndex, obj.Timestamp, obj.Bump)
}

func (obj *MerkleAuditRoot) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, Account_MerkleAuditRoot, "MerkleAuditRoot"); err != nil {
		return err
	}
	return decodeFields(decoder,
		&obj.Agent, &obj.MerkleRoot, &obj.EntriesCount, &obj.BatchIndex, &obj.Timestamp, &obj.Bump)
}

func encodeFields(encoder *bin.Encoder, fields ...interface{}) error {
	for _, f := range fields {
		if err := encoder.Encode(f); err != nil {
			return err
		}
	}
	return nil
}

func decodeFields(decoder *bin.Decoder, fields ...interface{}) error {
	for _, f := range fields {
		if err := decoder.Decode(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseAccount_RegistryState deserializes a RegistryState account.
func ParseAccount_RegistryState(data []byte) (*RegistryState, error) {
	obj := new(RegistryState)
	if err := obj.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return obj, nil
}

// ParseAccount_AgentAccount deserializes an AgentAccount account.
func ParseAccount_AgentAccount(data []byte) (*AgentAccount, error) {
	obj := new(AgentAccount)
	if err := obj.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return obj, nil
}

// ParseAccount_Challenge deserializes a Challenge account.
func ParseAccount_Challenge(data []byte) (*Challenge, error) {
	obj := new(Challenge)
	if err := obj.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return obj, nil
}

// ParseAccount_AuditEntry deserializes an AuditEntry account.
func ParseAccount_AuditEntry(data []byte) (*AuditEntry, error) {
	obj := new(AuditEntry)
	if err := obj.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return obj, nil
}

// ParseAccount_AgentAuditSummary deserializes an AgentAuditSummary account.
func ParseAccount_AgentAuditSummary(data []byte) (*AgentAuditSummary, error) {
	obj := new(AgentAuditSummary)
	if err := obj.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return obj, nil
}

// ParseAccount_MerkleAuditSummary deserializes a MerkleAuditSummary account.
func ParseAccount_MerkleAuditSummary(data []byte) (*MerkleAuditSummary, error) {
	obj := new(MerkleAuditSummary)
	if err := obj.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return obj, nil
}

// ParseAccount_MerkleAuditRoot deserializes a MerkleAuditRoot account.
func ParseAccount_MerkleAuditRoot(data []byte) (*MerkleAuditRoot, error) {
	obj := new(MerkleAuditRoot)
	if err := obj.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return obj, nil
}
