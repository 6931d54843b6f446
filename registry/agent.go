package registry

import "github.com/gagliardetto/solana-go"

// RegisterAgentParams are the accounts and arguments for RegisterAgent.
// Owner signs and pays. Agent is the PDA the caller derived from the
// registry counter it read; a stale counter value fails the seeds check,
// which is what serializes concurrent registrations onto distinct ids.
type RegisterAgentParams struct {
	Owner        solana.PublicKey
	Agent        solana.PublicKey
	NftMint      solana.PublicKey
	Name         string
	ModelHash    string
	Capabilities string
}

// RegisterAgent creates a new agent account and advances the registry
// counter by exactly one. The model hash is the identity anchor and is
// immutable after this call.
func (p *Program) RegisterAgent(params RegisterAgentParams) error {
	return p.ledger.execute(func(ec *execCtx) error {
		if len(params.Name) == 0 || len(params.Name) > MaxNameLen {
			return ErrNameTooLong
		}
		if !validModelHash(params.ModelHash) {
			return ErrInvalidModelHash
		}
		if len(params.Capabilities) > MaxCapabilitiesLen {
			return ErrCapabilitiesTooLong
		}

		registry, registryAddr, err := loadRegistry(ec)
		if err != nil {
			return err
		}
		if !registry.CollectionInitialized {
			return ErrCollectionNotInitialized
		}

		derived, bump, err := GetAgentPDA(params.Owner, registry.TotalAgents)
		if err != nil {
			return err
		}
		if !derived.Equals(params.Agent) {
			return ErrConstraintSeeds
		}

		now := p.Clock()
		agent := AgentAccount{
			AgentId:         registry.TotalAgents,
			Owner:           params.Owner,
			Name:            params.Name,
			ModelHash:       params.ModelHash,
			Capabilities:    params.Capabilities,
			ReputationScore: InitialReputation,
			CreatedAt:       now,
			UpdatedAt:       now,
			NftMint:         params.NftMint,
			Bump:            bump,
		}
		data, err := MarshalAccount(agent)
		if err != nil {
			return err
		}
		if err := ec.create(derived, params.Owner, data); err != nil {
			return err
		}

		next := registry.TotalAgents + 1
		if next == 0 {
			return ErrRegistryFull
		}
		registry.TotalAgents = next
		return storeRegistry(ec, registryAddr, registry)
	})
}

// UpdateAgent changes an agent's name and/or capabilities. Only the owner
// may update, and the model hash is deliberately not accepted: the
// identity anchor never changes after registration. Nil arguments keep
// the current value.
func (p *Program) UpdateAgent(owner, agentAddr solana.PublicKey, name, capabilities *string) error {
	return p.ledger.execute(func(ec *execCtx) error {
		agent, err := loadAgent(ec, agentAddr)
		if err != nil {
			return err
		}
		if !agent.Owner.Equals(owner) {
			return ErrUnauthorized
		}

		if name != nil {
			if len(*name) == 0 || len(*name) > MaxNameLen {
				return ErrNameTooLong
			}
			agent.Name = *name
		}
		if capabilities != nil {
			if len(*capabilities) > MaxCapabilitiesLen {
				return ErrCapabilitiesTooLong
			}
			agent.Capabilities = *capabilities
		}

		agent.UpdatedAt = p.Clock()
		return storeAgent(ec, agentAddr, agent)
	})
}

// VerifyAgent marks an agent as verified. Admin only. Verifying an
// already-verified agent is a no-op, not an error.
func (p *Program) VerifyAgent(authority, agentAddr solana.PublicKey) error {
	return p.ledger.execute(func(ec *execCtx) error {
		registry, _, err := loadRegistry(ec)
		if err != nil {
			return err
		}
		if !registry.Admin.Equals(authority) {
			return ErrUnauthorized
		}

		agent, err := loadAgent(ec, agentAddr)
		if err != nil {
			return err
		}
		if agent.Verified {
			return nil
		}
		agent.Verified = true
		agent.UpdatedAt = p.Clock()
		return storeAgent(ec, agentAddr, agent)
	})
}

// MaxReputationDelta caps a single direct reputation adjustment.
const MaxReputationDelta int32 = 1000

// UpdateReputation is the authority-gated escape hatch for direct score
// adjustment, with the same saturating clamp as challenge outcomes. The
// pass/fail counters advance with the sign of the delta.
func (p *Program) UpdateReputation(authority, agentAddr solana.PublicKey, delta int32) error {
	return p.ledger.execute(func(ec *execCtx) error {
		registry, _, err := loadRegistry(ec)
		if err != nil {
			return err
		}
		if !registry.Admin.Equals(authority) {
			return ErrUnauthorized
		}
		if delta > MaxReputationDelta || delta < -MaxReputationDelta {
			return ErrReputationDeltaTooLarge
		}

		agent, err := loadAgent(ec, agentAddr)
		if err != nil {
			return err
		}
		if delta > 0 {
			agent.ChallengesPassed = saturatingAdd32(agent.ChallengesPassed, 1)
		} else if delta < 0 {
			agent.ChallengesFailed = saturatingAdd32(agent.ChallengesFailed, 1)
		}
		agent.AdjustReputation(delta)
		agent.UpdatedAt = p.Clock()
		return storeAgent(ec, agentAddr, agent)
	})
}
