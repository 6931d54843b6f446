package registry

import "github.com/gagliardetto/solana-go"

// CreateChallengeParams are the accounts and arguments for CreateChallenge.
// Challenger signs and pays the challenge account's rent.
type CreateChallengeParams struct {
	Challenger   solana.PublicKey
	Agent        solana.PublicKey
	Nonce        uint64
	Question     string
	ExpectedHash string
}

// CreateChallenge opens a pending challenge against an agent. Only the
// hash of the expected answer goes on-chain, so the agent cannot read the
// answer key and the challenger cannot later claim a different answer.
func (p *Program) CreateChallenge(params CreateChallengeParams) error {
	return p.ledger.execute(func(ec *execCtx) error {
		if len(params.Question) < MinQuestionLen {
			return ErrQuestionTooShort
		}
		if len(params.Question) > MaxQuestionLen {
			return ErrQuestionTooLong
		}
		if !isHex64(params.ExpectedHash) {
			return ErrInvalidExpectedHash
		}

		if _, err := loadAgent(ec, params.Agent); err != nil {
			return err
		}

		addr, bump, err := GetChallengePDA(params.Agent, params.Challenger, params.Nonce)
		if err != nil {
			return err
		}

		now := p.Clock()
		challenge := Challenge{
			Agent:        params.Agent,
			Challenger:   params.Challenger,
			Question:     params.Question,
			ExpectedHash: params.ExpectedHash,
			Status:       ChallengeStatus_Pending,
			CreatedAt:    now,
			ExpiresAt:    now + ChallengeDuration,
			Nonce:        params.Nonce,
			Bump:         bump,
		}
		data, err := MarshalAccount(challenge)
		if err != nil {
			return err
		}
		return ec.create(addr, params.Challenger, data)
	})
}

// SubmitResponse resolves a pending challenge to Passed or Failed by
// comparing the response hash against the stored expected hash. Only the
// agent owner may respond, and only inside the response window. A pass is
// +100 reputation (capped); a fail is -50 (floored).
func (p *Program) SubmitResponse(owner, agentAddr, challengeAddr solana.PublicKey, responseHash string) error {
	return p.ledger.execute(func(ec *execCtx) error {
		agent, err := loadAgent(ec, agentAddr)
		if err != nil {
			return err
		}
		if !agent.Owner.Equals(owner) {
			return ErrUnauthorized
		}

		challenge, err := loadChallenge(ec, challengeAddr)
		if err != nil {
			return err
		}
		if !challenge.Agent.Equals(agentAddr) {
			return ErrChallengeMismatch
		}
		if challenge.Status != ChallengeStatus_Pending {
			return ErrChallengeNotPending
		}

		now := p.Clock()
		if challenge.IsExpired(now) {
			return ErrChallengeExpired
		}
		if !isHex64(responseHash) {
			return ErrInvalidResponseHash
		}

		challenge.RespondedAt = now
		if responseHash == challenge.ExpectedHash {
			challenge.Status = ChallengeStatus_Passed
			agent.ChallengesPassed = saturatingAdd32(agent.ChallengesPassed, 1)
			agent.AdjustReputation(PassReputationDelta)
		} else {
			challenge.Status = ChallengeStatus_Failed
			agent.ChallengesFailed = saturatingAdd32(agent.ChallengesFailed, 1)
			agent.AdjustReputation(FailReputationDelta)
		}
		agent.UpdatedAt = now

		if err := storeChallenge(ec, challengeAddr, challenge); err != nil {
			return err
		}
		return storeAgent(ec, agentAddr, agent)
	})
}

// ExpireChallenge marks an overdue pending challenge as Expired. Anyone
// may call it once the deadline passes; no ownership check is applied.
// Not responding carries the same penalty as a wrong answer, so a stale
// challenge can never be left pending to dodge a failing grade.
func (p *Program) ExpireChallenge(caller, agentAddr, challengeAddr solana.PublicKey) error {
	_ = caller // any signer may settle an expired challenge
	return p.ledger.execute(func(ec *execCtx) error {
		agent, err := loadAgent(ec, agentAddr)
		if err != nil {
			return err
		}

		challenge, err := loadChallenge(ec, challengeAddr)
		if err != nil {
			return err
		}
		if !challenge.Agent.Equals(agentAddr) {
			return ErrChallengeMismatch
		}
		if challenge.Status != ChallengeStatus_Pending {
			return ErrChallengeNotPending
		}

		now := p.Clock()
		if !challenge.IsExpired(now) {
			return ErrChallengeNotExpired
		}

		challenge.Status = ChallengeStatus_Expired
		challenge.RespondedAt = now
		agent.ChallengesFailed = saturatingAdd32(agent.ChallengesFailed, 1)
		agent.AdjustReputation(FailReputationDelta)
		agent.UpdatedAt = now

		if err := storeChallenge(ec, challengeAddr, challenge); err != nil {
			return err
		}
		return storeAgent(ec, agentAddr, agent)
	})
}

// CloseChallenge deletes a resolved challenge account and refunds its rent
// to the challenger. Only the original challenger may close, and only once
// the challenge reached a terminal status.
func (p *Program) CloseChallenge(challenger, agentAddr, challengeAddr solana.PublicKey) error {
	return p.ledger.execute(func(ec *execCtx) error {
		if _, err := loadAgent(ec, agentAddr); err != nil {
			return err
		}

		challenge, err := loadChallenge(ec, challengeAddr)
		if err != nil {
			return err
		}
		if !challenge.Agent.Equals(agentAddr) {
			return ErrChallengeMismatch
		}
		if !challenge.Challenger.Equals(challenger) {
			return ErrUnauthorized
		}
		if !challenge.Status.Terminal() {
			return ErrChallengeStillPending
		}

		return ec.close(challengeAddr, challenger)
	})
}
