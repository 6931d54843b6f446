package sentinel_protocol

import (
	"context"
	"fmt"
	"sort"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"sentinel-cli/registry"
)

// AgentResult wraps an AgentAccount with its on-chain address.
type AgentResult struct {
	PublicKey solana.PublicKey
	Account   registry.AgentAccount
}

// FetchAllAgents fetches all agent accounts from the blockchain.
func (c *Client) FetchAllAgents() ([]*AgentResult, error) {
	// Get all accounts owned by the program, filtered by the AgentAccount
	// discriminator.
	resp, err := c.RpcClient.GetProgramAccountsWithOpts(
		context.Background(),
		registry.ProgramID,
		&rpc.GetProgramAccountsOpts{
			Filters: []rpc.RPCFilter{
				{
					Memcmp: &rpc.RPCFilterMemcmp{
						Offset: 0,
						Bytes:  registry.Account_AgentAccount[:],
					},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts: %w", err)
	}

	var agents []*AgentResult
	for _, account := range resp {
		var agent registry.AgentAccount
		err := agent.UnmarshalWithDecoder(bin.NewBorshDecoder(account.Account.Data.GetBinary()))
		if err != nil {
			// Log the error but continue with other accounts.
			fmt.Printf("failed to deserialize agent account %s: %v\n", account.Pubkey.String(), err)
			continue
		}
		agents = append(agents, &AgentResult{
			PublicKey: account.Pubkey,
			Account:   agent,
		})
	}

	return agents, nil
}

// FetchAgentsByOwner fetches the agents registered by a specific owner,
// filtering locally.
func (c *Client) FetchAgentsByOwner(owner solana.PublicKey) ([]*AgentResult, error) {
	agents, err := c.FetchAllAgents()
	if err != nil {
		return nil, err
	}

	var mine []*AgentResult
	for _, agent := range agents {
		if agent.Account.Owner.Equals(owner) {
			mine = append(mine, agent)
		}
	}
	return mine, nil
}

// Leaderboard fetches all agents ranked by reputation score, verified
// agents first on ties.
func (c *Client) Leaderboard() ([]*AgentResult, error) {
	agents, err := c.FetchAllAgents()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(agents, func(i, j int) bool {
		a, b := agents[i].Account, agents[j].Account
		if a.ReputationScore != b.ReputationScore {
			return a.ReputationScore > b.ReputationScore
		}
		return a.Verified && !b.Verified
	})
	return agents, nil
}

// ChallengeResult wraps a Challenge account with its on-chain address.
type ChallengeResult struct {
	PublicKey solana.PublicKey
	Account   registry.Challenge
}

// FetchPendingChallenges fetches the pending challenges targeting a given
// agent by filtering all challenge accounts locally.
func (c *Client) FetchPendingChallenges(agentPDA solana.PublicKey) ([]*ChallengeResult, error) {
	return c.fetchChallenges(func(ch *registry.Challenge) bool {
		return ch.Agent.Equals(agentPDA) && ch.Status == registry.ChallengeStatus_Pending
	})
}

// FetchChallengesByChallenger fetches the challenges created by the given
// challenger, any status.
func (c *Client) FetchChallengesByChallenger(challenger solana.PublicKey) ([]*ChallengeResult, error) {
	return c.fetchChallenges(func(ch *registry.Challenge) bool {
		return ch.Challenger.Equals(challenger)
	})
}

// FetchExpiredPendingChallenges fetches challenges that are still pending
// on-chain but whose response window has already closed.
func (c *Client) FetchExpiredPendingChallenges() ([]*ChallengeResult, error) {
	now := time.Now().Unix()
	return c.fetchChallenges(func(ch *registry.Challenge) bool {
		return ch.Status == registry.ChallengeStatus_Pending && ch.IsExpired(now)
	})
}

func (c *Client) fetchChallenges(keep func(*registry.Challenge) bool) ([]*ChallengeResult, error) {
	resp, err := c.RpcClient.GetProgramAccountsWithOpts(
		context.Background(),
		registry.ProgramID,
		&rpc.GetProgramAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Filters: []rpc.RPCFilter{
				{
					Memcmp: &rpc.RPCFilterMemcmp{
						Offset: 0,
						Bytes:  registry.Account_Challenge[:],
					},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts for challenges: %w", err)
	}

	var results []*ChallengeResult
	for _, item := range resp {
		challenge, err := registry.ParseAccount_Challenge(item.Account.Data.GetBinary())
		if err != nil {
			fmt.Printf("Warning: failed to parse a Challenge account at %s: %v\n", item.Pubkey.String(), err)
			continue
		}
		if keep(challenge) {
			results = append(results, &ChallengeResult{
				PublicKey: item.Pubkey,
				Account:   *challenge,
			})
		}
	}
	return results, nil
}
