package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"

	"sentinel-cli/merkle"
	"sentinel-cli/registry"
	sentinel "sentinel-cli/solana"
)

// ChainClient is the on-chain surface the runner needs. *sentinel.Client
// satisfies it; tests substitute a fake.
type ChainClient interface {
	FetchPendingChallenges(agentPDA solana.PublicKey) ([]*sentinel.ChallengeResult, error)
	SubmitResponse(agentPDA, challenger solana.PublicKey, nonce uint64, responseHash string) (*solana.Signature, error)
	FetchMerkleSummary(agentPDA solana.PublicKey) (*registry.MerkleAuditSummary, error)
}

// RunnerConfig tunes the responder loop.
type RunnerConfig struct {
	AgentPDA solana.PublicKey

	// PollInterval is how often pending challenges are fetched.
	PollInterval time.Duration
	// FlushInterval is how often the audit batcher is flushed on-chain.
	FlushInterval time.Duration
}

// Runner polls the chain for pending challenges against one agent,
// answers them, and feeds the off-chain audit batcher.
type Runner struct {
	client    ChainClient
	responder *Responder
	batcher   *merkle.Batcher
	cfg       RunnerConfig

	// Challenges already answered this session. A submitted response
	// stays pending on-chain until the transaction confirms; without
	// this the next poll would double-submit.
	answered map[solana.PublicKey]bool
}

// NewRunner creates a runner. Zero intervals get sane defaults.
func NewRunner(client ChainClient, responder *Responder, batcher *merkle.Batcher, cfg RunnerConfig) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Minute
	}
	return &Runner{
		client:    client,
		responder: responder,
		batcher:   batcher,
		cfg:       cfg,
		answered:  make(map[solana.PublicKey]bool),
	}
}

// Run executes the poll loop until the context is cancelled. A final
// batcher flush runs on shutdown so collected audit entries are not lost.
func (r *Runner) Run(ctx context.Context) error {
	// Seed the batch counter from the chain so restarts continue the
	// on-chain sequence.
	if summary, err := r.client.FetchMerkleSummary(r.cfg.AgentPDA); err != nil {
		log.Printf("could not read merkle summary, starting batches at 0: %v", err)
	} else if summary != nil {
		r.batcher.SetNextBatchIndex(summary.TotalBatches)
	}

	pollTicker := time.NewTicker(r.cfg.PollInterval)
	defer pollTicker.Stop()
	flushTicker := time.NewTicker(r.cfg.FlushInterval)
	defer flushTicker.Stop()

	log.Printf("responder started: agent=%s poll=%s flush=%s",
		r.cfg.AgentPDA, r.cfg.PollInterval, r.cfg.FlushInterval)

	for {
		select {
		case <-ctx.Done():
			if _, err := r.batcher.Flush(); err != nil {
				log.Printf("final audit flush failed: %v", err)
			}
			log.Printf("responder stopped")
			return ctx.Err()

		case <-pollTicker.C:
			if err := r.PollOnce(); err != nil {
				log.Printf("challenge poll failed: %v", err)
			}

		case <-flushTicker.C:
			if _, err := r.batcher.Flush(); err != nil {
				log.Printf("audit flush failed: %v", err)
			}
		}
	}
}

// PollOnce fetches the pending challenges for the agent and answers each
// one that has not been answered this session.
func (r *Runner) PollOnce() error {
	pending, err := r.client.FetchPendingChallenges(r.cfg.AgentPDA)
	if err != nil {
		return fmt.Errorf("failed to fetch pending challenges: %w", err)
	}

	for _, item := range pending {
		if r.answered[item.PublicKey] {
			continue
		}
		if err := r.answer(item); err != nil {
			log.Printf("failed to answer challenge %s: %v", item.PublicKey, err)
			continue
		}
		r.answered[item.PublicKey] = true
	}
	return nil
}

func (r *Runner) answer(item *sentinel.ChallengeResult) error {
	challenge := item.Account
	response := r.responder.Respond(challenge.Question)

	sig, err := r.client.SubmitResponse(
		challenge.Agent,
		challenge.Challenger,
		challenge.Nonce,
		response.AnswerHash,
	)
	if err != nil {
		return err
	}

	expectedPass := response.AnswerHash == challenge.ExpectedHash
	log.Printf("answered challenge %s: match=%t confidence=%.2f tx=%s",
		item.PublicKey, expectedPass, response.Confidence, sig)

	action := "challenge_failed"
	if expectedPass {
		action = "challenge_passed"
	}
	if err := r.batcher.Add(action, map[string]interface{}{
		"challenge":  item.PublicKey.String(),
		"challenger": challenge.Challenger.String(),
		"nonce":      challenge.Nonce,
		"confidence": response.Confidence,
	}); err != nil {
		log.Printf("failed to record audit entry: %v", err)
	}
	return nil
}
