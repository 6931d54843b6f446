package sentinel_protocol

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"sentinel-cli/registry"
)

// ActivityEvent is one entry in an agent's activity feed.
type ActivityEvent struct {
	Timestamp  time.Time           `json:"timestamp"`
	Action     registry.ActionType `json:"action"`
	RiskScore  uint8               `json:"riskScore"`
	RiskLevel  registry.RiskLevel  `json:"riskLevel"`
	Actor      solana.PublicKey    `json:"actor"`
	AuditIndex uint64              `json:"auditIndex"`
}

// BatchEvent is one committed merkle batch in the activity feed.
type BatchEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	BatchIndex   uint64    `json:"batchIndex"`
	EntriesCount uint32    `json:"entriesCount"`
	MerkleRoot   string    `json:"merkleRoot"`
}

// ActivityResult holds the categorized activity of one agent.
type ActivityResult struct {
	AuditHistory []ActivityEvent `json:"auditHistory"`
	BatchHistory []BatchEvent    `json:"batchHistory"`
	Trusted      bool            `json:"trusted"`
}

// GetActivity fetches and assembles the full activity feed for an agent:
// the individual on-chain audit entries plus the committed merkle batches.
func (c *Client) GetActivity(agentPDA solana.PublicKey) (*ActivityResult, error) {
	result := &ActivityResult{
		AuditHistory: make([]ActivityEvent, 0),
		BatchHistory: make([]BatchEvent, 0),
	}

	auditSummary, err := c.FetchAuditSummary(agentPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit summary: %w", err)
	}
	merkleSummary, err := c.FetchMerkleSummary(agentPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch merkle summary: %w", err)
	}

	if auditSummary != nil {
		result.Trusted = auditSummary.IsTrusted()
		events, err := c.fetchAuditEntries(agentPDA, auditSummary.TotalEntries)
		if err != nil {
			return nil, err
		}
		result.AuditHistory = events
	}

	if merkleSummary != nil {
		batches, err := c.fetchMerkleBatches(agentPDA, merkleSummary.TotalBatches)
		if err != nil {
			return nil, err
		}
		result.BatchHistory = batches
	}

	return result, nil
}

// fetchAuditEntries loads the audit entry accounts for indices
// [0, total). Entries are fetched concurrently in small batches to stay
// under RPC rate limits.
func (c *Client) fetchAuditEntries(agentPDA solana.PublicKey, total uint64) ([]ActivityEvent, error) {
	events := make([]ActivityEvent, 0, total)

	var mu sync.Mutex
	var wg sync.WaitGroup

	batchSize := uint64(10)
	for start := uint64(0); start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		for index := start; index < end; index++ {
			wg.Add(1)
			go func(auditIndex uint64) {
				defer wg.Done()

				entryPDA, _, err := registry.GetAuditEntryPDA(agentPDA, auditIndex)
				if err != nil {
					fmt.Printf("Warning: failed to derive audit entry PDA %d: %v\n", auditIndex, err)
					return
				}

				resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), entryPDA, &rpc.GetAccountInfoOpts{
					Commitment: rpc.CommitmentConfirmed,
				})
				if err != nil || resp.Value == nil {
					// Entries can be pruned; skip gaps but keep going.
					return
				}

				entry, err := registry.ParseAccount_AuditEntry(resp.Value.Data.GetBinary())
				if err != nil {
					fmt.Printf("Warning: failed to parse audit entry %d: %v\n", auditIndex, err)
					return
				}

				mu.Lock()
				events = append(events, ActivityEvent{
					Timestamp:  time.Unix(entry.Timestamp, 0),
					Action:     entry.ActionType,
					RiskScore:  entry.RiskScore,
					RiskLevel:  entry.RiskLevel,
					Actor:      entry.Actor,
					AuditIndex: entry.AuditIndex,
				})
				mu.Unlock()
			}(index)
		}

		// Wait for the current batch before starting the next one.
		wg.Wait()
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].AuditIndex < events[j].AuditIndex
	})
	return events, nil
}

// fetchMerkleBatches loads the stored merkle roots for batches [0, total).
func (c *Client) fetchMerkleBatches(agentPDA solana.PublicKey, total uint64) ([]BatchEvent, error) {
	batches := make([]BatchEvent, 0, total)

	for batchIndex := uint64(0); batchIndex < total; batchIndex++ {
		root, err := c.FetchMerkleRoot(agentPDA, batchIndex)
		if err != nil {
			fmt.Printf("Warning: failed to fetch merkle batch %d: %v\n", batchIndex, err)
			continue
		}
		batches = append(batches, BatchEvent{
			Timestamp:    time.Unix(root.Timestamp, 0),
			BatchIndex:   root.BatchIndex,
			EntriesCount: root.EntriesCount,
			MerkleRoot:   fmt.Sprintf("%x", root.MerkleRoot),
		})
	}

	return batches, nil
}
