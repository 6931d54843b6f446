package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one audit record collected off-chain. Only its hash reaches
// the chain, as a leaf of a batch's merkle tree.
type Entry struct {
	ActionType string          `json:"action_type"`
	Timestamp  int64           `json:"timestamp"`
	Details    json.RawMessage `json:"details"`
	EntryHash  string          `json:"entry_hash"`
}

// NewEntry builds an entry and computes its hash over the canonical JSON
// of (action_type, timestamp, details).
func NewEntry(actionType string, timestamp int64, details interface{}) (Entry, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal entry details: %w", err)
	}
	e := Entry{ActionType: actionType, Timestamp: timestamp, Details: raw}
	canonical, err := json.Marshal(struct {
		ActionType string          `json:"action_type"`
		Timestamp  int64           `json:"timestamp"`
		Details    json.RawMessage `json:"details"`
	}{e.ActionType, e.Timestamp, e.Details})
	if err != nil {
		return Entry{}, err
	}
	h := sha256.Sum256(canonical)
	e.EntryHash = hex.EncodeToString(h[:])
	return e, nil
}

// StoreFunc commits one batch root on-chain and returns the transaction
// signature.
type StoreFunc func(root [32]byte, entriesCount uint32) (string, error)

// Batch is a flushed set of entries awaiting (or having completed) its
// on-chain commit.
type Batch struct {
	BatchIndex   uint64  `json:"batch_index"`
	MerkleRoot   string  `json:"merkle_root"`
	EntriesCount int     `json:"entries_count"`
	Entries      []Entry `json:"entries"`
	TxSignature  string  `json:"tx_signature,omitempty"`
	FlushedAt    int64   `json:"flushed_at"`
}

// Batcher collects audit entries and periodically commits only their
// merkle root on-chain: one transaction per batch instead of one account
// per action. Failed commits are kept and retried on later flushes.
type Batcher struct {
	mu        sync.Mutex
	batchSize int
	store     StoreFunc
	stateDir  string

	pending   []Entry
	nextBatch uint64
	failed    []Batch
}

// NewBatcher returns a batcher that flushes every batchSize entries via
// store. stateDir, if non-empty, is where pending and failed batches are
// persisted across restarts.
func NewBatcher(batchSize int, store StoreFunc, stateDir string) *Batcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	b := &Batcher{batchSize: batchSize, store: store, stateDir: stateDir}
	if stateDir != "" {
		if err := b.restore(); err != nil {
			log.Printf("merkle batcher: could not restore state: %v", err)
		}
	}
	return b
}

// SetNextBatchIndex seeds the batch counter, typically from the on-chain
// merkle summary at startup.
func (b *Batcher) SetNextBatchIndex(index uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextBatch = index
}

// Add records one entry; when the batch is full it is flushed.
func (b *Batcher) Add(actionType string, details interface{}) error {
	entry, err := NewEntry(actionType, time.Now().Unix(), details)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.pending = append(b.pending, entry)
	full := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if full {
		_, err = b.Flush()
		return err
	}
	return b.persist()
}

// PendingCount returns the number of entries awaiting flush.
func (b *Batcher) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// PendingRoot computes the merkle root of the current pending batch
// without flushing it.
func (b *Batcher) PendingRoot() (string, error) {
	b.mu.Lock()
	hashes := entryHashes(b.pending)
	b.mu.Unlock()
	return Root(hashes)
}

// Flush commits the pending entries as one batch. It first retries any
// previously failed batches so indices stay in order; a nil result means
// there was nothing to flush.
func (b *Batcher) Flush() (*Batch, error) {
	if err := b.retryFailed(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil, nil
	}
	entries := b.pending
	b.pending = nil
	index := b.nextBatch
	b.mu.Unlock()

	root, err := Root(entryHashes(entries))
	if err != nil {
		return nil, err
	}
	batch := Batch{
		BatchIndex:   index,
		MerkleRoot:   root,
		EntriesCount: len(entries),
		Entries:      entries,
		FlushedAt:    time.Now().Unix(),
	}
	log.Printf("merkle batcher: flushing batch %d: %d entries, root=%s...", index, len(entries), root[:16])

	rootBytes, err := RootBytes(entryHashes(entries))
	if err != nil {
		return nil, err
	}
	sig, err := b.store(rootBytes, uint32(len(entries)))

	b.mu.Lock()
	if err != nil {
		b.failed = append(b.failed, batch)
		b.mu.Unlock()
		if perr := b.persist(); perr != nil {
			log.Printf("merkle batcher: persist after failure: %v", perr)
		}
		return nil, fmt.Errorf("failed to store batch %d on-chain: %w", index, err)
	}
	batch.TxSignature = sig
	b.nextBatch = index + 1
	b.mu.Unlock()

	return &batch, b.persist()
}

// retryFailed re-submits stored-but-unacknowledged batches in order.
func (b *Batcher) retryFailed() error {
	b.mu.Lock()
	failed := b.failed
	b.failed = nil
	b.mu.Unlock()

	for i, batch := range failed {
		rootBytes, err := RootBytes(entryHashes(batch.Entries))
		if err != nil {
			return err
		}
		sig, err := b.store(rootBytes, uint32(batch.EntriesCount))
		if err != nil {
			// put the remainder back, order preserved
			b.mu.Lock()
			b.failed = append(failed[i:], b.failed...)
			b.mu.Unlock()
			return fmt.Errorf("retry of batch %d failed: %w", batch.BatchIndex, err)
		}
		log.Printf("merkle batcher: retry of batch %d succeeded: tx=%s", batch.BatchIndex, sig)
		b.mu.Lock()
		b.nextBatch = batch.BatchIndex + 1
		b.mu.Unlock()
	}
	return nil
}

type batcherState struct {
	Pending   []Entry `json:"pending"`
	NextBatch uint64  `json:"next_batch"`
	Failed    []Batch `json:"failed"`
}

func (b *Batcher) statePath() string {
	return filepath.Join(b.stateDir, "merkle_batches.json")
}

func (b *Batcher) persist() error {
	if b.stateDir == "" {
		return nil
	}
	b.mu.Lock()
	state := batcherState{Pending: b.pending, NextBatch: b.nextBatch, Failed: b.failed}
	b.mu.Unlock()

	if err := os.MkdirAll(b.stateDir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(b.statePath(), data, 0o644)
}

func (b *Batcher) restore() error {
	data, err := os.ReadFile(b.statePath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var state batcherState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	b.pending = state.Pending
	b.nextBatch = state.NextBatch
	b.failed = state.Failed
	return nil
}

func entryHashes(entries []Entry) []string {
	hashes := make([]string, len(entries))
	for i, e := range entries {
		hashes[i] = e.EntryHash
	}
	return hashes
}
