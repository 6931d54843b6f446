package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func leaf(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestRootEdgeCases(t *testing.T) {
	root, err := Root(nil)
	require.NoError(t, err)
	require.Equal(t, EmptyRoot, root)

	single := leaf("only")
	root, err = Root([]string{single})
	require.NoError(t, err)
	require.Equal(t, single, root, "a single leaf is its own root")
}

func TestRootPairHashing(t *testing.T) {
	a, b := leaf("a"), leaf("b")
	root, err := Root([]string{a, b})
	require.NoError(t, err)

	rawA, _ := hex.DecodeString(a)
	rawB, _ := hex.DecodeString(b)
	want := sha256.Sum256(append(rawA, rawB...))
	require.Equal(t, hex.EncodeToString(want[:]), root)
}

// With an odd leaf count the last leaf pairs with itself.
func TestRootOddLeaves(t *testing.T) {
	a, b, c := leaf("a"), leaf("b"), leaf("c")
	root, err := Root([]string{a, b, c})
	require.NoError(t, err)

	rawA, _ := hex.DecodeString(a)
	rawB, _ := hex.DecodeString(b)
	rawC, _ := hex.DecodeString(c)
	ab := sha256.Sum256(append(rawA, rawB...))
	cc := sha256.Sum256(append(rawC, rawC...))
	want := sha256.Sum256(append(ab[:], cc[:]...))
	require.Equal(t, hex.EncodeToString(want[:]), root)
}

func TestRootRejectsBadHex(t *testing.T) {
	_, err := Root([]string{"zz", leaf("b")})
	require.Error(t, err)
}

func TestProofVerifyAllLeaves(t *testing.T) {
	var leaves []string
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		leaves = append(leaves, leaf(s))
	}
	root, err := Root(leaves)
	require.NoError(t, err)

	for i, l := range leaves {
		proof, err := Proof(leaves, i)
		require.NoError(t, err)
		require.True(t, Verify(l, proof, root), "leaf %d must verify", i)
		require.False(t, Verify(leaf("tampered"), proof, root))
	}
}

func TestProofIndexOutOfRange(t *testing.T) {
	_, err := Proof([]string{leaf("a")}, 1)
	require.Error(t, err)
	_, err = Proof(nil, 0)
	require.Error(t, err)
}

func TestBatcherFlush(t *testing.T) {
	var stored []uint32
	store := func(root [32]byte, count uint32) (string, error) {
		stored = append(stored, count)
		return "sig", nil
	}

	b := NewBatcher(100, store, "")
	require.NoError(t, b.Add("challenge_passed", map[string]string{"q": "pda"}))
	require.NoError(t, b.Add("challenge_failed", map[string]string{"q": "amm"}))
	require.Equal(t, 2, b.PendingCount())

	batch, err := b.Flush()
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Equal(t, uint64(0), batch.BatchIndex)
	require.Equal(t, 2, batch.EntriesCount)
	require.Equal(t, "sig", batch.TxSignature)
	require.Equal(t, []uint32{2}, stored)
	require.Zero(t, b.PendingCount())

	// nothing pending: flush is a no-op
	batch, err = b.Flush()
	require.NoError(t, err)
	require.Nil(t, batch)
}

func TestBatcherAutoFlushAtBatchSize(t *testing.T) {
	calls := 0
	b := NewBatcher(3, func(root [32]byte, count uint32) (string, error) {
		calls++
		return "sig", nil
	}, "")

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Add("evaluation_completed", i))
	}
	require.Equal(t, 1, calls)
	require.Zero(t, b.PendingCount())
}

func TestBatcherRetriesFailedBatches(t *testing.T) {
	fail := true
	var indices []uint64
	next := uint64(0)
	b := NewBatcher(100, func(root [32]byte, count uint32) (string, error) {
		if fail {
			return "", errRPCUnavailable
		}
		indices = append(indices, next)
		next++
		return "sig", nil
	}, "")

	require.NoError(t, b.Add("security_alert", "x"))
	_, err := b.Flush()
	require.Error(t, err)

	// the failed batch is retried before new entries commit
	fail = false
	require.NoError(t, b.Add("agent_updated", "y"))
	batch, err := b.Flush()
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Equal(t, uint64(1), batch.BatchIndex)
	require.Equal(t, []uint64{0, 1}, indices)
}

func TestBatcherPersistence(t *testing.T) {
	dir := t.TempDir()
	b := NewBatcher(100, func(root [32]byte, count uint32) (string, error) {
		return "", errRPCUnavailable
	}, dir)
	require.NoError(t, b.Add("reputation_changed", 1))
	require.NoError(t, b.Add("reputation_changed", 2))

	restored := NewBatcher(100, nil, dir)
	require.Equal(t, 2, restored.PendingCount())
}

var errRPCUnavailable = errors.New("rpc unavailable")
