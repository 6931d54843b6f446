package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestWalletProfilesRoundTrip(t *testing.T) {
	db, err := ConnectAt(filepath.Join(t.TempDir(), "wallets.json"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.GetWallet("main")
	require.Error(t, err, "empty storage has no profiles")

	key := solana.NewWallet().PrivateKey
	require.NoError(t, db.SaveWallet("main", key))

	wallet, err := db.GetWallet("main")
	require.NoError(t, err)
	require.Equal(t, "main", wallet.Name)
	require.Equal(t, []byte(key), wallet.PrivateKey)
	require.Equal(t, key.PublicKey(), wallet.Key().PublicKey())
}

func TestWalletMultipleProfiles(t *testing.T) {
	db, err := ConnectAt(filepath.Join(t.TempDir(), "wallets.json"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveWallet("alice", solana.NewWallet().PrivateKey))
	require.NoError(t, db.SaveWallet("bob", solana.NewWallet().PrivateKey))

	names, err := db.GetAllWalletNames()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alice", "bob"}, names)

	// The first saved profile became active.
	active, err := db.GetActiveProfile()
	require.NoError(t, err)
	require.Equal(t, "alice", active)

	require.NoError(t, db.SetActiveProfile("bob"))
	active, err = db.GetActiveProfile()
	require.NoError(t, err)
	require.Equal(t, "bob", active)

	require.Error(t, db.SetActiveProfile("carol"))
}

func TestWalletDelete(t *testing.T) {
	db, err := ConnectAt(filepath.Join(t.TempDir(), "wallets.json"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveWallet("main", solana.NewWallet().PrivateKey))
	require.NoError(t, db.DeleteWallet("main"))

	_, err = db.GetWallet("main")
	require.Error(t, err)

	active, err := db.GetActiveProfile()
	require.NoError(t, err)
	require.Empty(t, active, "deleting the active profile clears the marker")

	require.Error(t, db.DeleteWallet("main"))
}

func TestAgentCacheUpsertAndLeaderboard(t *testing.T) {
	cache, err := NewAgentCache(filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	defer cache.Close()

	now := time.Now().Unix()
	require.NoError(t, cache.Upsert(&CachedAgent{
		Address: "addr-1", Owner: "owner-a", AgentID: 0, Name: "oracle-7b",
		ModelHash: "sha256:aa", ReputationScore: 5100, Verified: true, LastSeenAt: now,
	}))
	require.NoError(t, cache.Upsert(&CachedAgent{
		Address: "addr-2", Owner: "owner-b", AgentID: 1, Name: "sentinel-3b",
		ModelHash: "sha256:bb", ReputationScore: 4800, LastSeenAt: now,
	}))

	// Re-upserting the same address updates instead of duplicating.
	require.NoError(t, cache.Upsert(&CachedAgent{
		Address: "addr-2", Owner: "owner-b", AgentID: 1, Name: "sentinel-3b",
		ModelHash: "sha256:bb", ReputationScore: 5300, LastSeenAt: now + 10,
	}))

	board, err := cache.Leaderboard(10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	require.Equal(t, "addr-2", board[0].Address)
	require.Equal(t, uint32(5300), board[0].ReputationScore)
	require.Equal(t, "addr-1", board[1].Address)
	require.True(t, board[1].Verified)
}

func TestAgentCacheByOwnerAndPrune(t *testing.T) {
	cache, err := NewAgentCache(filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Upsert(&CachedAgent{
		Address: "addr-1", Owner: "owner-a", AgentID: 0, Name: "one",
		ModelHash: "sha256:aa", ReputationScore: 5000, LastSeenAt: 100,
	}))
	require.NoError(t, cache.Upsert(&CachedAgent{
		Address: "addr-2", Owner: "owner-a", AgentID: 2, Name: "two",
		ModelHash: "sha256:bb", ReputationScore: 5000, LastSeenAt: 200,
	}))

	mine, err := cache.ByOwner("owner-a")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, uint64(0), mine[0].AgentID)

	got, err := cache.Get("addr-1")
	require.NoError(t, err)
	require.Equal(t, "one", got.Name)

	pruned, err := cache.Prune(150)
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)

	_, err = cache.Get("addr-1")
	require.Error(t, err)
}
