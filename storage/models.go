package storage

import "github.com/gagliardetto/solana-go"

// Wallet is one stored profile. The private key is kept as raw bytes;
// the JSON layer handles base64.
type Wallet struct {
	Name       string
	PrivateKey []byte
}

// Key returns the private key in the solana-go type.
func (w *Wallet) Key() solana.PrivateKey {
	return solana.PrivateKey(w.PrivateKey)
}

// CachedAgent is one observed agent row in the local sqlite cache. It
// mirrors the on-chain AgentAccount fields the CLI renders offline.
type CachedAgent struct {
	Address         string
	Owner           string
	AgentID         uint64
	Name            string
	ModelHash       string
	ReputationScore uint32
	Verified        bool
	LastSeenAt      int64
}
