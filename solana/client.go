package sentinel_protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"sentinel-cli/registry"
)

// Client is a client for the Sentinel agent registry program.
type Client struct {
	RpcClient *rpc.Client
	Signer    solana.PrivateKey

	// Local batch index cache per agent. RPC reads between consecutive
	// stores can return stale summaries; the cache keeps indices moving.
	mu               sync.Mutex
	merkleBatchCache map[solana.PublicKey]uint64
}

// NewClient creates a new Client for the registry program with a specific signer.
func NewClient(rpcEndpoint string, signer solana.PrivateKey) (*Client, error) {
	rpcClient := rpc.New(rpcEndpoint)

	return &Client{
		RpcClient:        rpcClient,
		Signer:           signer,
		merkleBatchCache: make(map[solana.PublicKey]uint64),
	}, nil
}

// NewReadOnlyClient creates a new client for read-only operations that don't
// require a signer. It uses a dummy keypair internally.
func NewReadOnlyClient(rpcEndpoint string) (*Client, error) {
	rpcClient := rpc.New(rpcEndpoint)

	// Dummy wallet for read-only operations.
	dummyWallet := solana.NewWallet()

	return &Client{
		RpcClient:        rpcClient,
		Signer:           dummyWallet.PrivateKey,
		merkleBatchCache: make(map[solana.PublicKey]uint64),
	}, nil
}

// sendInstructions builds, signs with the client keypair, and sends a
// transaction containing the given instructions.
func (c *Client) sendInstructions(instructions ...solana.Instruction) (*solana.Signature, error) {
	latestBlockhash, err := c.RpcClient.GetLatestBlockhash(context.Background(), rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(c.Signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			if c.Signer.PublicKey().Equals(key) {
				return &c.Signer
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.RpcClient.SendTransaction(context.Background(), tx)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return &sig, nil
}

// Initialize sends a transaction to initialize the global registry state.
// The signer becomes the registry admin.
func (c *Client) Initialize() (*solana.Signature, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry PDA: %w", err)
	}

	instruction, err := NewInitializeInstruction(
		c.Signer.PublicKey(),
		registryPDA,
		solana.SystemProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Initialize instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// SetCollection records the identity NFT collection mint on the registry.
// The collection itself is created off-chain; only its address is stored.
func (c *Client) SetCollection(collection solana.PublicKey) (*solana.Signature, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry PDA: %w", err)
	}

	instruction, err := NewCreateCollectionInstruction(
		c.Signer.PublicKey(),
		registryPDA,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CreateCollection instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// RegisterAgent registers a new agent for the client's signer. It reads the
// current registry counter to derive the agent PDA; a concurrent
// registration invalidates the derivation and the transaction fails.
func (c *Client) RegisterAgent(
	name string,
	modelHash string,
	capabilities string,
	nftMint solana.PublicKey,
) (*solana.Signature, solana.PublicKey, error) {
	registryState, err := c.FetchRegistry()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("could not fetch registry to derive agent id: %w", err)
	}

	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to get registry PDA: %w", err)
	}
	agentPDA, _, err := registry.GetAgentPDA(c.Signer.PublicKey(), registryState.TotalAgents)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to get agent PDA: %w", err)
	}

	instruction, err := NewRegisterAgentInstruction(
		name,
		modelHash,
		capabilities,
		c.Signer.PublicKey(),
		registryPDA,
		agentPDA,
		nftMint,
		solana.SystemProgramID,
	)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to create RegisterAgent instruction: %w", err)
	}

	sig, err := c.sendInstructions(instruction)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return sig, agentPDA, nil
}

// UpdateAgent updates the agent's mutable metadata. Nil arguments keep the
// current value; the model hash is immutable and has no update path.
func (c *Client) UpdateAgent(agentID uint64, name, capabilities *string) (*solana.Signature, error) {
	agentPDA, _, err := registry.GetAgentPDA(c.Signer.PublicKey(), agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent PDA: %w", err)
	}

	instruction, err := NewUpdateAgentInstruction(
		name,
		capabilities,
		c.Signer.PublicKey(),
		agentPDA,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create UpdateAgent instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// VerifyAgent marks an agent as verified. The signer must be the registry admin.
func (c *Client) VerifyAgent(agentPDA solana.PublicKey) (*solana.Signature, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry PDA: %w", err)
	}

	instruction, err := NewVerifyAgentInstruction(
		c.Signer.PublicKey(),
		registryPDA,
		agentPDA,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create VerifyAgent instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// UpdateReputation applies a signed reputation delta to an agent. The
// signer must be the registry admin; the program clamps the result.
func (c *Client) UpdateReputation(agentPDA solana.PublicKey, delta int32) (*solana.Signature, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry PDA: %w", err)
	}

	instruction, err := NewUpdateReputationInstruction(
		delta,
		c.Signer.PublicKey(),
		registryPDA,
		agentPDA,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create UpdateReputation instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// CreateChallenge opens a new challenge against an agent. The expected
// hash is the sha256 of the normalized reference answer, hex-encoded.
func (c *Client) CreateChallenge(
	agentPDA solana.PublicKey,
	nonce uint64,
	question string,
	expectedHash string,
) (*solana.Signature, error) {
	challengePDA, _, err := registry.GetChallengePDA(agentPDA, c.Signer.PublicKey(), nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge PDA: %w", err)
	}

	instruction, err := NewCreateChallengeInstruction(
		question,
		expectedHash,
		nonce,
		c.Signer.PublicKey(),
		agentPDA,
		challengePDA,
		solana.SystemProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CreateChallenge instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// SubmitResponse answers a pending challenge against the signer's agent.
func (c *Client) SubmitResponse(
	agentPDA solana.PublicKey,
	challenger solana.PublicKey,
	nonce uint64,
	responseHash string,
) (*solana.Signature, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry PDA: %w", err)
	}
	challengePDA, _, err := registry.GetChallengePDA(agentPDA, challenger, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge PDA: %w", err)
	}

	instruction, err := NewSubmitResponseInstruction(
		responseHash,
		nonce,
		c.Signer.PublicKey(),
		registryPDA,
		agentPDA,
		challengePDA,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SubmitResponse instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// ExpireChallenge settles a pending challenge whose response window has
// closed. Anyone can call it; the signer only pays the fee.
func (c *Client) ExpireChallenge(
	agentPDA solana.PublicKey,
	challenger solana.PublicKey,
	nonce uint64,
) (*solana.Signature, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry PDA: %w", err)
	}
	challengePDA, _, err := registry.GetChallengePDA(agentPDA, challenger, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge PDA: %w", err)
	}

	instruction, err := NewExpireChallengeInstruction(
		nonce,
		c.Signer.PublicKey(),
		registryPDA,
		agentPDA,
		challengePDA,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ExpireChallenge instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// CloseChallenge closes a settled challenge created by the signer and
// reclaims its rent.
func (c *Client) CloseChallenge(agentPDA solana.PublicKey, nonce uint64) (*solana.Signature, error) {
	challengePDA, _, err := registry.GetChallengePDA(agentPDA, c.Signer.PublicKey(), nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge PDA: %w", err)
	}

	instruction, err := NewCloseChallengeInstruction(
		nonce,
		c.Signer.PublicKey(),
		agentPDA,
		challengePDA,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CloseChallenge instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// LogAudit appends one audit entry for an agent. The entry index is read
// from the on-chain audit summary.
func (c *Client) LogAudit(
	agentPDA solana.PublicKey,
	actionType registry.ActionType,
	contextRisk uint8,
	detailsHash string,
) (*solana.Signature, error) {
	summary, err := c.FetchAuditSummary(agentPDA)
	if err != nil {
		return nil, fmt.Errorf("could not fetch audit summary to derive entry index: %w", err)
	}
	var auditIndex uint64
	if summary != nil {
		auditIndex = summary.TotalEntries
	}

	summaryPDA, _, err := registry.GetAuditSummaryPDA(agentPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit summary PDA: %w", err)
	}
	entryPDA, _, err := registry.GetAuditEntryPDA(agentPDA, auditIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry PDA: %w", err)
	}

	instruction, err := NewLogAuditInstruction(
		actionType,
		contextRisk,
		detailsHash,
		c.Signer.PublicKey(),
		agentPDA,
		summaryPDA,
		entryPDA,
		solana.SystemProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LogAudit instruction: %w", err)
	}

	return c.sendInstructions(instruction)
}

// StoreMerkleAudit commits one batch of off-chain audit entries as a
// single merkle root. The batch index comes from a local cache when
// available so that consecutive stores don't trip over stale RPC reads.
func (c *Client) StoreMerkleAudit(
	agentPDA solana.PublicKey,
	merkleRoot [32]uint8,
	entriesCount uint32,
) (*solana.Signature, error) {
	c.mu.Lock()
	batchIndex, cached := c.merkleBatchCache[agentPDA]
	c.mu.Unlock()

	if !cached {
		summary, err := c.FetchMerkleSummary(agentPDA)
		if err != nil {
			return nil, fmt.Errorf("could not fetch merkle summary to derive batch index: %w", err)
		}
		if summary != nil {
			batchIndex = summary.TotalBatches
		}
	}

	summaryPDA, _, err := registry.GetMerkleSummaryPDA(agentPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to get merkle summary PDA: %w", err)
	}
	rootPDA, _, err := registry.GetMerkleRootPDA(agentPDA, batchIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get merkle root PDA: %w", err)
	}

	instruction, err := NewStoreMerkleAuditInstruction(
		merkleRoot,
		entriesCount,
		c.Signer.PublicKey(),
		agentPDA,
		summaryPDA,
		rootPDA,
		solana.SystemProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create StoreMerkleAudit instruction: %w", err)
	}

	sig, err := c.sendInstructions(instruction)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.merkleBatchCache[agentPDA] = batchIndex + 1
	c.mu.Unlock()

	return sig, nil
}

// SendSol sends a specified amount of SOL to a recipient.
func (c *Client) SendSol(recipient solana.PublicKey, amountLamports uint64) (*solana.Signature, error) {
	instruction := system.NewTransferInstruction(
		amountLamports,
		c.Signer.PublicKey(),
		recipient,
	).Build()

	return c.sendInstructions(instruction)
}

// GetBalance retrieves the SOL balance for a given public key.
func (c *Client) GetBalance(publicKey solana.PublicKey) (uint64, error) {
	balance, err := c.RpcClient.GetBalance(
		context.Background(),
		publicKey,
		rpc.CommitmentFinalized,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// RequestAirdrop requests devnet SOL for the signer.
func (c *Client) RequestAirdrop(lamports uint64) (*solana.Signature, error) {
	sig, err := c.RpcClient.RequestAirdrop(
		context.Background(),
		c.Signer.PublicKey(),
		lamports,
		rpc.CommitmentConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to request airdrop: %w", err)
	}
	return &sig, nil
}

// FetchRegistry fetches the global registry state from the blockchain.
func (c *Client) FetchRegistry() (*registry.RegistryState, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry PDA: %w", err)
	}

	resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), registryPDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get registry account info: %w", err)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("registry account not found; the program has not been initialized")
	}

	return registry.ParseAccount_RegistryState(resp.Value.Data.GetBinary())
}

// FetchAgentAccount fetches and parses an agent account by owner and id.
func (c *Client) FetchAgentAccount(owner solana.PublicKey, agentID uint64) (*registry.AgentAccount, error) {
	agentPDA, _, err := registry.GetAgentPDA(owner, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent PDA: %w", err)
	}
	return c.FetchAgentByAddress(agentPDA)
}

// FetchAgentByAddress fetches and parses the agent account at an address.
func (c *Client) FetchAgentByAddress(agentPDA solana.PublicKey) (*registry.AgentAccount, error) {
	resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), agentPDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get agent account info: %w", err)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("agent account %s not found on-chain", agentPDA.String())
	}

	agent, err := registry.ParseAccount_AgentAccount(resp.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse agent account data: %w", err)
	}

	return agent, nil
}

// FetchChallenge fetches and parses a challenge account.
func (c *Client) FetchChallenge(
	agentPDA solana.PublicKey,
	challenger solana.PublicKey,
	nonce uint64,
) (*registry.Challenge, error) {
	challengePDA, _, err := registry.GetChallengePDA(agentPDA, challenger, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge PDA: %w", err)
	}

	resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), challengePDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge account info: %w", err)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("challenge account not found on-chain")
	}

	challenge, err := registry.ParseAccount_Challenge(resp.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse challenge account data: %w", err)
	}

	return challenge, nil
}

// FetchAuditSummary fetches an agent's audit summary. A nil result with a
// nil error means the summary has not been created yet.
func (c *Client) FetchAuditSummary(agentPDA solana.PublicKey) (*registry.AgentAuditSummary, error) {
	summaryPDA, _, err := registry.GetAuditSummaryPDA(agentPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit summary PDA: %w", err)
	}

	resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), summaryPDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		// The summary is created lazily on the first audit entry;
		// not found is a valid state.
		if err == rpc.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audit summary account info: %w", err)
	}
	if resp.Value == nil {
		return nil, nil
	}

	return registry.ParseAccount_AgentAuditSummary(resp.Value.Data.GetBinary())
}

// FetchMerkleSummary fetches an agent's merkle audit summary. A nil result
// with a nil error means no batch has been stored yet.
func (c *Client) FetchMerkleSummary(agentPDA solana.PublicKey) (*registry.MerkleAuditSummary, error) {
	summaryPDA, _, err := registry.GetMerkleSummaryPDA(agentPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to get merkle summary PDA: %w", err)
	}

	resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), summaryPDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if err == rpc.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get merkle summary account info: %w", err)
	}
	if resp.Value == nil {
		return nil, nil
	}

	return registry.ParseAccount_MerkleAuditSummary(resp.Value.Data.GetBinary())
}

// FetchMerkleRoot fetches the stored merkle root for one batch.
func (c *Client) FetchMerkleRoot(agentPDA solana.PublicKey, batchIndex uint64) (*registry.MerkleAuditRoot, error) {
	rootPDA, _, err := registry.GetMerkleRootPDA(agentPDA, batchIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get merkle root PDA: %w", err)
	}

	resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), rootPDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get merkle root account info: %w", err)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("merkle root for batch %d not found on-chain", batchIndex)
	}

	return registry.ParseAccount_MerkleAuditRoot(resp.Value.Data.GetBinary())
}

// IsRegistryInitialized checks whether the global registry state exists.
func (c *Client) IsRegistryInitialized() (bool, error) {
	registryPDA, _, err := registry.GetRegistryPDA()
	if err != nil {
		return false, fmt.Errorf("failed to get registry PDA: %w", err)
	}

	resp, err := c.RpcClient.GetAccountInfoWithOpts(context.Background(), registryPDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if err == rpc.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get registry account info: %w", err)
	}
	return resp.Value != nil, nil
}
