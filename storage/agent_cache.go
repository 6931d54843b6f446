package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// AgentCache is a local sqlite mirror of agents observed on-chain. It
// backs the offline leaderboard and keeps names resolvable when the RPC
// endpoint is unreachable.
type AgentCache struct {
	db *sql.DB
}

// NewAgentCache opens (or creates) the cache database at path and runs
// schema migrations.
func NewAgentCache(path string) (*AgentCache, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	c := &AgentCache{db: sqlDB}
	if err := c.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *AgentCache) Close() error {
	return c.db.Close()
}

func (c *AgentCache) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS agents (
    address TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    agent_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    model_hash TEXT NOT NULL,
    reputation_score INTEGER NOT NULL,
    verified INTEGER DEFAULT 0,
    last_seen_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_owner ON agents(owner);
CREATE INDEX IF NOT EXISTS idx_agents_reputation ON agents(reputation_score DESC);
`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Upsert records an observed agent, replacing any earlier snapshot.
func (c *AgentCache) Upsert(agent *CachedAgent) error {
	_, err := c.db.Exec(
		`INSERT INTO agents (address, owner, agent_id, name, model_hash, reputation_score, verified, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		     name = excluded.name,
		     model_hash = excluded.model_hash,
		     reputation_score = excluded.reputation_score,
		     verified = excluded.verified,
		     last_seen_at = excluded.last_seen_at`,
		agent.Address, agent.Owner, agent.AgentID, agent.Name, agent.ModelHash,
		agent.ReputationScore, boolToInt(agent.Verified), agent.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

// Get retrieves one cached agent by on-chain address.
func (c *AgentCache) Get(address string) (*CachedAgent, error) {
	agent := &CachedAgent{}
	var verified int
	err := c.db.QueryRow(
		`SELECT address, owner, agent_id, name, model_hash, reputation_score, verified, last_seen_at
		 FROM agents WHERE address = ?`, address,
	).Scan(&agent.Address, &agent.Owner, &agent.AgentID, &agent.Name,
		&agent.ModelHash, &agent.ReputationScore, &verified, &agent.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	agent.Verified = verified == 1
	return agent, nil
}

// Leaderboard returns the cached agents ordered by reputation, best first.
func (c *AgentCache) Leaderboard(limit int) ([]CachedAgent, error) {
	rows, err := c.db.Query(
		`SELECT address, owner, agent_id, name, model_hash, reputation_score, verified, last_seen_at
		 FROM agents ORDER BY reputation_score DESC, verified DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []CachedAgent
	for rows.Next() {
		var agent CachedAgent
		var verified int
		if err := rows.Scan(&agent.Address, &agent.Owner, &agent.AgentID, &agent.Name,
			&agent.ModelHash, &agent.ReputationScore, &verified, &agent.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agent.Verified = verified == 1
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// ByOwner returns the cached agents registered by one owner.
func (c *AgentCache) ByOwner(owner string) ([]CachedAgent, error) {
	rows, err := c.db.Query(
		`SELECT address, owner, agent_id, name, model_hash, reputation_score, verified, last_seen_at
		 FROM agents WHERE owner = ? ORDER BY agent_id`, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list agents by owner: %w", err)
	}
	defer rows.Close()

	var agents []CachedAgent
	for rows.Next() {
		var agent CachedAgent
		var verified int
		if err := rows.Scan(&agent.Address, &agent.Owner, &agent.AgentID, &agent.Name,
			&agent.ModelHash, &agent.ReputationScore, &verified, &agent.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agent.Verified = verified == 1
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// Prune deletes agents not seen since the cutoff timestamp.
func (c *AgentCache) Prune(cutoff int64) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM agents WHERE last_seen_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune agents: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
