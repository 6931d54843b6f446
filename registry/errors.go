package registry

import "fmt"

// Error is a program error with an anchor-style error code, matching the
// entries surfaced in the program IDL. Instruction handlers fail fast with
// one of the values below; no partial state ever commits on failure.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

// Constraint-level errors (account resolution, before the handler body runs).
var (
	ErrConstraintSeeds = &Error{2006, "ConstraintSeeds", "a seeds constraint was violated: supplied address does not match the derived PDA"}
	ErrAccountNotFound = &Error{3012, "AccountNotInitialized", "the program expected this account to be already initialized"}
	ErrAlreadyInitialized = &Error{3013, "AccountAlreadyInitialized", "the account has already been initialized"}
	ErrInsufficientFunds  = &Error{3014, "InsufficientFunds", "payer has insufficient lamports for rent"}
)

// Program errors, codes assigned in declaration order from 6000.
var (
	ErrNameTooLong                  = &Error{6000, "NameTooLong", "name is too long (max 64 characters)"}
	ErrInvalidModelHash             = &Error{6001, "InvalidModelHash", "model hash is invalid (must be sha256: followed by 64 hex characters)"}
	ErrCapabilitiesTooLong          = &Error{6002, "CapabilitiesTooLong", "capabilities string is too long (max 256 characters)"}
	ErrAlreadyVerified              = &Error{6003, "AlreadyVerified", "agent is already verified"}
	ErrUnauthorized                 = &Error{6004, "Unauthorized", "signer does not match the required authority"}
	ErrReputationDeltaTooLarge      = &Error{6005, "ReputationDeltaTooLarge", "reputation delta too large"}
	ErrAgentNotFound                = &Error{6006, "AgentNotFound", "agent not found"}
	ErrRegistryFull                 = &Error{6007, "RegistryFull", "registry is full"}
	ErrCollectionAlreadyInitialized = &Error{6008, "CollectionAlreadyInitialized", "collection has already been initialized"}
	ErrCollectionNotInitialized     = &Error{6009, "CollectionNotInitialized", "collection must be initialized before registering agents"}
	ErrQuestionTooLong              = &Error{6010, "QuestionTooLong", "question is too long (max 256 characters)"}
	ErrInvalidExpectedHash          = &Error{6011, "InvalidExpectedHash", "expected hash must be 64 hex characters (SHA256)"}
	ErrInvalidResponseHash          = &Error{6012, "InvalidResponseHash", "response hash must be 64 hex characters (SHA256)"}
	ErrChallengeExpired             = &Error{6013, "ChallengeExpired", "challenge has expired"}
	ErrChallengeNotPending          = &Error{6014, "ChallengeNotPending", "challenge is not pending"}
	ErrChallengeMismatch            = &Error{6015, "ChallengeMismatch", "challenge does not match the agent"}
	ErrChallengeNotExpired          = &Error{6016, "ChallengeNotExpired", "challenge has not expired yet"}
	ErrInvalidDetailsHash           = &Error{6017, "InvalidDetailsHash", "details hash must be 64 hex characters (SHA256)"}
	ErrInvalidRiskScore             = &Error{6018, "InvalidRiskScore", "risk score must be 0-100"}
	ErrAuditSummaryNotFound         = &Error{6019, "AuditSummaryNotFound", "audit summary not found for this agent"}
	ErrChallengeStillPending        = &Error{6020, "ChallengeStillPending", "challenge is still pending (must be resolved before closing)"}
	ErrQuestionTooShort             = &Error{6021, "QuestionTooShort", "question is too short (min 10 characters)"}
	ErrSequenceMismatch             = &Error{6022, "SequenceMismatch", "supplied index does not match the expected next index"}
	ErrArithmeticOverflow           = &Error{6023, "ArithmeticOverflow", "arithmetic overflow"}
)
