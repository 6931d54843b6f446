package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sentinel-cli/agent"
	"sentinel-cli/merkle"
	sentinel "sentinel-cli/solana"

	"github.com/AlecAivazis/survey/v2"
	humanize "github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
)

// handleCreateChallenge poses a new challenge to a registered agent.
func handleCreateChallenge(client *sentinel.Client) {
	target := selectAnyAgent(client, "Choose the agent to challenge:")
	if target == nil {
		return
	}

	source := ""
	sourcePrompt := &survey.Select{
		Message: promptStyle.Render("Where should the question come from?"),
		Options: []string{"Question pool", "Custom question"},
	}
	survey.AskOne(sourcePrompt, &source)

	var question, expectedHash string
	switch source {
	case "Question pool":
		personality := ""
		personalityPrompt := &survey.Select{
			Message: promptStyle.Render("Choose a challenge focus:"),
			Options: []string{"defi", "solana", "security", "general"},
			Default: "general",
		}
		survey.AskOne(personalityPrompt, &personality)

		selector := agent.NewSelector(personality, rand.New(rand.NewSource(time.Now().UnixNano())))
		q := selector.SelectQuestion(target.PublicKey.String())
		question = q.Text
		answerHash := sha256.Sum256([]byte(q.ReferenceAnswer))
		expectedHash = hex.EncodeToString(answerHash[:])
		fmt.Println(infoStyle.Render(fmt.Sprintf("   Question [%s/%s]: %s", q.Domain, q.Difficulty, q.Text)))
	case "Custom question":
		questionPrompt := &survey.Input{
			Message: "Enter your question (at least 10 characters):",
		}
		survey.AskOne(questionPrompt, &question, survey.WithValidator(survey.Required))
		if len(question) < 10 {
			fmt.Println(warningStyle.Render("Question is too short."))
			return
		}
		answer := ""
		answerPrompt := &survey.Input{
			Message: "Enter the expected answer:",
			Help:    "Only its sha256 hash goes on-chain.",
		}
		survey.AskOne(answerPrompt, &answer, survey.WithValidator(survey.Required))
		answerHash := sha256.Sum256([]byte(answer))
		expectedHash = hex.EncodeToString(answerHash[:])
	default:
		return
	}

	nonce := uint64(time.Now().Unix())

	fmt.Println(promptStyle.Render("\nSending challenge transaction... Please wait."))
	sig, err := client.CreateChallenge(target.PublicKey, nonce, question, expectedHash)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to create challenge: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Challenge Created!"))
	fmt.Printf("   Nonce: %d\n", nonce)
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
	fmt.Println("   The agent has one hour to respond.")
}

// handleRespondToChallenges runs the responder loop for one of the
// signer's agents until interrupted.
func handleRespondToChallenges(client *sentinel.Client, signer solana.PrivateKey) {
	owned := selectOwnedAgent(client, signer)
	if owned == nil {
		return
	}
	agentPDA := owned.PublicKey

	batcher := merkle.NewBatcher(10, func(root [32]byte, entriesCount uint32) (string, error) {
		sig, err := client.StoreMerkleAudit(agentPDA, root, entriesCount)
		if err != nil {
			return "", err
		}
		return sig.String(), nil
	}, configDir())

	responder := agent.NewResponder(owned.Account.ModelHash, nil)
	runner := agent.NewRunner(client, responder, batcher, agent.RunnerConfig{
		AgentPDA: agentPDA,
	})

	fmt.Println(titleStyle.Render(fmt.Sprintf("\n🤖 Responder running for %s", owned.Account.Name)))
	fmt.Println(promptStyle.Render("   Polling for pending challenges. Press Ctrl+C to stop."))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Responder stopped: %v", err)))
		return
	}
	fmt.Println(promptStyle.Render("\nResponder stopped."))
}

// handleExpireChallenges settles challenges whose response window has
// closed. Anyone may call this; expiry debits the agent's reputation.
func handleExpireChallenges(client *sentinel.Client) {
	fmt.Println(promptStyle.Render("\nScanning for stale challenges... Please wait."))
	stale, err := client.FetchExpiredPendingChallenges()
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not fetch challenges: %v", err)))
		return
	}
	if len(stale) == 0 {
		fmt.Println(promptStyle.Render("No stale challenges found."))
		return
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("\n⏰ %d stale challenge(s) found", len(stale))))
	for _, ch := range stale {
		c := ch.Account
		fmt.Println(infoStyle.Render(fmt.Sprintf("   %s (expired %s)", truncateQuestion(c.Question), humanize.Time(time.Unix(c.ExpiresAt, 0)))))

		confirm := false
		prompt := &survey.Confirm{Message: "Expire this challenge?", Default: true}
		survey.AskOne(prompt, &confirm)
		if !confirm {
			continue
		}

		sig, err := client.ExpireChallenge(c.Agent, c.Challenger, c.Nonce)
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("❌ Failed to expire: %v", err)))
			continue
		}
		fmt.Println(promptStyle.Render(fmt.Sprintf("   Expired. Signature: %s", sig.String())))
	}
}

// handleCloseChallenges reclaims rent from the signer's settled challenges.
func handleCloseChallenges(client *sentinel.Client, signer solana.PrivateKey) {
	fmt.Println(promptStyle.Render("\nFetching your challenges... Please wait."))
	mine, err := client.FetchChallengesByChallenger(signer.PublicKey())
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not fetch challenges: %v", err)))
		return
	}

	closable := mine[:0]
	for _, ch := range mine {
		if ch.Account.Status.Terminal() {
			closable = append(closable, ch)
		}
	}
	if len(closable) == 0 {
		fmt.Println(promptStyle.Render("No resolved challenges to close."))
		return
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("\n🧹 %d resolved challenge(s)", len(closable))))
	for _, ch := range closable {
		c := ch.Account
		fmt.Println(infoStyle.Render(fmt.Sprintf("   [%s] %s", c.Status, truncateQuestion(c.Question))))

		confirm := false
		prompt := &survey.Confirm{Message: "Close this challenge and reclaim rent?", Default: true}
		survey.AskOne(prompt, &confirm)
		if !confirm {
			continue
		}

		sig, err := client.CloseChallenge(c.Agent, c.Nonce)
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("❌ Failed to close: %v", err)))
			continue
		}
		fmt.Println(promptStyle.Render(fmt.Sprintf("   Closed. Signature: %s", sig.String())))
	}
}

func truncateQuestion(q string) string {
	q = strings.TrimSpace(q)
	if len(q) > 60 {
		return q[:57] + "..."
	}
	return q
}
