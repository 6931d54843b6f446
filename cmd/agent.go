package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	sentinel "sentinel-cli/solana"
	"sentinel-cli/storage"

	"github.com/AlecAivazis/survey/v2"
	humanize "github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
)

// handleRegisterAgent guides the user through registering a new agent.
func handleRegisterAgent(client *sentinel.Client) {
	fmt.Println(promptStyle.Render("\n🚀 Agent Registration"))
	fmt.Println(promptStyle.Render("--------------------------"))

	name := ""
	namePrompt := &survey.Input{
		Message: "Enter a name for your agent:",
		Help:    "Up to 64 characters. Shown on the leaderboard.",
	}
	survey.AskOne(namePrompt, &name, survey.WithValidator(survey.Required))

	modelName := "gpt-4o-mini"
	modelPrompt := &survey.Input{
		Message: "Enter the model identifier backing this agent:",
		Default: "gpt-4o-mini",
		Help:    "The identifier is hashed and committed on-chain.",
	}
	survey.AskOne(modelPrompt, &modelName)
	modelHashBytes := sha256.Sum256([]byte(modelName))
	modelHash := "sha256:" + hex.EncodeToString(modelHashBytes[:])

	capabilities := ""
	capsPrompt := &survey.Input{
		Message: "Enter agent capabilities (comma-separated):",
		Default: "chat,challenge-response",
	}
	survey.AskOne(capsPrompt, &capabilities)

	// The registry expects an NFT mint address for the agent identity.
	// A fresh keypair stands in until minting is wired to a collection.
	nftMint := solana.NewWallet().PublicKey()

	fmt.Println(promptStyle.Render("\nSending registration transaction... Please wait."))

	sig, agentPDA, err := client.RegisterAgent(name, modelHash, capabilities, nftMint)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Registration failed: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Agent Registration Successful!"))
	fmt.Printf("   Agent Address: %s\n", agentPDA.String())
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
	fmt.Println("   It may take a moment for the transaction to be finalized on the blockchain.")
}

// handleUpdateAgent updates the name and/or capabilities of an owned agent.
func handleUpdateAgent(client *sentinel.Client, signer solana.PrivateKey) {
	agent := selectOwnedAgent(client, signer)
	if agent == nil {
		return
	}

	fields := []string{}
	fieldsPrompt := &survey.MultiSelect{
		Message: "Which fields do you want to update?",
		Options: []string{"Name", "Capabilities"},
	}
	survey.AskOne(fieldsPrompt, &fields)
	if len(fields) == 0 {
		fmt.Println(promptStyle.Render("Nothing selected, update cancelled."))
		return
	}

	var name, capabilities *string
	for _, field := range fields {
		switch field {
		case "Name":
			v := ""
			p := &survey.Input{Message: "New name:", Default: agent.Account.Name}
			survey.AskOne(p, &v, survey.WithValidator(survey.Required))
			name = &v
		case "Capabilities":
			v := ""
			p := &survey.Input{Message: "New capabilities:", Default: agent.Account.Capabilities}
			survey.AskOne(p, &v, survey.WithValidator(survey.Required))
			capabilities = &v
		}
	}

	fmt.Println(promptStyle.Render("\nSending update transaction... Please wait."))
	sig, err := client.UpdateAgent(agent.Account.AgentId, name, capabilities)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Update failed: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Agent Updated!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}

// handleAgentDashboard renders the on-chain state of one owned agent.
func handleAgentDashboard(client *sentinel.Client, signer solana.PrivateKey) {
	agent := selectOwnedAgent(client, signer)
	if agent == nil {
		return
	}
	a := agent.Account

	verified := "no"
	if a.Verified {
		verified = "yes"
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("\n📊 Agent Dashboard: %s", a.Name)))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Address:       %s", agent.PublicKey)))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Agent ID:      %d", a.AgentId)))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Model:         %s", a.ModelHash)))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Capabilities:  %s", a.Capabilities)))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Reputation:    %.2f%%", a.ReputationPercentage())))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Challenges:    %d passed / %d failed", a.ChallengesPassed, a.ChallengesFailed)))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Verified:      %s", verified)))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Registered:    %s", humanize.Time(time.Unix(a.CreatedAt, 0)))))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Last updated:  %s", humanize.Time(time.Unix(a.UpdatedAt, 0)))))
	fmt.Println(infoStyle.Render(fmt.Sprintf("   NFT Mint:      %s", a.NftMint)))
}

// handleLeaderboard renders the full registry leaderboard and refreshes the
// local agent cache so the view keeps working when the RPC is down.
func handleLeaderboard(client *sentinel.Client) {
	fmt.Println(promptStyle.Render("\nFetching leaderboard... Please wait."))

	cache, err := storage.NewAgentCache(agentCachePath())
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not open agent cache: %v", err)))
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	agents, err := client.Leaderboard()
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not fetch agents: %v", err)))
		if cache == nil {
			return
		}
		fmt.Println(promptStyle.Render("Falling back to the cached leaderboard."))
		cached, err := cache.Leaderboard(25)
		if err != nil || len(cached) == 0 {
			fmt.Println(warningStyle.Render("No cached agents available."))
			return
		}
		fmt.Println(titleStyle.Render("\n🏆 Leaderboard (cached)"))
		for i, a := range cached {
			printLeaderboardRow(i+1, a.Name, a.Address, float64(a.ReputationScore)/100.0, a.Verified)
		}
		return
	}

	if len(agents) == 0 {
		fmt.Println(promptStyle.Render("No agents registered yet."))
		return
	}

	fmt.Println(titleStyle.Render("\n🏆 Leaderboard"))
	now := time.Now().Unix()
	for i, agent := range agents {
		a := agent.Account
		printLeaderboardRow(i+1, a.Name, agent.PublicKey.String(), a.ReputationPercentage(), a.Verified)
		if cache != nil {
			cache.Upsert(&storage.CachedAgent{
				Address:         agent.PublicKey.String(),
				Owner:           a.Owner.String(),
				AgentID:         a.AgentId,
				Name:            a.Name,
				ModelHash:       a.ModelHash,
				ReputationScore: a.ReputationScore,
				Verified:        a.Verified,
				LastSeenAt:      now,
			})
		}
	}
}

func printLeaderboardRow(rank int, name, address string, reputation float64, verified bool) {
	badge := "  "
	if verified {
		badge = "✔ "
	}
	fmt.Printf("   %2d. %s%-24s %6.2f%%  %s\n", rank, badge, name, reputation, address)
}

// selectOwnedAgent lists the signer's agents and lets the user pick one.
// Returns nil (after printing a message) when there is nothing to pick.
func selectOwnedAgent(client *sentinel.Client, signer solana.PrivateKey) *sentinel.AgentResult {
	fmt.Println(promptStyle.Render("\nFetching your agents... Please wait."))
	agents, err := client.FetchAgentsByOwner(signer.PublicKey())
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not fetch agents: %v", err)))
		return nil
	}
	if len(agents) == 0 {
		fmt.Println(promptStyle.Render("You have no registered agents. Register one first."))
		return nil
	}
	return pickAgent("Choose one of your agents:", agents)
}

// selectAnyAgent lists every registered agent and lets the user pick one.
func selectAnyAgent(client *sentinel.Client, message string) *sentinel.AgentResult {
	fmt.Println(promptStyle.Render("\nFetching agents... Please wait."))
	agents, err := client.FetchAllAgents()
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not fetch agents: %v", err)))
		return nil
	}
	if len(agents) == 0 {
		fmt.Println(promptStyle.Render("No agents registered yet."))
		return nil
	}
	return pickAgent(message, agents)
}

func pickAgent(message string, agents []*sentinel.AgentResult) *sentinel.AgentResult {
	options := make([]string, len(agents))
	for i, agent := range agents {
		options[i] = fmt.Sprintf("%s (%s)", agent.Account.Name, agent.PublicKey.String())
	}

	choice := ""
	prompt := &survey.Select{
		Message: promptStyle.Render(message),
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return nil
	}
	for i, option := range options {
		if option == choice {
			return agents[i]
		}
	}
	return nil
}
