package cmd

import (
	"fmt"
	"strconv"

	sentinel "sentinel-cli/solana"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"
)

// handleInitializeRegistry creates the global registry state. The signer
// becomes the registry admin.
func handleInitializeRegistry(client *sentinel.Client) {
	fmt.Println(promptStyle.Render("\n🏗  Registry Initialization"))
	fmt.Println(promptStyle.Render("The signing wallet becomes the registry admin."))

	confirm := false
	prompt := &survey.Confirm{Message: "Initialize the registry now?", Default: false}
	survey.AskOne(prompt, &confirm)
	if !confirm {
		fmt.Println(promptStyle.Render("\nInitialization cancelled."))
		return
	}

	fmt.Println(promptStyle.Render("\nSending transaction... Please wait."))
	sig, err := client.Initialize()
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Initialization failed: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Registry Initialized!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}

// handleSetCollection records the NFT collection mint on the registry.
func handleSetCollection(client *sentinel.Client) {
	collectionStr := ""
	prompt := &survey.Input{Message: "Enter the collection mint address:"}
	survey.AskOne(prompt, &collectionStr, survey.WithValidator(survey.Required))

	collection, err := solana.PublicKeyFromBase58(collectionStr)
	if err != nil {
		fmt.Println(warningStyle.Render("Invalid collection address."))
		return
	}

	fmt.Println(promptStyle.Render("\nSending transaction... Please wait."))
	sig, err := client.SetCollection(collection)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to set collection: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Collection Set!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}

// handleVerifyAgent marks an agent as verified by the registry admin.
func handleVerifyAgent(client *sentinel.Client) {
	target := selectAnyAgent(client, "Choose the agent to verify:")
	if target == nil {
		return
	}
	if target.Account.Verified {
		fmt.Println(promptStyle.Render("This agent is already verified."))
		return
	}

	fmt.Println(promptStyle.Render("\nSending verification transaction... Please wait."))
	sig, err := client.VerifyAgent(target.PublicKey)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Verification failed: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Agent Verified!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}

// handleAdjustReputation applies a manual reputation delta to an agent.
func handleAdjustReputation(client *sentinel.Client) {
	target := selectAnyAgent(client, "Choose the agent to adjust:")
	if target == nil {
		return
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("   Current reputation: %.2f%%", target.Account.ReputationPercentage())))

	deltaStr := ""
	prompt := &survey.Input{
		Message: "Enter the reputation delta (e.g. 100 or -250):",
		Help:    "The score is in basis points of 100% (0 to 10000) and saturates at the bounds.",
	}
	survey.AskOne(prompt, &deltaStr, survey.WithValidator(survey.Required))

	delta, err := strconv.ParseInt(deltaStr, 10, 32)
	if err != nil {
		fmt.Println(warningStyle.Render("Invalid delta entered."))
		return
	}

	fmt.Println(promptStyle.Render("\nSending transaction... Please wait."))
	sig, err := client.UpdateReputation(target.PublicKey, int32(delta))
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Reputation update failed: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Reputation Updated!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}
