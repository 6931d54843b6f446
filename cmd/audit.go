package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"sentinel-cli/registry"
	sentinel "sentinel-cli/solana"

	"github.com/AlecAivazis/survey/v2"
	humanize "github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
)

func handleAuditLog(client *sentinel.Client, signer solana.PrivateKey) {
	fmt.Println()
	menu := &survey.Select{
		Message: promptStyle.Render("Audit Log:"),
		Options: []string{"View Agent Activity", "Record Audit Event", "Back to Main Menu"},
	}
	var choice string
	survey.AskOne(menu, &choice)

	switch choice {
	case "View Agent Activity":
		viewAgentActivity(client)
	case "Record Audit Event":
		recordAuditEvent(client, signer)
	case "Back to Main Menu":
		return
	}
}

// viewAgentActivity renders the audit trail and merkle batch history of
// one agent.
func viewAgentActivity(client *sentinel.Client) {
	target := selectAnyAgent(client, "Choose an agent to inspect:")
	if target == nil {
		return
	}

	fmt.Println(promptStyle.Render("\nFetching activity... Please wait."))
	activity, err := client.GetActivity(target.PublicKey)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not fetch activity: %v", err)))
		return
	}

	trusted := "untrusted"
	if activity.Trusted {
		trusted = "trusted"
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("\n📜 Activity for %s (%s)", target.Account.Name, trusted)))

	if len(activity.AuditHistory) == 0 {
		fmt.Println(promptStyle.Render("   No audit entries recorded."))
	}
	for _, event := range activity.AuditHistory {
		line := fmt.Sprintf("   #%-4d %-22s risk %3d (%s)  %s",
			event.AuditIndex, event.Action, event.RiskScore, event.RiskLevel, humanize.Time(event.Timestamp))
		if event.RiskLevel >= registry.RiskLevel_High {
			fmt.Println(warningStyle.Render(line))
		} else {
			fmt.Println(infoStyle.Render(line))
		}
	}

	if len(activity.BatchHistory) > 0 {
		fmt.Println(titleStyle.Render("\n🌳 Committed Audit Batches"))
		for _, batch := range activity.BatchHistory {
			fmt.Println(infoStyle.Render(fmt.Sprintf("   batch %-4d %3d entries  root %s...  %s",
				batch.BatchIndex, batch.EntriesCount, batch.MerkleRoot[:16], humanize.Time(batch.Timestamp))))
		}
	}
}

// recordAuditEvent appends a manual audit entry for one of the signer's
// agents. Only the sha256 of the details text goes on-chain.
func recordAuditEvent(client *sentinel.Client, signer solana.PrivateKey) {
	owned := selectOwnedAgent(client, signer)
	if owned == nil {
		return
	}

	actionOptions := []string{
		registry.ActionType_SecurityAlert.String(),
		registry.ActionType_AgentUpdated.String(),
		registry.ActionType_Custom.String(),
	}
	actionStr := ""
	actionPrompt := &survey.Select{
		Message: promptStyle.Render("Choose the action type:"),
		Options: actionOptions,
	}
	survey.AskOne(actionPrompt, &actionStr)

	var actionType registry.ActionType
	switch actionStr {
	case registry.ActionType_SecurityAlert.String():
		actionType = registry.ActionType_SecurityAlert
	case registry.ActionType_AgentUpdated.String():
		actionType = registry.ActionType_AgentUpdated
	default:
		actionType = registry.ActionType_Custom
	}

	riskStr := "0"
	riskPrompt := &survey.Input{
		Message: "Enter the context risk (0-100):",
		Default: "0",
	}
	survey.AskOne(riskPrompt, &riskStr)
	risk, err := strconv.ParseUint(riskStr, 10, 8)
	if err != nil || risk > 100 {
		fmt.Println(warningStyle.Render("Invalid risk value."))
		return
	}

	details := ""
	detailsPrompt := &survey.Input{Message: "Describe the event:"}
	survey.AskOne(detailsPrompt, &details, survey.WithValidator(survey.Required))
	detailsHash := sha256.Sum256([]byte(details))

	fmt.Println(promptStyle.Render("\nSending audit transaction... Please wait."))
	sig, err := client.LogAudit(owned.PublicKey, actionType, uint8(risk), hex.EncodeToString(detailsHash[:]))
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to record audit event: %v", err)))
		return
	}

	fmt.Println(titleStyle.Render("\n✅ Audit Event Recorded!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}
