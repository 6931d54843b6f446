package cmd

import (
	"fmt"
	"strconv"

	sentinel "sentinel-cli/solana"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"
)

func handleWalletManagement(signer solana.PrivateKey) {
	fmt.Println()
	menu := &survey.Select{
		Message: promptStyle.Render("Wallet Management:"),
		Options: []string{"View Address", "View Balance", "Request Airdrop", "Send SOL", "Export Wallet (UNSAFE)", "Back to Main Menu"},
	}
	var choice string
	survey.AskOne(menu, &choice)

	switch choice {
	case "View Address":
		viewAddress(signer)
	case "View Balance":
		viewBalance(signer)
	case "Request Airdrop":
		requestAirdrop(signer)
	case "Send SOL":
		sendSol(signer)
	case "Export Wallet (UNSAFE)":
		exportWallet(signer)
	case "Back to Main Menu":
		return
	}
}

func viewAddress(signer solana.PrivateKey) {
	fmt.Println(titleStyle.Render("\n🔑 Your Current Wallet Address:"))
	fmt.Println(signer.PublicKey().String())
}

func viewBalance(signer solana.PrivateKey) {
	client, err := sentinel.NewClient(GetRpcEndpoint(), signer)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Failed to create Solana client: %v", err)))
		return
	}
	fmt.Println(promptStyle.Render("\nChecking balance... Please wait."))
	balanceLamports, err := client.GetBalance(signer.PublicKey())
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to get balance: %v", err)))
		return
	}
	balanceSOL := float64(balanceLamports) / float64(solana.LAMPORTS_PER_SOL)
	fmt.Println(titleStyle.Render("\n💰 Your Wallet Balance:"))
	fmt.Printf("   %.9f SOL\n", balanceSOL)
}

func requestAirdrop(signer solana.PrivateKey) {
	client, err := sentinel.NewClient(GetRpcEndpoint(), signer)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Failed to create Solana client: %v", err)))
		return
	}
	fmt.Println(promptStyle.Render("\nRequesting 1 SOL devnet airdrop... Please wait."))
	sig, err := client.RequestAirdrop(solana.LAMPORTS_PER_SOL)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Airdrop failed: %v", err)))
		return
	}
	fmt.Println(titleStyle.Render("\n✅ Airdrop Requested!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}

func exportWallet(signer solana.PrivateKey) {
	fmt.Println(warningStyle.Render("\n⚠️ WARNING: EXPORTING YOUR PRIVATE KEY ⚠️"))
	fmt.Println(promptStyle.Render("Sharing your private key can result in the permanent loss of your funds."))
	confirm := false
	prompt := &survey.Confirm{Message: "Are you absolutely sure?", Default: false}
	survey.AskOne(prompt, &confirm)
	if !confirm {
		fmt.Println(promptStyle.Render("\nExport cancelled."))
		return
	}
	fmt.Println(titleStyle.Render("\n🔐 Your Private Key (Base58):"))
	fmt.Println(signer.String())
}

func sendSol(signer solana.PrivateKey) {
	fmt.Println(promptStyle.Render("\n💸 Send SOL"))
	recipientStr := ""
	addrPrompt := &survey.Input{Message: "Enter recipient address:"}
	survey.AskOne(addrPrompt, &recipientStr, survey.WithValidator(survey.Required))
	recipient, err := solana.PublicKeyFromBase58(recipientStr)
	if err != nil {
		fmt.Println(warningStyle.Render("Invalid recipient address."))
		return
	}
	amountStr := ""
	amountPrompt := &survey.Input{Message: "Enter amount of SOL to send:"}
	survey.AskOne(amountPrompt, &amountStr, survey.WithValidator(survey.Required))
	amountFloat, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		fmt.Println(warningStyle.Render("Invalid amount entered."))
		return
	}
	amountLamports := uint64(amountFloat * float64(solana.LAMPORTS_PER_SOL))
	confirm := false
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("You are about to send %f SOL to %s. Continue?", amountFloat, recipient.String()),
		Default: false,
	}
	survey.AskOne(confirmPrompt, &confirm)
	if !confirm {
		fmt.Println(promptStyle.Render("\nSend cancelled."))
		return
	}
	client, err := sentinel.NewClient(GetRpcEndpoint(), signer)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Failed to create Solana client: %v", err)))
		return
	}
	fmt.Println(promptStyle.Render("\nSending transaction... Please wait."))
	sig, err := client.SendSol(recipient, amountLamports)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n❌ Failed to send SOL: %v", err)))
		return
	}
	fmt.Println(titleStyle.Render("\n✅ Transaction Sent Successfully!"))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}
