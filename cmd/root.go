package cmd

import (
	"fmt"
	"os"

	"sentinel-cli/storage"

	sentinel "sentinel-cli/solana"

	"github.com/AlecAivazis/survey/v2"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel-cli",
	Short: "Sentinel CLI helps you run an agent on the Sentinel registry.",
	Long:  `An interactive command-line interface to register AI agents on-chain, answer verification challenges and manage your Sentinel wallet.`,
	Run:   run,
}

// run is the main entry point for the interactive CLI.
func run(cmd *cobra.Command, args []string) {
	GetRpcEndpoint()

	myFigure := figure.NewFigure("SENTINEL", "larry3d", true)
	fmt.Println(titleStyle.Render(myFigure.String()))

	// The main application loop is wrapped in profile selection.
	for {
		signer, profileName, err := runProfileSelection()
		if err != nil {
			// This error is returned when the user chooses to exit.
			fmt.Println("Exiting Sentinel CLI.")
			os.Exit(0)
		}
		runInteractive(signer, profileName)
	}
}

// runProfileSelection handles the UI for choosing or creating a wallet profile.
func runProfileSelection() (solana.PrivateKey, string, error) {
	db, err := storage.Connect()
	if err != nil {
		panic(fmt.Sprintf("failed to connect to wallet storage: %v", err))
	}

	// If no wallet exists yet, run the first-time initialization.
	if !isInitialized(db) {
		runInit(db)
	}

	for {
		profiles, err := db.GetAllWalletNames()
		if err != nil {
			panic(fmt.Sprintf("failed to get wallet profiles: %v", err))
		}

		options := append(profiles, "Create New Profile", "Exit")

		selection := ""
		prompt := &survey.Select{
			Message: promptStyle.Render("Choose a profile to continue:"),
			Options: options,
		}
		survey.AskOne(prompt, &selection)

		switch selection {
		case "Create New Profile":
			handleCreateProfile(db)
			// Loop again to show the new profile in the list.
			continue
		case "Exit":
			return nil, "", fmt.Errorf("user exited")
		default: // A profile was selected
			wallet, err := db.GetWallet(selection)
			if err != nil {
				panic(fmt.Sprintf("failed to get wallet for profile '%s': %v", selection, err))
			}
			if err := db.SetActiveProfile(selection); err != nil {
				panic(fmt.Sprintf("failed to activate profile '%s': %v", selection, err))
			}
			return wallet.Key(), selection, nil
		}
	}
}

func runInteractive(signer solana.PrivateKey, profileName string) {
	client, err := sentinel.NewClient(GetRpcEndpoint(), signer)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Failed to create Solana client: %v", err)))
		return
	}

	fmt.Printf("\n---\n")
	fmt.Println(titleStyle.Render(fmt.Sprintf("Operating with profile: %s", profileName)))
	fmt.Println(promptStyle.Render(fmt.Sprintf("Address: %s", signer.PublicKey())))
	fmt.Printf("---\n\n")

	fmt.Println(promptStyle.Render("Checking registry status..."))
	initialized, err := client.IsRegistryInitialized()
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Could not check registry status: %v", err)))
		return
	}

	var menuOptions []string
	if !initialized {
		menuOptions = []string{
			"Initialize Registry",
			"Wallet Management",
			"Switch Profile",
		}
	} else {
		registryState, err := client.FetchRegistry()
		if err != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("Could not fetch registry state: %v", err)))
			return
		}
		menuOptions = []string{
			"Register Agent",
			"Update Agent",
			"Agent Dashboard",
			"Create Challenge",
			"Respond to Challenges",
			"Expire Stale Challenges",
			"Close Resolved Challenges",
			"Leaderboard",
			"Audit Log",
			"Wallet Management",
			"Switch Profile",
		}
		if registryState.Admin.Equals(signer.PublicKey()) {
			admin := []string{"Verify Agent", "Adjust Reputation", "Set Collection"}
			menuOptions = append(admin, menuOptions...)
		}
	}

	menu := &survey.Select{
		Message:  promptStyle.Render("Choose an action:"),
		Options:  menuOptions,
		Help:     "Use the arrow keys to navigate, and press Enter to select.",
		PageSize: len(menuOptions),
	}

	var choice string
	err = survey.AskOne(menu, &choice)
	if err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		return
	}

	switch choice {
	// Admin actions
	case "Initialize Registry":
		handleInitializeRegistry(client)
	case "Verify Agent":
		handleVerifyAgent(client)
	case "Adjust Reputation":
		handleAdjustReputation(client)
	case "Set Collection":
		handleSetCollection(client)
	// Agent actions
	case "Register Agent":
		handleRegisterAgent(client)
	case "Update Agent":
		handleUpdateAgent(client, signer)
	case "Agent Dashboard":
		handleAgentDashboard(client, signer)
	// Challenge actions
	case "Create Challenge":
		handleCreateChallenge(client)
	case "Respond to Challenges":
		handleRespondToChallenges(client, signer)
	case "Expire Stale Challenges":
		handleExpireChallenges(client)
	case "Close Resolved Challenges":
		handleCloseChallenges(client, signer)
	// Registry views
	case "Leaderboard":
		handleLeaderboard(client)
	case "Audit Log":
		handleAuditLog(client, signer)
	// Common actions
	case "Wallet Management":
		handleWalletManagement(signer)
	case "Switch Profile":
		return // Exit this interactive loop to go back to profile selection
	}
	fmt.Println()
}

func runInit(db *storage.JSONDB) {
	fmt.Println(titleStyle.Render("🚀 Welcome to Sentinel! Let's get you set up."))
	fmt.Println(promptStyle.Render("   Creating new default 'agent' wallet..."))
	newWallet := solana.NewWallet()
	err := db.SaveWallet("agent", newWallet.PrivateKey)
	if err != nil {
		panic(fmt.Sprintf("❌ Failed to save new agent wallet: %v", err))
	}
	fmt.Println(titleStyle.Render("\n✅ Initialization Complete!"))
	fmt.Println(promptStyle.Render("   Your agent wallet address:"), newWallet.PublicKey().String())
	fmt.Println(promptStyle.Render("\nPress Enter to continue..."))
	fmt.Scanln()
}

func handleCreateProfile(db *storage.JSONDB) {
	name := ""
	namePrompt := &survey.Input{Message: "Enter a name for the new profile:"}
	survey.AskOne(namePrompt, &name, survey.WithValidator(survey.Required))

	fmt.Println(promptStyle.Render(fmt.Sprintf("\nCreating new '%s' wallet...", name)))
	newWallet := solana.NewWallet()
	err := db.SaveWallet(name, newWallet.PrivateKey)
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("❌ Failed to save new wallet: %v", err)))
		return
	}
	fmt.Println(titleStyle.Render("\n✅ Profile Created!"))
	fmt.Println(promptStyle.Render("   Wallet address:"), newWallet.PublicKey().String())
	fmt.Println(promptStyle.Render("\nPress Enter to continue..."))
	fmt.Scanln()
}

func isInitialized(db *storage.JSONDB) bool {
	names, err := db.GetAllWalletNames()
	return err == nil && len(names) > 0
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
