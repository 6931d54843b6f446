// Package storage keeps the CLI's local state: named wallet profiles in
// a JSON file and a sqlite cache of agents observed on-chain.
package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

const (
	walletFileName = "wallets.json"
	configDirName  = "config"
)

// walletFile is the on-disk layout: profile name to base64 private key.
type walletFile struct {
	Profiles map[string]string `json:"profiles"`
	Active   string            `json:"active,omitempty"`
}

// JSONDB provides a connection to the JSON-based wallet storage.
type JSONDB struct {
	path string
}

// Connect opens and initializes the JSON-based wallet storage.
func Connect() (*JSONDB, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("could not get db path: %w", err)
	}
	return ConnectAt(dbPath)
}

// ConnectAt opens the wallet storage at an explicit path.
func ConnectAt(dbPath string) (*JSONDB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	db := &JSONDB{path: dbPath}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		if err := db.write(walletFile{Profiles: map[string]string{}}); err != nil {
			return nil, fmt.Errorf("could not create wallet file: %w", err)
		}
	}

	return db, nil
}

// GetWallet retrieves the private key stored under a profile name.
func (db *JSONDB) GetWallet(name string) (*Wallet, error) {
	file, err := db.read()
	if err != nil {
		return nil, err
	}

	encoded, ok := file.Profiles[name]
	if !ok || encoded == "" {
		return nil, fmt.Errorf("no wallet found for profile %q", name)
	}

	privateKeyBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("could not decode private key for %q: %w", name, err)
	}
	if len(privateKeyBytes) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("invalid private key length in wallet file: expected %d, got %d",
			solana.PrivateKeyLength, len(privateKeyBytes))
	}

	return &Wallet{
		Name:       name,
		PrivateKey: privateKeyBytes,
	}, nil
}

// SaveWallet stores a private key under a profile name, overwriting any
// existing key for that profile.
func (db *JSONDB) SaveWallet(name string, privateKey solana.PrivateKey) error {
	file, err := db.read()
	if err != nil {
		return err
	}

	file.Profiles[name] = base64.StdEncoding.EncodeToString(privateKey[:])
	if file.Active == "" {
		file.Active = name
	}
	return db.write(file)
}

// DeleteWallet removes a profile. Deleting the active profile clears the
// active marker.
func (db *JSONDB) DeleteWallet(name string) error {
	file, err := db.read()
	if err != nil {
		return err
	}

	if _, ok := file.Profiles[name]; !ok {
		return fmt.Errorf("no wallet found for profile %q", name)
	}
	delete(file.Profiles, name)
	if file.Active == name {
		file.Active = ""
	}
	return db.write(file)
}

// GetAllWalletNames returns the stored profile names.
func (db *JSONDB) GetAllWalletNames() ([]string, error) {
	file, err := db.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(file.Profiles))
	for name := range file.Profiles {
		names = append(names, name)
	}
	return names, nil
}

// GetActiveProfile returns the currently selected profile name, or empty
// if none is set.
func (db *JSONDB) GetActiveProfile() (string, error) {
	file, err := db.read()
	if err != nil {
		return "", err
	}
	return file.Active, nil
}

// SetActiveProfile marks a stored profile as the current one.
func (db *JSONDB) SetActiveProfile(name string) error {
	file, err := db.read()
	if err != nil {
		return err
	}
	if _, ok := file.Profiles[name]; !ok {
		return fmt.Errorf("no wallet found for profile %q", name)
	}
	file.Active = name
	return db.write(file)
}

func (db *JSONDB) read() (walletFile, error) {
	var file walletFile

	data, err := os.ReadFile(db.path)
	if err != nil {
		return file, fmt.Errorf("could not read wallet file: %w", err)
	}
	if len(data) == 0 {
		return walletFile{Profiles: map[string]string{}}, nil
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("could not parse wallet file: %w", err)
	}
	if file.Profiles == nil {
		file.Profiles = map[string]string{}
	}
	return file, nil
}

func (db *JSONDB) write(file walletFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("could not marshal wallet data: %w", err)
	}
	if err := os.WriteFile(db.path, data, 0600); err != nil {
		return fmt.Errorf("could not write wallet file: %w", err)
	}
	return nil
}

// getDBPath returns the path for the wallet file relative to the current
// working directory.
func getDBPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("could not get current working directory: %w", err)
	}
	return filepath.Join(cwd, configDirName, walletFileName), nil
}

// Close closes the JSON database connection (for interface compatibility).
func (db *JSONDB) Close() error {
	return nil
}
