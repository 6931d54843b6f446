package registry

import "github.com/gagliardetto/solana-go"

// Initialize creates the global RegistryState singleton at its PDA and
// records the caller as admin. Fails if the registry already exists;
// callers that retry must check for existence first.
func (p *Program) Initialize(admin solana.PublicKey) error {
	return p.ledger.execute(func(ec *execCtx) error {
		addr, bump, err := GetRegistryPDA()
		if err != nil {
			return err
		}

		registry := RegistryState{
			Admin:                 admin,
			TotalAgents:           0,
			Collection:            solana.PublicKey{},
			CollectionInitialized: false,
			Bump:                  bump,
		}
		data, err := MarshalAccount(registry)
		if err != nil {
			return err
		}
		return ec.create(addr, admin, data)
	})
}

// CreateCollection records the identity NFT collection address. Admin
// only, at most once; the collection itself is managed off-chain.
func (p *Program) CreateCollection(admin, collection solana.PublicKey) error {
	return p.ledger.execute(func(ec *execCtx) error {
		registry, registryAddr, err := loadRegistry(ec)
		if err != nil {
			return err
		}
		if !registry.Admin.Equals(admin) {
			return ErrUnauthorized
		}
		if registry.CollectionInitialized {
			return ErrCollectionAlreadyInitialized
		}

		registry.Collection = collection
		registry.CollectionInitialized = true
		return storeRegistry(ec, registryAddr, registry)
	})
}
