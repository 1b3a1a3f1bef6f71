// Copyright 2025 Multisig Orchestrator

package database

// Repositories is a convenience wrapper over all repository types.
type Repositories struct {
	Proposals  *ProposalRepository
	Signatures *SignatureRepository
}

// NewRepositories creates all repositories backed by the given client.
func NewRepositories(client *Client) *Repositories {
	return &Repositories{
		Proposals:  NewProposalRepository(client.DB()),
		Signatures: NewSignatureRepository(client.DB()),
	}
}
