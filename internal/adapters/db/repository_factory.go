package db

import (
	"memebid-service/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetAllRepositories returns all repositories in a struct for easy dependency injection
func (f *RepositoryFactory) GetAllRepositories() outbound.Repositories {
	return outbound.Repositories{
		Auctions:     NewAuctionRepository(f.conn),
		Bids:         NewBidRepository(f.conn),
		Memes:        NewMemeRepository(f.conn),
		Votes:        NewVoteRepository(f.conn),
		Users:        NewUserRepository(f.conn),
		Competitions: NewCompetitionRepository(f.conn),
	}
}
