package config

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
	// Backend is "postgres" or "memory"; the memory backend is volatile and meant for local runs.
	Backend string
	// SeedFile is an optional JSON file of users and memes loaded into the memory backend at startup
	SeedFile string
}

// GetConnectionString returns the PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return c.URL
}

// IsMemory reports whether persistence stays in process memory
func (c *DatabaseConfig) IsMemory() bool {
	return c.Backend == BackendMemory
}
