package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Default number of questions per test
	DefaultTestSize int
	// Number of recent tests shown by /stats
	RecentTests int
	// Maximum number of review words listed by /review
	ReviewLimit int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultTestSize: 10,
		RecentTests:     5,
		ReviewLimit:     10,
	}
}
