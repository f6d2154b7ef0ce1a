package seed

import "time"

// Config holds configuration for a seed run.
type Config struct {
	BaseURL              string        // Base URL of the service
	Scopes               int           // Number of scopes to create
	Members              int           // Roster size per scope
	TasksPerMember       int           // Upper bound of tasks per member
	SubmissionsPerMember int           // Upper bound of submissions per member
	TopN                 int           // Leaderboard entries to fetch per scope
	Workers              int           // Concurrent HTTP requests
	Timeout              time.Duration // HTTP request timeout
	SettleTimeout        time.Duration // How long to wait for rankings to appear
	Seed                 uint64        // Seed of the data generator
	OutputFile           string        // Optional JSON dump of the generated data
}

// Stats holds run statistics.
type Stats struct {
	Scopes          int
	Members         int
	Tasks           int
	Submissions     int
	Requests        int64
	Failed          int64
	MembersVerified int
	StartTime       time.Time
	Duration        time.Duration
}

func (c *Config) withDefaults() {
	if c.Scopes <= 0 {
		c.Scopes = defaultScopes
	}
	if c.Members <= 0 {
		c.Members = defaultMembers
	}
	if c.TasksPerMember < 0 {
		c.TasksPerMember = 0
	}
	if c.SubmissionsPerMember < 0 {
		c.SubmissionsPerMember = 0
	}
	if c.TopN <= 0 {
		c.TopN = defaultTopN
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = defaultSettleTimeout
	}
}
