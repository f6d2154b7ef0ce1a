package seed

import "time"

// Defaults applied to zero config values.
const (
	defaultScopes        = 3
	defaultMembers       = 12
	defaultTopN          = 10
	defaultWorkers       = 8
	defaultTimeout       = 10 * time.Second
	defaultSettleTimeout = 30 * time.Second
)

// Generator tuning.
const (
	maxDueOffsetDays   = 30
	lateChancePercent  = 25
	noDueChancePercent = 10
	unassignedPercent  = 5
	unratedPercent     = 10
	maxRating          = 5
)

// Verification tolerance for recomputed rates and scores.
const scoreTolerance = 1e-6

const (
	pollInterval    = 50 * time.Millisecond
	outputFilePerms = 0o600
)

var (
	firstNames = []string{"Ada", "Bo", "Chen", "Dara", "Eli", "Femi", "Gia", "Hana", "Ivo", "Jun", "Kai", "Lea"}
	lastNames  = []string{"Ng", "Okafor", "Silva", "Meyer", "Tanaka", "Rossi", "Haddad", "Kowal"}
	taskVerbs  = []string{"Draft", "Review", "Ship", "Plan", "Audit", "Launch"}
	taskThings = []string{"campaign brief", "pipeline report", "Q3 roadmap", "pricing page", "onboarding flow", "partner deck"}
	scopeKinds = []string{"team", "project", "collaboration"}
)
