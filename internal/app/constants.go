package app

import "time"

// Roster size limits for one match.
const (
	MinParticipants = 2
	MaxParticipants = 6
)

// Rules are the per-match thresholds and phase deadlines.
type Rules struct {
	VictoryPoints  int
	DiscardLimit   int
	LongestRoadMin int
	ArmyThreshold  int

	SetupTime   time.Duration
	RollTime    time.Duration
	TurnTime    time.Duration
	DiscardTime time.Duration
	RobberTime  time.Duration
}

// DefaultRules returns the standard game rules.
func DefaultRules() Rules {
	return Rules{
		VictoryPoints:  10,
		DiscardLimit:   7,
		LongestRoadMin: 5,
		ArmyThreshold:  2,
		SetupTime:      60 * time.Second,
		RollTime:       20 * time.Second,
		TurnTime:       90 * time.Second,
		DiscardTime:    30 * time.Second,
		RobberTime:     30 * time.Second,
	}
}

func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.VictoryPoints <= 0 {
		r.VictoryPoints = d.VictoryPoints
	}
	if r.DiscardLimit <= 0 {
		r.DiscardLimit = d.DiscardLimit
	}
	if r.LongestRoadMin <= 0 {
		r.LongestRoadMin = d.LongestRoadMin
	}
	if r.ArmyThreshold <= 0 {
		r.ArmyThreshold = d.ArmyThreshold
	}
	r.SetupTime = orDefault(r.SetupTime, d.SetupTime)
	r.RollTime = orDefault(r.RollTime, d.RollTime)
	r.TurnTime = orDefault(r.TurnTime, d.TurnTime)
	r.DiscardTime = orDefault(r.DiscardTime, d.DiscardTime)
	r.RobberTime = orDefault(r.RobberTime, d.RobberTime)
	return r
}

func orDefault(got, def time.Duration) time.Duration {
	if got <= 0 {
		return def
	}
	return got
}
