package planning

// CrisisArea flags a region for guaranteed selection during a window of
// time steps. When a region carries requirements the crisis multiplier
// boosts their achievable score; on its own it is worth Score.
type CrisisArea struct {
	FullRegionNumber float64
	Score            float64
	Multiplier       float64

	// Active window, inclusive. EndIndex < 0 means open-ended.
	StartIndex int
	EndIndex   int
}

// IsActive reports whether the crisis applies at timeIndex.
func (c *CrisisArea) IsActive(timeIndex int) bool {
	if c == nil {
		return false
	}
	if timeIndex < c.StartIndex {
		return false
	}
	return c.EndIndex < 0 || timeIndex <= c.EndIndex
}

// ScoreMultiplier returns the boost, treating an unset multiplier as 1.
func (c *CrisisArea) ScoreMultiplier() float64 {
	if c == nil || c.Multiplier <= 0 {
		return 1
	}
	return c.Multiplier
}
