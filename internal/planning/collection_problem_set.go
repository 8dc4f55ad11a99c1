package planning

// SensorCollection is the part of a CollectionProblemSet served by one sensor.
type SensorCollection struct {
	SensorIndex  int
	QualityLevel int
	QualityIndex int
	Score        float64
}

// CollectionProblemSet is one alternative way of satisfying a Target. The
// alternatives of a target are mutually exclusive; only the best
// achievable one counts.
type CollectionProblemSet struct {
	number        int
	mode          string
	priorityIndex int
	subPriority   int
	collections   []SensorCollection
}

// NewCollectionProblemSet builds an empty alternative.
func NewCollectionProblemSet(number int, mode string, priorityIndex, subPriority int) *CollectionProblemSet {
	return &CollectionProblemSet{number: number, mode: mode, priorityIndex: priorityIndex, subPriority: subPriority}
}

func (c *CollectionProblemSet) Number() int                     { return c.number }
func (c *CollectionProblemSet) Mode() string                    { return c.mode }
func (c *CollectionProblemSet) PriorityIndex() int              { return c.priorityIndex }
func (c *CollectionProblemSet) SubPriority() int                { return c.subPriority }
func (c *CollectionProblemSet) Collections() []SensorCollection { return c.collections }

// AddSensorCollection appends the sensor's part of this alternative.
func (c *CollectionProblemSet) AddSensorCollection(sc SensorCollection) {
	c.collections = append(c.collections, sc)
}

// PotentialScore is the best score any sensor of the set could earn.
func (c *CollectionProblemSet) PotentialScore() float64 {
	best := 0.0
	for _, sc := range c.collections {
		if sc.Score > best {
			best = sc.Score
		}
	}
	return best
}

// AchievableScore returns the best score among sensor collections whose
// required quality has been reached. achieved reports the achieved quality
// per sensor index.
func (c *CollectionProblemSet) AchievableScore(sensors []Sensor, achieved func(sensorIndex int) (int, bool)) float64 {
	best := 0.0
	for _, sc := range c.collections {
		q, ok := achieved(sc.SensorIndex)
		if !ok || sc.SensorIndex < 0 || sc.SensorIndex >= len(sensors) {
			continue
		}
		s := sensors[sc.SensorIndex]
		if q != sc.QualityIndex && !s.BetterQuality(q, sc.QualityIndex) {
			continue
		}
		if sc.Score > best {
			best = sc.Score
		}
	}
	return best
}
