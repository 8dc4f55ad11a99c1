package planning

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/model"
)

const sampleDeck = `# id status scenario date dur mission q_eo q_hsi priority country type timeliness regions
T100 A MONO 0110 10 1 2 0 250 AA A 0 2
12 3 30.0
12 4 10.0
T100 A STEREO 0110 10 1 3 0 150 AA A 0 1
12 3 5.0

P200 A MONO 0101 400 2 1 8 300 BB P 1 2
40 0 1.0
41 0 1.0
X300 I MONO 0701 1 1 1 0 200 AA A 0 1
50 0 3.0
`

func TestReadDeckRecords(t *testing.T) {
	records, err := ReadDeckRecords(strings.NewReader(sampleDeck), 2)
	if err != nil {
		t.Fatalf("ReadDeckRecords: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want 4", len(records))
	}
	first := records[0]
	if first.TargetID != "T100" || first.MissionNumber != 1 || first.PriorityNumber != 250 || len(first.Regions) != 2 {
		t.Fatalf("first record = %+v", first)
	}
	if first.Regions[1] != (RegionArea{Region: 12, SubRegion: 4, Area: 10}) {
		t.Fatalf("first record region[1] = %+v", first.Regions[1])
	}
	if !records[2].PointTarget || records[2].Qualities[1] != 8 {
		t.Fatalf("point record = %+v", records[2])
	}
	if records[0].Line != 2 {
		t.Fatalf("first record line = %d, want 2", records[0].Line)
	}
}

func TestReadDeckRecordsReportsEveryBadLine(t *testing.T) {
	bad := "T1 A MONO 0110 10 one 1 0 250 AA A 0 1\n" +
		"T2 A MONO 0110 10 1 1 0 250 AA Q 0 1\n" +
		"1 0 1.0\n" +
		"T3 A MONO 0110 10 1 1 0 250 AA A 0 1\n" +
		"1 0 lots\n"
	_, err := ReadDeckRecords(strings.NewReader(bad), 2)
	if !errors.Is(err, errs.ErrInputData) {
		t.Fatalf("err = %v, want ErrInputData", err)
	}
	var ie *errs.InputError
	if !errors.As(err, &ie) {
		t.Fatalf("err type = %T", err)
	}
	if len(ie.Problems) != 4 {
		t.Fatalf("problems = %q, want 4", ie.Problems)
	}
}

func testEnvironment(t *testing.T) *Environment {
	t.Helper()
	eo, err := NewSensorModel(0, "EO", SensorVisible, [][]float64{{1, 1, 1}, {1, 1, 1}}, nil, nil)
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}
	hsi, err := NewSensorModel(1, "HSI", SensorHyperspectral, [][]float64{{1, 1}, {1, 1}}, nil, []float64{5, 10})
	if err != nil {
		t.Fatalf("NewSensorModel: %v", err)
	}
	return &Environment{
		Sensors:            []Sensor{eo, hsi},
		NumberOfMissions:   2,
		NumberOfPriorities: 5,
		NumberOfDecks:      1,
		NumberOfResources:  2,
		Scoring:            testScoring(),
		Effectivity: &Effectivity{
			Policy: MonthAndDay,
			Start:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
		},
	}
}

func loadSampleDeck(t *testing.T) (*TargetDeck, *RequirementMap) {
	t.Helper()
	env := testEnvironment(t)
	records, err := ReadDeckRecords(strings.NewReader(sampleDeck), len(env.Sensors))
	if err != nil {
		t.Fatalf("ReadDeckRecords: %v", err)
	}
	deck, err := NewTargetDeck(env, DeckSettings{Index: 0, Name: "primary"})
	if err != nil {
		t.Fatalf("NewTargetDeck: %v", err)
	}
	m := NewRequirementMap(env.Sensors)
	if err := deck.RetrieveTargetsAndBuildRequirements(context.Background(), records, m); err != nil {
		t.Fatalf("RetrieveTargetsAndBuildRequirements: %v", err)
	}
	return deck, m
}

func TestRetrieveTargetsGroupsConsecutiveRecords(t *testing.T) {
	deck, _ := loadSampleDeck(t)

	targets := deck.Targets()
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}
	if deck.NumberOfSkipped() != 1 {
		t.Fatalf("skipped = %d, want 1", deck.NumberOfSkipped())
	}
	t100 := targets[0]
	if len(t100.ProblemSets()) != 2 {
		t.Fatalf("T100 problem sets = %d, want 2", len(t100.ProblemSets()))
	}
	if len(t100.Regions()) != 2 || t100.TotalArea() != 45 {
		t.Fatalf("T100 regions = %d area %v, want 2 and 45", len(t100.Regions()), t100.TotalArea())
	}
	if t100.ProblemSets()[1].Mode() != "STEREO" {
		t.Fatalf("second CPS mode = %q, want STEREO", t100.ProblemSets()[1].Mode())
	}
}

func TestSkippedRecordEndsTargetRun(t *testing.T) {
	const deckText = `T100 A MONO 0110 10 1 2 0 250 AA A 0 1
12 3 30.0
X400 A MONO 0701 1 1 2 0 250 AA A 0 1
12 3 1.0
T100 A STEREO 0110 10 1 3 0 150 AA A 0 1
12 3 5.0
Q500 A MONO 0110 10 1 0 0 250 AA A 0 1
12 3 1.0
T100 A MONO 0110 10 1 2 0 250 AA A 0 1
12 3 2.0
`
	env := testEnvironment(t)
	records, err := ReadDeckRecords(strings.NewReader(deckText), len(env.Sensors))
	if err != nil {
		t.Fatalf("ReadDeckRecords: %v", err)
	}
	deck, err := NewTargetDeck(env, DeckSettings{Index: 0, Name: "primary"})
	if err != nil {
		t.Fatalf("NewTargetDeck: %v", err)
	}
	if err := deck.RetrieveTargetsAndBuildRequirements(context.Background(), records, NewRequirementMap(env.Sensors)); err != nil {
		t.Fatalf("RetrieveTargetsAndBuildRequirements: %v", err)
	}
	if deck.NumberOfSkipped() != 2 {
		t.Fatalf("skipped = %d, want 2", deck.NumberOfSkipped())
	}
	targets := deck.Targets()
	if len(targets) != 3 {
		t.Fatalf("targets = %d, want 3", len(targets))
	}
	for i, tg := range targets {
		if tg.ID() != "T100" || len(tg.ProblemSets()) != 1 {
			t.Fatalf("target %d = %s with %d problem sets, want T100 with 1", i, tg.ID(), len(tg.ProblemSets()))
		}
	}
}

func TestRetrieveTargetsBuildsRequirements(t *testing.T) {
	_, m := loadSampleDeck(t)
	f := testScoring()

	// T100 first record: EO quality 2 (index 1), priority 250, region 12.03
	// holds 30 of 40 nmi^2.
	list, ok := m.LookupRequirementList(model.FullRegionNumber(12, 3), 0, 0)
	if !ok || len(list) != 2 {
		t.Fatalf("12.03 EO bucket = %d requirements, want 2", len(list))
	}
	req := list[0]
	if req.QualityIndex() != 1 || req.PriorityIndex() != 1 || req.SubPriorityLevel() != 50 {
		t.Fatalf("requirement = q%d p%d sub%d, want q1 p1 sub50", req.QualityIndex(), req.PriorityIndex(), req.SubPriorityLevel())
	}
	want := f.CalculateSensorScore("AA", 0, 250, false, false, 40) * 30 / 40
	if !approxEqual(req.Score(), want) || req.Area() != 30 {
		t.Fatalf("requirement score %v area %v, want %v and 30", req.Score(), req.Area(), want)
	}
	if req.NumberOfResources() != 2 {
		t.Fatalf("resources = %d, want 2", req.NumberOfResources())
	}

	// P200 is a point target seen by both sensors; HSI GSD 8 falls in bin 1.
	hsi, ok := m.LookupRequirementList(40, 0, 1)
	if !ok || len(hsi) != 1 {
		t.Fatalf("40.00 HSI bucket missing")
	}
	if hsi[0].NumberOfPoints() != 1 || hsi[0].QualityIndex() != 1 || hsi[0].MissionIndex() != 1 {
		t.Fatalf("point requirement = %d points q%d m%d", hsi[0].NumberOfPoints(), hsi[0].QualityIndex(), hsi[0].MissionIndex())
	}
	if got := len(m.TargetRegions(model.FullRegionNumber(12, 3))); got != 1 {
		t.Fatalf("target regions at 12.03 = %d, want 1", got)
	}
}

func TestBestCollectionProblemSetFollowsAchievedQuality(t *testing.T) {
	deck, m := loadSampleDeck(t)
	env := testEnvironment(t)
	t100 := deck.Targets()[0]

	best := t100.DetermineBestCollectionProblemSet(env.Sensors)
	if best.Number() != 2 {
		t.Fatalf("initial best CPS = %d, want 2 (highest potential)", best.Number())
	}
	if t100.BestAchievableScore() != 0 {
		t.Fatalf("score before collection = %v, want 0", t100.BestAchievableScore())
	}

	// Quality index 1 reaches CPS 1 (quality 2) but not CPS 2 (quality 3).
	for _, full := range []float64{model.FullRegionNumber(12, 3), model.FullRegionNumber(12, 4)} {
		if err := m.SetHighestQuality(full, 0, 1, 0); err != nil {
			t.Fatalf("SetHighestQuality: %v", err)
		}
	}
	best = t100.DetermineBestCollectionProblemSet(env.Sensors)
	if best.Number() != 1 || t100.BestAchievableScore() <= 0 {
		t.Fatalf("best CPS = %d score %v, want 1 with positive score", best.Number(), t100.BestAchievableScore())
	}

	t100.ResetAchievement()
	if t100.BestAchievableScore() != 0 {
		t.Fatalf("reset did not clear score")
	}
	deck.DestroyTargetDeck()
	if len(deck.Targets()) != 0 {
		t.Fatalf("DestroyTargetDeck left targets")
	}
}

func TestRetrieveTargetsCollectsBadRecords(t *testing.T) {
	env := testEnvironment(t)
	deck, err := NewTargetDeck(env, DeckSettings{Index: 0, Name: "bad"})
	if err != nil {
		t.Fatalf("NewTargetDeck: %v", err)
	}
	records := []DeckRecord{
		{Line: 1, TargetID: "A", Status: "A", DateString: "0110", DurationDays: 5, MissionNumber: 9, Qualities: []int{1, 0}},
		{Line: 2, TargetID: "B", Status: "A", DateString: "1399", DurationDays: 5, MissionNumber: 1, Qualities: []int{1, 0}},
	}
	err = deck.RetrieveTargetsAndBuildRequirements(context.Background(), records, NewRequirementMap(env.Sensors))
	var ie *errs.InputError
	if !errors.As(err, &ie) || len(ie.Problems) != 2 {
		t.Fatalf("err = %v, want two problems", err)
	}
	if len(ie.Trail) == 0 {
		t.Fatalf("error has no method trail")
	}
}
