package planning

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/signalsfoundry/mural/internal/errs"
)

// RegionArea is one region line of a deck record.
type RegionArea struct {
	Region    int
	SubRegion int
	Area      float64
}

// DeckRecord is one parsed target record.
type DeckRecord struct {
	Line int

	TargetID       string
	Status         string
	Scenario       string
	DateString     string
	DurationDays   int
	MissionNumber  int
	Qualities      []int // one per sensor, 0 requests nothing
	PriorityNumber int
	CountryCode    string
	PointTarget    bool
	Timeliness     int

	Regions []RegionArea
}

// ReadDeckRecords parses a whitespace-delimited target deck. Each record
// is a header line
//
//	targetID status scenario MMDD duration mission q1..qN priority country A|P timeliness regions
//
// followed by one "region subregion area" line per region. Blank lines and
// lines starting with '#' are ignored. Every malformed line is reported in
// the returned error.
func ReadDeckRecords(r io.Reader, numberOfSensors int) ([]DeckRecord, error) {
	c := errs.NewCollector("TargetDeck", "ReadDeckRecords")
	sc := bufio.NewScanner(r)
	headerFields := 6 + numberOfSensors + 5

	var (
		records []DeckRecord
		current *DeckRecord
		pending int
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if pending > 0 {
			ra, err := parseRegionLine(fields)
			if err != nil {
				c.Addf("line %d: %v", lineNo, err)
			} else {
				current.Regions = append(current.Regions, ra)
			}
			pending--
			if pending == 0 {
				records = append(records, *current)
				current = nil
			}
			continue
		}

		if len(fields) != headerFields {
			c.Addf("line %d: target header has %d fields, want %d", lineNo, len(fields), headerFields)
			continue
		}
		rec, n, err := parseHeader(fields, numberOfSensors)
		if err != nil {
			c.Addf("line %d: %v", lineNo, err)
			continue
		}
		rec.Line = lineNo
		if n == 0 {
			records = append(records, rec)
			continue
		}
		current, pending = &rec, n
	}
	if err := sc.Err(); err != nil {
		c.Addf("read: %v", err)
	}
	if pending > 0 {
		c.Addf("line %d: target %s is missing %d region lines", lineNo, current.TargetID, pending)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

type fieldParser struct {
	fields []string
	pos    int
	err    error
}

func (p *fieldParser) next() string {
	s := p.fields[p.pos]
	p.pos++
	return s
}

func (p *fieldParser) integer(name string) int {
	s := p.next()
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = &fieldError{name: name, value: s}
	}
	return v
}

type fieldError struct {
	name  string
	value string
}

func (e *fieldError) Error() string { return "invalid " + e.name + " " + strconv.Quote(e.value) }

func parseHeader(fields []string, numberOfSensors int) (DeckRecord, int, error) {
	p := &fieldParser{fields: fields}
	rec := DeckRecord{
		TargetID:   p.next(),
		Status:     p.next(),
		Scenario:   p.next(),
		DateString: p.next(),
	}
	rec.DurationDays = p.integer("duration")
	rec.MissionNumber = p.integer("mission number")
	rec.Qualities = make([]int, numberOfSensors)
	for i := range rec.Qualities {
		rec.Qualities[i] = p.integer("quality")
	}
	rec.PriorityNumber = p.integer("priority number")
	rec.CountryCode = p.next()
	switch kind := p.next(); strings.ToUpper(kind) {
	case "P":
		rec.PointTarget = true
	case "A":
	default:
		if p.err == nil {
			p.err = &fieldError{name: "target type", value: kind}
		}
	}
	rec.Timeliness = p.integer("timeliness")
	n := p.integer("number of regions")
	if p.err != nil {
		return DeckRecord{}, 0, p.err
	}
	if n < 0 {
		return DeckRecord{}, 0, &fieldError{name: "number of regions", value: strconv.Itoa(n)}
	}
	return rec, n, nil
}

func parseRegionLine(fields []string) (RegionArea, error) {
	if len(fields) != 3 {
		return RegionArea{}, &fieldError{name: "region line", value: strings.Join(fields, " ")}
	}
	region, err := strconv.Atoi(fields[0])
	if err != nil {
		return RegionArea{}, &fieldError{name: "region", value: fields[0]}
	}
	sub, err := strconv.Atoi(fields[1])
	if err != nil {
		return RegionArea{}, &fieldError{name: "subregion", value: fields[1]}
	}
	area, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || area < 0 {
		return RegionArea{}, &fieldError{name: "area", value: fields[2]}
	}
	return RegionArea{Region: region, SubRegion: sub, Area: area}, nil
}
