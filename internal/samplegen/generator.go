package samplegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/okian/gradelens/internal/adapters/tabular"
	"github.com/okian/gradelens/internal/domain/dataset"
	"github.com/okian/gradelens/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 20
)

// Score ranges per profile.
const (
	steadyBaseMin, steadyBaseRange         = 65.0, 25.0
	improvingBaseMin, improvingBaseRange   = 55.0, 25.0
	decliningBaseMin, decliningBaseRange   = 65.0, 23.0
	strugglingBaseMin, strugglingBaseRange = 35.0, 20.0

	metricJitter     = 5.0
	steadyDrift      = 3.0
	improveMin       = 5.0
	improveRange     = 10.0
	declineMin       = 12.0
	declineRange     = 13.0
	homeworkMin      = 60.0
	homeworkRange    = 40.0
	percentileHigh   = 40.0
	percentileMid    = 30.0
	percentileSpread = 50.0
	percentileLowMax = 15.0
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func between(lo, span float64) float64 {
	return lo + getRandomFloat()*span
}

func jitter(span float64) float64 {
	return (getRandomFloat()*2 - 1) * span
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// pickProfile draws 40% steady, 25% improving, 20% declining, 15% struggling.
func pickProfile() Profile {
	n, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))
	switch v := n.Int64(); {
	case v < 8:
		return ProfileSteady
	case v < 13:
		return ProfileImproving
	case v < 17:
		return ProfileDeclining
	default:
		return ProfileStruggling
	}
}

// Generate builds a class of students with two semesters of grades each.
func Generate(ctx context.Context, config *Config, stats *Stats) (*Class, error) {
	if config.Students <= 0 {
		return nil, fmt.Errorf("students must be positive, got %d", config.Students)
	}
	classes := config.Classes
	if classes <= 0 {
		classes = 1
	}
	logger.Get().Info(ctx, "generating class", logger.Int("students", config.Students), logger.Int("classes", classes))

	c := &Class{
		Students: make([]Student, 0, config.Students),
		Rows:     make([]Row, 0, config.Students*2),
	}
	for i := 0; i < config.Students; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		s := Student{
			Name:    fmt.Sprintf("תלמיד %03d", i+1),
			Class:   fmt.Sprintf("י%d", i%classes+1),
			Profile: pickProfile(),
		}
		first, second := generateRows(s)
		c.Students = append(c.Students, s)
		c.Rows = append(c.Rows, first, second)
	}

	if stats != nil {
		stats.StudentsGenerated = len(c.Students)
		stats.RowsGenerated = len(c.Rows)
	}
	logger.Get().Info(ctx, "generated class", logger.Int("rows", len(c.Rows)))
	return c, nil
}

// generateRows produces both semesters for s following its profile.
func generateRows(s Student) (Row, Row) {
	var base, pct float64
	switch s.Profile {
	case ProfileImproving:
		base, pct = between(improvingBaseMin, improvingBaseRange), between(percentileMid, percentileSpread)
	case ProfileDeclining:
		base, pct = between(decliningBaseMin, decliningBaseRange), between(percentileMid, percentileSpread)
	case ProfileStruggling:
		base, pct = between(strugglingBaseMin, strugglingBaseRange), between(1, percentileLowMax-1)
	default:
		base, pct = between(steadyBaseMin, steadyBaseRange), between(percentileHigh, percentileSpread)
	}

	first := Row{Student: s, Semester: SemesterFirst, Percentile: math.Round(pct), Homework: round1(between(homeworkMin, homeworkRange))}
	second := Row{Student: s, Semester: SemesterSecond, Percentile: math.Round(pct), Homework: round1(between(homeworkMin, homeworkRange))}

	firsts := []*float64{&first.Quiz, &first.Quarter, &first.Mock, &first.Final}
	seconds := []*float64{&second.Quiz, &second.Quarter, &second.Mock, &second.Final}
	for i := range firsts {
		a := clamp(base + jitter(metricJitter))
		var b float64
		switch s.Profile {
		case ProfileImproving:
			b = a + between(improveMin, improveRange)
		case ProfileDeclining:
			b = a - between(declineMin, declineRange)
		case ProfileStruggling:
			b = a + jitter(metricJitter)
		default:
			b = a + jitter(steadyDrift)
		}
		*firsts[i] = round1(a)
		*seconds[i] = round1(clamp(b))
	}
	return first, second
}

// Dataset renders the class with the sheet headers as columns.
func (c *Class) Dataset() dataset.Dataset {
	records := make([]dataset.Record, 0, len(c.Rows))
	for _, r := range c.Rows {
		records = append(records, dataset.Record{
			HeaderStudent:    r.Student.Name,
			HeaderClass:      r.Student.Class,
			HeaderSemester:   r.Semester,
			HeaderQuiz:       r.Quiz,
			HeaderQuarter:    r.Quarter,
			HeaderMock:       r.Mock,
			HeaderFinal:      r.Final,
			HeaderPercentile: r.Percentile,
			HeaderHomework:   r.Homework,
		})
	}
	return dataset.New(Headers, records)
}

// Encode writes the class sheet as CSV, or as a workbook when name ends in .xlsx.
func (c *Class) Encode(w io.Writer, name string) error {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return tabular.WriteXLSX(w, c.Dataset(), Headers...)
	}
	return tabular.WriteCSV(w, c.Dataset(), Headers...)
}
