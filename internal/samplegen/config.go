package samplegen

import "time"

// Config holds configuration for a sample class run.
type Config struct {
	BaseURL    string        // Base URL of the service; empty skips the upload
	Students   int           // Number of students to generate
	Classes    int           // Number of classes the students are spread over
	Workers    int           // Concurrent profile fetches
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // .csv or .xlsx file for the generated sheet
	Verbose    bool          // Enable verbose logging
}

// Profile is the performance pattern of a generated student.
type Profile string

const (
	ProfileSteady     Profile = "steady"
	ProfileImproving  Profile = "improving"
	ProfileDeclining  Profile = "declining"
	ProfileStruggling Profile = "struggling"
)

// Student is one generated student and the pattern behind their grades.
type Student struct {
	Name    string
	Class   string
	Profile Profile
}

// Row is one student-semester line of the generated sheet.
type Row struct {
	Student    Student
	Semester   string
	Quiz       float64
	Quarter    float64
	Mock       float64
	Final      float64
	Percentile float64
	Homework   float64
}

// Class is a generated class sheet.
type Class struct {
	Students []Student
	Rows     []Row
}

// ExpectedFlagged lists the students whose pattern must trigger a flag
// under the default thresholds.
func (c *Class) ExpectedFlagged() map[string]bool {
	out := make(map[string]bool)
	for _, s := range c.Students {
		if s.Profile == ProfileDeclining || s.Profile == ProfileStruggling {
			out[s.Name] = true
		}
	}
	return out
}

// Stats holds run statistics.
type Stats struct {
	StudentsGenerated int
	RowsGenerated     int
	RowsImported      int
	RowsAnalyzed      int
	Flagged           int
	ProfilesFetched   int
	ProfilesFailed    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
