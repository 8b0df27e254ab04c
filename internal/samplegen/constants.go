package samplegen

// Semester labels written into generated sheets.
const (
	SemesterFirst  = "א"
	SemesterSecond = "ב"
)

// Thresholds the run analyzes with; generated profiles are built around them.
const (
	LowPercentile = 20
	DropThreshold = 10
)

// Sheet headers, in the Hebrew a school export would use.
const (
	HeaderStudent    = "שם תלמיד"
	HeaderClass      = "כיתה"
	HeaderSemester   = "מחצית"
	HeaderQuiz       = "ממוצע בחנים"
	HeaderQuarter    = "מבחן רבעון"
	HeaderMock       = "מתכונת"
	HeaderFinal      = "מבחן מחצית"
	HeaderPercentile = "אחוזון ארצי"
	HeaderHomework   = "הגשת שיעורי בית"
)

// Headers is the column order of generated sheets.
var Headers = []string{
	HeaderStudent, HeaderClass, HeaderSemester,
	HeaderQuiz, HeaderQuarter, HeaderMock, HeaderFinal,
	HeaderPercentile, HeaderHomework,
}

// HTTP status code constants.
const (
	StatusOK      = 200
	StatusCreated = 201
)

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100
