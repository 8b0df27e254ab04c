// Package model contains the canonical vocabulary shared by every layer:
// field names, the semester enumeration and user roles.
package model

// Canonical field names.
const (
	FieldStudentName        = "student_name"
	FieldClassName          = "class_name"
	FieldSemester           = "semester"
	FieldQuizAvg            = "quiz_avg"
	FieldQuarterExam        = "quarter_exam"
	FieldMidtermMock        = "midterm_mock"
	FieldHalfSemesterFinal  = "half_semester_final"
	FieldNationalPercentile = "national_percentile"
	FieldHomeworkRate       = "homework_rate"
	FieldTeacherComment     = "teacher_comment"
	FieldCoordinatorComment = "coordinator_comment"
)

// Derived field names appended by the analytics pipeline.
const (
	FieldOverallScore = "overall_score"
	FieldFlagged      = "flagged"
	DeltaPrefix       = "delta_"
)

// DeltaField returns the derived column name holding the trend delta of field.
func DeltaField(field string) string {
	return DeltaPrefix + field
}
