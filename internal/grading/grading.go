// Package grading holds the pure result-computation core: the letter
// grade classifier, the per-subject evaluator, and the aggregate fold.
// Nothing here touches the database or returns errors; reference
// resolution and persistence live in the service layer.
package grading

import (
	"math"

	"github.com/saral-edu/institute-api/internal/models"
)

// Classify maps a percentage to its letter grade tier. Thresholds are
// inclusive lower bounds checked highest-first. The function is total:
// out-of-range inputs fall through the same bounds (-5 is F, 105 is A+).
func Classify(percentage float64) models.Grade {
	switch {
	case percentage >= 90:
		return models.GradeAPlus
	case percentage >= 80:
		return models.GradeA
	case percentage >= 70:
		return models.GradeBPlus
	case percentage >= 60:
		return models.GradeB
	case percentage >= 50:
		return models.GradeC
	case percentage >= 40:
		return models.GradeD
	default:
		return models.GradeF
	}
}

// RawMarks is the caller-supplied input for one subject. Pointers model
// absent fields: nil coerces to zero rather than failing, so a partially
// entered marksheet still produces a result.
type RawMarks struct {
	MarksObtained  *float64
	PracticalMarks *float64
}

// ToNonNegative coerces a raw mark to a usable number. Absent, NaN,
// infinite and negative values all become 0.
func ToNonNegative(v *float64) float64 {
	if v == nil {
		return 0
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Evaluate computes one subject's outcome from the catalog record and the
// raw input marks. Thresholds always come from the catalog record, never
// from the caller. The subject-level percentage is left unrounded; it is
// only used for grade classification.
func Evaluate(subject models.Subject, input RawMarks) models.SubjectResult {
	marksObtained := ToNonNegative(input.MarksObtained)
	practicalMarks := ToNonNegative(input.PracticalMarks)

	obtainedTotal := marksObtained + practicalMarks
	subjectMax := subject.MaxMarks + subject.PracticalMarks

	var percentage float64
	if subjectMax > 0 {
		percentage = obtainedTotal / subjectMax * 100
	}

	status := models.SubjectStatusFail
	if obtainedTotal >= subject.MinMarks {
		status = models.SubjectStatusPass
	}

	return models.SubjectResult{
		SubjectID:         subject.ID,
		SubjectName:       subject.Name,
		MaxMarks:          subject.MaxMarks,
		MinMarks:          subject.MinMarks,
		MaxPracticalMarks: subject.PracticalMarks,
		MarksObtained:     marksObtained,
		PracticalMarks:    practicalMarks,
		ObtainedTotal:     obtainedTotal,
		SubjectMax:        subjectMax,
		SubjectPercentage: percentage,
		Grade:             Classify(percentage),
		Status:            status,
	}
}

// Summary holds the aggregate fields derived from a subject list.
type Summary struct {
	TotalMarks    float64
	TotalObtained float64
	Percentage    float64
	OverallGrade  models.Grade
	ResultStatus  models.ResultStatus
}

// Summarize folds per-subject results into the aggregate. The overall
// percentage is rounded with the supplied rounding function; passing nil
// keeps it unrounded. The verdict is pass only when every subject passed
// and at least one subject exists, pending when the list is empty.
func Summarize(subjects []models.SubjectResult, round func(float64) float64) Summary {
	summary := Summary{ResultStatus: models.ResultStatusPending}
	if len(subjects) == 0 {
		summary.OverallGrade = Classify(0)
		return summary
	}

	summary.ResultStatus = models.ResultStatusPass
	for _, subject := range subjects {
		summary.TotalMarks += subject.SubjectMax
		summary.TotalObtained += subject.ObtainedTotal
		if subject.Status != models.SubjectStatusPass {
			summary.ResultStatus = models.ResultStatusFail
		}
	}

	if summary.TotalMarks > 0 {
		summary.Percentage = summary.TotalObtained / summary.TotalMarks * 100
	}
	if round != nil {
		summary.Percentage = round(summary.Percentage)
	}
	summary.OverallGrade = Classify(summary.Percentage)
	return summary
}
