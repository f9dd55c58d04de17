package course

import (
	"fmt"
	"math"
	"sort"
)

// Default passing thresholds. The two are on different scales and must never
// be conflated: DefaultPassingThreshold applies to a student's whole-course
// point total (sum over all exams), DefaultExamPassingScore to a single exam
// on a 0-100 scale.
const (
	DefaultPassingThreshold = 250.0
	DefaultExamPassingScore = 60.0
)

type (
	PassingRateResult struct {
		Passing int     `json:"passing"`
		Total   int     `json:"total"`
		Rate    float64 `json:"rate"` // percentage, 2 decimals
	}

	ExamStatistic struct {
		ExamIndex    int     `json:"examIndex"`
		ExamName     string  `json:"examName"`
		Average      float64 `json:"average"`
		Min          float64 `json:"min"`
		Max          float64 `json:"max"`
		PassingCount int     `json:"passingCount"`
		PassingRate  float64 `json:"passingRate"` // percentage, 2 decimals
	}

	RankingEntry struct {
		StudentID  string  `json:"studentId"`
		FinalGrade float64 `json:"finalGrade"`
	}

	// Bucket is a half-open final-grade range [Lo, Hi).
	Bucket struct {
		Label string  `json:"label"`
		Lo    float64 `json:"lo"`
		Hi    float64 `json:"hi"`
	}

	BucketCount struct {
		Label string `json:"bucketLabel"`
		Count int    `json:"count"`
	}
)

// CourseAverage returns the mean of all students' final grades,
// or 0 for a course with no students.
func CourseAverage(c Course) float64 {
	if len(c.Students) == 0 {
		return 0
	}
	var sum float64
	for _, std := range c.Students {
		sum += std.FinalGrade
	}
	return round2(sum / float64(len(c.Students)))
}

// HighestGrade returns the best final grade in the course, or 0 when empty.
func HighestGrade(c Course) float64 {
	var max float64
	for _, std := range c.Students {
		if std.FinalGrade > max {
			max = std.FinalGrade
		}
	}
	return max
}

// PassingRate counts students whose final grade reaches threshold. The
// threshold is an absolute point total, not a percentage.
func PassingRate(c Course, threshold float64) PassingRateResult {
	res := PassingRateResult{Total: len(c.Students)}
	for _, std := range c.Students {
		if std.FinalGrade >= threshold {
			res.Passing++
		}
	}
	if res.Total > 0 {
		res.Rate = round2(float64(res.Passing) / float64(res.Total) * 100)
	}
	return res
}

// ExamStatistics computes per-exam-slot aggregates across all students.
// passingScore is on the single-exam 0-100 scale.
func ExamStatistics(c Course, passingScore float64) []ExamStatistic {
	stats := make([]ExamStatistic, 0, len(c.Exams))
	for i, exam := range c.Exams {
		st := ExamStatistic{ExamIndex: i, ExamName: exam}
		if n := len(c.Students); n > 0 {
			var sum float64
			min, max := math.Inf(1), math.Inf(-1)
			for _, std := range c.Students {
				score := std.Grades[i].Score
				sum += score
				if score < min {
					min = score
				}
				if score > max {
					max = score
				}
				if score >= passingScore {
					st.PassingCount++
				}
			}
			st.Average = round2(sum / float64(n))
			st.Min = min
			st.Max = max
			st.PassingRate = round2(float64(st.PassingCount) / float64(n) * 100)
		}
		stats = append(stats, st)
	}
	return stats
}

// Ranking orders students by final grade, best first. Ties keep the course's
// student order (stable sort).
func Ranking(c Course) []RankingEntry {
	entries := make([]RankingEntry, 0, len(c.Students))
	for _, std := range c.Students {
		entries = append(entries, RankingEntry{StudentID: std.ID, FinalGrade: std.FinalGrade})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].FinalGrade > entries[j].FinalGrade })
	return entries
}

// GradeDistribution partitions students into the supplied buckets.
func GradeDistribution(c Course, buckets []Bucket) []BucketCount {
	counts := make([]BucketCount, 0, len(buckets))
	for _, b := range buckets {
		bc := BucketCount{Label: b.Label}
		for _, std := range c.Students {
			if std.FinalGrade >= b.Lo && std.FinalGrade < b.Hi {
				bc.Count++
			}
		}
		counts = append(counts, bc)
	}
	return counts
}

// DefaultBuckets covers the usual 5-exam course span of 0-500 points;
// the last bucket is open-ended so a perfect total is never dropped.
func DefaultBuckets() []Bucket {
	buckets := make([]Bucket, 0, 5)
	for lo := 0.0; lo < 400; lo += 100 {
		buckets = append(buckets, Bucket{
			Label: fmt.Sprintf("%.0f-%.0f pts", lo, lo+99),
			Lo:    lo,
			Hi:    lo + 100,
		})
	}
	return append(buckets, Bucket{Label: "400+ pts", Lo: 400, Hi: math.Inf(1)})
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
