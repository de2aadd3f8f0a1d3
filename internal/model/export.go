package model

import "time"

// ResultRow is one completed attempt joined with its student, as consumed by
// analytics and exports.
type ResultRow struct {
	AttemptID      string    `json:"attemptId"`
	StudentRef     int64     `json:"-"`
	StudentName    string    `json:"studentName"`
	StudentEmail   string    `json:"studentEmail"`
	StudentID      string    `json:"studentId"`
	Branch         string    `json:"branch"`
	Score          int       `json:"score"`
	TotalPoints    int       `json:"totalPoints"`
	Percentage     float64   `json:"percentage"`
	ElapsedSeconds int       `json:"timeSpent"`
	CompletedAt    time.Time `json:"completedAt"`
}

// TestReport is the per-test analytics summary.
type TestReport struct {
	TestID            string      `json:"testId"`
	Title             string      `json:"title"`
	TotalAttempts     int         `json:"totalAttempts"`
	AverageScore      float64     `json:"averageScore"`
	HighestScore      float64     `json:"highestScore"`
	LowestScore       float64     `json:"lowestScore"`
	PassRate          float64     `json:"passRate"`
	PassMark          float64     `json:"passMark"`
	Attempts          []ResultRow `json:"attempts"`
	AvailableBranches []string    `json:"availableBranches"`
}

// RecentAttempt is a dashboard entry.
type RecentAttempt struct {
	StudentName string    `json:"studentName"`
	TestTitle   string    `json:"testTitle"`
	Percentage  float64   `json:"percentage"`
	CompletedAt time.Time `json:"completedAt"`
}

// Dashboard holds platform-wide counts for administrators.
type Dashboard struct {
	TotalTests     int             `json:"totalTests"`
	TotalStudents  int             `json:"totalStudents"`
	TotalAttempts  int             `json:"totalAttempts"`
	RecentAttempts []RecentAttempt `json:"recentAttempts"`
}

// ResultsExport is the top-level JSON structure for results export.
type ResultsExport struct {
	TestID       string      `json:"test_id"`
	Title        string      `json:"title"`
	ExportedAt   time.Time   `json:"exported_at"`
	NumQuestions int         `json:"num_questions"`
	Report       *TestReport `json:"report"`
}
