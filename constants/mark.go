package constants

// Mark is the per-field visual classification stamped onto the sheet.
type Mark string

// Stable values (these exact strings appear in grading-service JSON).
const (
	MarkCircle   Mark = "circle"   // full credit
	MarkTriangle Mark = "triangle" // partial credit
	MarkCheck    Mark = "check"    // zero
)

// QuestionType distinguishes how a question is captured and graded.
type QuestionType string

const (
	FreeResponse   QuestionType = "free_response"
	MultipleChoice QuestionType = "multiple_choice"
)
