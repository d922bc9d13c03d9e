package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	Subject      string    `json:"subject,omitempty"` // teachers only
	Class        string    `json:"class,omitempty"`   // students only
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// QuestionType is the answer format of a question.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple-choice"
	TypeTrueFalse      QuestionType = "true-false"
	TypeFillBlank      QuestionType = "fill-blank"
)

// QuestionTypes lists every question type in display order.
var QuestionTypes = []QuestionType{TypeMultipleChoice, TypeTrueFalse, TypeFillBlank}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is an immutable catalog entry.
type Question struct {
	ID                 string       `json:"id" yaml:"id"`
	CreatedAt          time.Time    `json:"created_at" yaml:"created_at"`
	Stem               string       `json:"stem" yaml:"stem" validate:"required"`
	Options            []string     `json:"options" yaml:"options" validate:"min=2,max=4,dive,required"`
	CorrectAnswerIndex int          `json:"correct_answer_index" yaml:"correct_answer_index" validate:"gte=0"`
	Explanation        string       `json:"explanation" yaml:"explanation"`
	Type               QuestionType `json:"type" yaml:"type" validate:"oneof=multiple-choice true-false fill-blank"`
	Difficulty         Difficulty   `json:"difficulty" yaml:"difficulty" validate:"oneof=easy medium hard"`
	Marks              int          `json:"marks" yaml:"marks" validate:"gt=0"`
	Topic              string       `json:"topic" yaml:"topic" validate:"required"`
	AIGenerated        bool         `json:"ai_generated" yaml:"ai_generated"`
	Approved           bool         `json:"approved" yaml:"approved"`
}

// QuestionImport is used for loading questions from JSON or YAML files.
type QuestionImport struct {
	Stem               string       `json:"stem" yaml:"stem"`
	Options            []string     `json:"options" yaml:"options"`
	CorrectAnswerIndex int          `json:"correct_answer_index" yaml:"correct_answer_index"`
	Explanation        string       `json:"explanation" yaml:"explanation"`
	Type               QuestionType `json:"type" yaml:"type"`
	Difficulty         Difficulty   `json:"difficulty" yaml:"difficulty"`
	Marks              int          `json:"marks" yaml:"marks"`
	Topic              string       `json:"topic" yaml:"topic"`
	Approved           bool         `json:"approved" yaml:"approved"`
}

// TopicTally counts correct answers against questions asked for one topic
// within a single attempt.
type TopicTally struct {
	Topic   string `json:"topic"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

// Response records what the learner chose for one question of an attempt.
// Selected is nil when the question was left unanswered.
type Response struct {
	QuestionID string `json:"question_id"`
	Selected   *int   `json:"selected,omitempty"`
	Correct    bool   `json:"correct"`
	Marks      int    `json:"marks"`
}

// Attempt is the outcome of one submitted quiz session. It is appended to
// the learner's history and never mutated afterwards.
type Attempt struct {
	ID               int64        `json:"id,omitempty"`
	LearnerID        int64        `json:"learner_id,omitempty"`
	SessionID        string       `json:"session_id,omitempty"`
	TakenAt          time.Time    `json:"date"`
	Score            int          `json:"score"`
	TotalMarks       int          `json:"total_marks"`
	TopicPerformance []TopicTally `json:"topic_performance"`
	Responses        []Response   `json:"responses,omitempty"`
}

// Percentage returns score/total*100, or 0 when total is zero.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

// Asset is a generated document published to external storage.
type Asset struct {
	ID         int64     `json:"id"`
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	MIMEType   string    `json:"mime_type"`
	UploadedBy int64     `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	NumQuestions  int      // 0 means all approved questions
	Topic         string   // empty means all topics
	BasePath      string   // URL prefix for sub-path deployments (e.g. "/ru")
	SecureCookies bool     // Set Secure flag on cookies (disable for local dev)
	ExamTitle     string   // Heading printed on exam papers
	DefaultPass   string   // Initial password for students created by an admin
	CORSOrigins   []string // Origins allowed to call the JSON API
}
