package models

import "github.com/magabrotheeeer/preuniversitario-astral/internal/review"

// Quiz описывает тест, на который ссылаются попытки.
type Quiz struct {
	ID      string
	Title   string
	Subject string
	Type    string
}

// ProgressEvent - запись журнала прогресса. События только добавляются.
type ProgressEvent struct {
	ID        string
	UserID    string
	Subject   string
	Kind      string
	Value     float64
	CreatedAt int64
}

const (
	// ProgressKindQuizCompleted - событие завершения теста или повторения.
	ProgressKindQuizCompleted = "quiz_completed"
	// ProgressSubjectReview - предмет для событий повторения.
	ProgressSubjectReview = "Review"
)

// ReviewRequest используется для приёма данных из JSON-запроса
// об окончании повторения.
type ReviewRequest struct {
	QuizID string   `json:"quiz_id" validate:"required,uuid"`
	Score  *float64 `json:"score" validate:"required,gte=0,lte=1"` // Балл от 0 до 1
}

// TrialNotification - сообщение о скором окончании пробного периода.
type TrialNotification struct {
	ID          string  `json:"id"`
	ExternalID  string  `json:"external_id"`
	Name        string  `json:"name"`
	TrialEndsAt float64 `json:"trial_ends_at"`
}

// ReviewNotification - сообщение о том, что у пользователя есть тесты для повторения.
type ReviewNotification struct {
	ID         string        `json:"id"`
	ExternalID string        `json:"external_id"`
	Items      []review.Item `json:"items"`
}
