// Package review отбирает попытки прохождения тестов, которые пора повторить.
//
// Интервал повторения выбирается по баллу последней попытки, без учёта
// количества прошлых повторений: 7 дней для балла выше 0.6, 3 дня для балла
// выше 0.4 и 1 день для остальных. Попытки с баллом 0.8 и выше считаются
// усвоенными.
package review

import (
	"cmp"
	"math"
	"slices"
)

const (
	// MaxItems - максимальная длина очереди повторения.
	MaxItems = 5
	// MasteryScore - балл, начиная с которого попытка не повторяется.
	MasteryScore = 0.8
	// DefaultSubject - предмет по умолчанию, если у теста он не указан.
	DefaultSubject = "PAES"

	secondsPerDay = 86400
)

// Priority - приоритет элемента очереди.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Attempt - завершённая попытка прохождения теста.
type Attempt struct {
	QuizID      string  `json:"quiz_id"`
	Title       string  `json:"title"`
	Subject     string  `json:"subject"`
	Type        string  `json:"type"`
	Score       float64 `json:"score"`
	CompletedAt int64   `json:"completed_at"`
}

// Item - элемент очереди повторения. Вычисляется при каждом вызове Schedule.
type Item struct {
	QuizID    string   `json:"quiz_id"`
	Title     string   `json:"title"`
	Subject   string   `json:"subject"`
	Type      string   `json:"type,omitempty"`
	LastScore int      `json:"last_score"`
	DaysSince int64    `json:"days_since"`
	Priority  Priority `json:"priority"`
}

// Interval возвращает интервал повторения в днях для балла score.
func Interval(score float64) int64 {
	switch {
	case score > 0.6:
		return 7
	case score > 0.4:
		return 3
	default:
		return 1
	}
}

// Schedule возвращает до MaxItems попыток, которые пора повторить к моменту
// nowInSeconds. Сначала идут элементы с высоким приоритетом, внутри
// приоритета - по убыванию числа прошедших дней.
func Schedule(history []Attempt, nowInSeconds int64) []Item {
	items := make([]Item, 0, MaxItems)
	for _, a := range history {
		if math.IsNaN(a.Score) || !(a.Score < MasteryScore) {
			continue
		}

		daysSince := floorDiv(nowInSeconds-a.CompletedAt, secondsPerDay)
		interval := Interval(a.Score)
		if daysSince < 0 || daysSince < interval {
			continue
		}

		priority := PriorityMedium
		if daysSince > 2*interval {
			priority = PriorityHigh
		}

		subject := a.Subject
		if subject == "" {
			subject = DefaultSubject
		}

		items = append(items, Item{
			QuizID:    a.QuizID,
			Title:     a.Title,
			Subject:   subject,
			Type:      a.Type,
			LastScore: int(math.Round(a.Score * 100)),
			DaysSince: daysSince,
			Priority:  priority,
		})
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		if a.Priority != b.Priority {
			if a.Priority == PriorityHigh {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.DaysSince, a.DaysSince)
	})

	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	return items
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
