package access

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// minEpochSeconds отделяет числовую строку-таймстамп от произвольного числа.
const minEpochSeconds = 1_000_000_000

// RawInstant хранит сырое значение trialEndsAt в том виде, в каком его прислал
// провайдер идентификации: число, строку или ничего.
type RawInstant struct {
	num   *float64
	str   *string
	valid bool
}

// InstantFromNumber оборачивает числовое значение.
func InstantFromNumber(v float64) RawInstant {
	return RawInstant{num: &v, valid: true}
}

// InstantFromString оборачивает строковое значение.
func InstantFromString(v string) RawInstant {
	return RawInstant{str: &v, valid: true}
}

// IsZero сообщает, что значение не задано.
func (r RawInstant) IsZero() bool {
	return !r.valid
}

// UnmarshalJSON принимает JSON-число или JSON-строку. Остальные типы
// (включая null) дают пустое значение без ошибки.
func (r *RawInstant) UnmarshalJSON(data []byte) error {
	*r = RawInstant{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*r = InstantFromString(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return nil
		}
		*r = InstantFromNumber(f)
	}
	return nil
}

// MarshalJSON возвращает исходное значение.
func (r RawInstant) MarshalJSON() ([]byte, error) {
	switch {
	case r.num != nil:
		return json.Marshal(*r.num)
	case r.str != nil:
		return json.Marshal(*r.str)
	default:
		return []byte("null"), nil
	}
}

// Instant - нормализованный момент в секундах Unix. Valid == false означает,
// что момента нет.
type Instant struct {
	Seconds float64
	Valid   bool
}

// Some создаёт заданный момент.
func Some(seconds float64) Instant {
	return Instant{Seconds: seconds, Valid: true}
}

// MarshalJSON кодирует отсутствующий момент как null.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.Seconds)
}

// UnmarshalJSON читает число или null.
func (i *Instant) UnmarshalJSON(data []byte) error {
	*i = Instant{}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*i = Some(f)
	return nil
}

// dateLayouts - форматы дат, которые встречаются в метаданных пользователей.
// Значения без зоны трактуются как UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"Jan 2, 2006",
	"January 2, 2006",
}

// CoerceTrialEndsAt приводит сырое значение к секундам Unix. Порядок разбора:
// конечное число берётся как есть; строка, которая парсится в число больше
// 1e9, берётся как это число; иначе строка разбирается как дата. Всё остальное
// даёт пустой Instant.
func CoerceTrialEndsAt(raw RawInstant) Instant {
	switch {
	case raw.num != nil:
		if math.IsNaN(*raw.num) || math.IsInf(*raw.num, 0) {
			return Instant{}
		}
		return Some(*raw.num)
	case raw.str != nil:
		s := strings.TrimSpace(*raw.str)
		if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(n, 0) && n > minEpochSeconds {
			return Some(n)
		}
		if t, ok := parseDate(s); ok {
			return Some(float64(t.Unix()))
		}
	}
	return Instant{}
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// HasActiveTrial сообщает, действует ли пробный период: план trial_user,
// момент окончания известен и строго больше now.
func HasActiveTrial(plan string, trialEndsAt Instant, nowInSeconds int64) bool {
	return plan == PlanTrial && trialEndsAt.Valid && trialEndsAt.Seconds > float64(nowInSeconds)
}
