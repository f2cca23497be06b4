package access

import (
	"bytes"
	"encoding/json"
)

// Metadata - публичные метаданные пользователя или организации у провайдера
// идентификации. Поля неожиданного типа читаются как пустые.
type Metadata struct {
	Plan        string     `json:"plan,omitempty"`
	Role        string     `json:"role,omitempty"`
	TrialEndsAt RawInstant `json:"trialEndsAt"`
}

// UnmarshalJSON разбирает метаданные без ошибок на неверной форме.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	*m = Metadata{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	m.Plan = stringField(fields, "plan")
	m.Role = stringField(fields, "role")
	if raw, ok := fields["trialEndsAt"]; ok {
		_ = m.TrialEndsAt.UnmarshalJSON(raw)
	}
	return nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Organization - организация, через которую пользователь может получить план.
type Organization struct {
	ID             string    `json:"id,omitempty"`
	PublicMetadata *Metadata `json:"public_metadata,omitempty"`
}

// UnmarshalJSON принимает метаданные как в public_metadata (backend API),
// так и в publicMetadata (frontend SDK).
func (o *Organization) UnmarshalJSON(data []byte) error {
	*o = Organization{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	o.ID = stringField(fields, "id")
	raw, ok := fields["public_metadata"]
	if !ok {
		raw, ok = fields["publicMetadata"]
	}
	if ok && isObject(raw) {
		var md Metadata
		_ = md.UnmarshalJSON(raw)
		o.PublicMetadata = &md
	}
	return nil
}

// Membership - членство пользователя в организации.
type Membership struct {
	Organization *Organization `json:"organization"`
}

// Plan возвращает план организации или пустую строку, если его нет.
func (m Membership) Plan() string {
	if m.Organization == nil || m.Organization.PublicMetadata == nil {
		return ""
	}
	return m.Organization.PublicMetadata.Plan
}

// ParseMemberships разбирает список членств из JSON. Принимается массив или
// объект с полем data. Элементы, которые не являются объектами с ключом
// organization (null или объект), отбрасываются.
func ParseMemberships(data []byte) []Membership {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return []Membership{}
		}
		items = wrapped.Data
	}

	memberships := make([]Membership, 0, len(items))
	for _, item := range items {
		if !isObject(item) {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		raw, ok := fields["organization"]
		if !ok {
			continue
		}
		switch {
		case isNull(raw):
			memberships = append(memberships, Membership{})
		case isObject(raw):
			var org Organization
			_ = org.UnmarshalJSON(raw)
			memberships = append(memberships, Membership{Organization: &org})
		}
	}
	return memberships
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
