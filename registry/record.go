package registry

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Record is one read-only dataset entry.
type Record struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts "secondaryField" as an alias of "title".
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key            string `json:"key"`
		Name           string `json:"name"`
		Title          string `json:"title"`
		SecondaryField string `json:"secondaryField"`
		Email          string `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Key = raw.Key
	r.Name = raw.Name
	r.Title = raw.Title
	if r.Title == "" {
		r.Title = raw.SecondaryField
	}
	r.Email = raw.Email
	return nil
}

// Fields exposes the record to field bindings in certificate templates.
func (r Record) Fields() map[string]any {
	return map[string]any{
		"key":   r.Key,
		"name":  r.Name,
		"title": r.Title,
		"email": r.Email,
	}
}

// Normalize trims and upper-cases a lookup key.
func Normalize(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	// Caser 有状态，不能跨 goroutine 共享
	return cases.Upper(language.Und).String(key)
}
