package domain

import "time"

// StatusChangeLog records a status transition.
type StatusChangeLog struct {
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
}

// TranslatorChangeLog records a translator reassignment.
type TranslatorChangeLog struct {
	OldTranslator string `json:"old_translator"`
	NewTranslator string `json:"new_translator"`
}

// DueChangeLog records a due date change.
type DueChangeLog struct {
	OldDue time.Time `json:"old_due"`
	NewDue time.Time `json:"new_due"`
}

// LanguageChangeLog records a language change.
type LanguageChangeLog struct {
	OldLanguageID int64 `json:"old_lang"`
	NewLanguageID int64 `json:"new_lang"`
}

// ChangeLog is the consolidated audit record of one update request.
type ChangeLog struct {
	JobID      int64                `json:"job_id"`
	ActorID    int64                `json:"actor_id"`
	ActorName  string               `json:"actor_name"`
	Status     *StatusChangeLog     `json:"status,omitempty"`
	Translator *TranslatorChangeLog `json:"translator,omitempty"`
	Due        *DueChangeLog        `json:"due,omitempty"`
	Language   *LanguageChangeLog   `json:"language,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Empty reports whether the log carries no change.
func (l *ChangeLog) Empty() bool {
	return l.Status == nil && l.Translator == nil && l.Due == nil && l.Language == nil
}
