package models

import "encoding/json"

// AlertDefinition is one effective entry from the alert-definition
// journal: which catalog to watch, for whom, and how hard to look.
type AlertDefinition struct {
	Site       string          `json:"site"`
	URL        string          `json:"url"`
	Email      string          `json:"email"`
	Pages      int             `json:"pages,omitempty"`
	Filters    json.RawMessage `json:"filters,omitempty"`
	UseBrowser bool            `json:"use_browser,omitempty"`
}

// JournalEvent is one line of the definitions journal. The journal is
// append-only: add/update/delete events are replayed in order to build
// the effective definition set. Legacy lines carry the definition
// fields inline with no action.
type JournalEvent struct {
	TS     string          `json:"ts,omitempty"`
	Action string          `json:"action,omitempty"`
	Alert  AlertDefinition `json:"alert,omitempty"`

	// Legacy flat form.
	Site  string `json:"site,omitempty"`
	URL   string `json:"url,omitempty"`
	Email string `json:"email,omitempty"`
	Pages int    `json:"pages,omitempty"`
}
