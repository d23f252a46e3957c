// Package studio owns the application-mode state machine: the current
// activity, the in-flight generation request and its status, suggestion
// pre-fetch, and the save side effect. Everything the API surface renders is
// derived from a Controller snapshot.
package studio

// Mode is the single top-level activity the user is in. Exactly one is
// active at a time; Select is both the initial and the universal reset
// target.
type Mode string

const (
	ModeSelect   Mode = "select"
	ModeEdit     Mode = "edit"
	ModeGenerate Mode = "generate"
	ModeStudy    Mode = "study"
	ModeGallery  Mode = "gallery"
)

// ValidMode reports whether m names a known activity.
func ValidMode(m Mode) bool {
	switch m {
	case ModeSelect, ModeEdit, ModeGenerate, ModeStudy, ModeGallery:
		return true
	}
	return false
}

// StatusKind tags the lifecycle stage of the surface's generation request.
type StatusKind string

const (
	StatusIdle      StatusKind = "idle"
	StatusPending   StatusKind = "pending"
	StatusSucceeded StatusKind = "succeeded"
	StatusFailed    StatusKind = "failed"
)

// RequestStatus is the request lifecycle state plus the user-visible message
// when the last attempt failed. Message is set only while Kind is
// StatusFailed; the next attempt or a reset clears it.
type RequestStatus struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

// Fixed suggestion sets. The edit set doubles as the fallback when the
// per-image suggestion fetch fails.
var defaultEditSuggestions = []string{
	"Make it look like a vintage photograph",
	"Change the season to winter",
	"Add a dramatic, cloudy sky",
	"Turn it into a watercolor painting",
}

var defaultGenerateSuggestions = []string{
	"A majestic lion wearing a crown in a lush jungle",
	"A futuristic cityscape at night with flying cars",
	"A cozy library in a treehouse, filled with books",
	"A surreal underwater world with glowing fish",
}

// Snapshot is a consistent read of the controller state for rendering.
type Snapshot struct {
	Mode               Mode          `json:"mode"`
	Prompt             string        `json:"prompt"`
	HasSource          bool          `json:"hasSource"`
	SourceName         string        `json:"sourceName,omitempty"`
	Result             string        `json:"result,omitempty"` // PNG data URI
	Status             RequestStatus `json:"status"`
	Suggestions        []string      `json:"suggestions"`
	SuggestionsLoading bool          `json:"suggestionsLoading"`
	IsSaving           bool          `json:"isSaving"`
}
