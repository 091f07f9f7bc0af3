package daystatus

// Status is the operating state of the school, or of one course, on a day.
//
// Status is a string type holding one of four predefined values:
// [StatusScheduled], [StatusCancelled], [StatusIndoor], or [StatusPostponed].
// Values outside that set can be carried in input so validation can report
// them, but they are never stored.
type Status string

const (
	// StatusScheduled means training takes place as planned. It is the
	// default for every day and course without a stored record.
	StatusScheduled Status = "scheduled"

	// StatusCancelled means training does not take place.
	StatusCancelled Status = "cancelled"

	// StatusIndoor means training moves to the indoor hall.
	StatusIndoor Status = "indoor"

	// StatusPostponed means training takes place at a later time.
	StatusPostponed Status = "postponed"
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCancelled, StatusIndoor, StatusPostponed:
		return true
	default:
		return false
	}
}

// StatusDefinition is the display metadata for a [Status].
type StatusDefinition struct {
	Key         Status `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// statusDefinitions is ordered for display; never mutated.
var statusDefinitions = [...]StatusDefinition{
	{
		Key:         StatusScheduled,
		Label:       "Scheduled",
		Description: "Training takes place as planned.",
		Color:       "#16a34a",
		Icon:        "check-circle",
	},
	{
		Key:         StatusCancelled,
		Label:       "Cancelled",
		Description: "Training is cancelled today.",
		Color:       "#dc2626",
		Icon:        "x-circle",
	},
	{
		Key:         StatusIndoor,
		Label:       "Indoor",
		Description: "Training moves to the indoor hall.",
		Color:       "#2563eb",
		Icon:        "home",
	},
	{
		Key:         StatusPostponed,
		Label:       "Postponed",
		Description: "Training starts later than usual.",
		Color:       "#d97706",
		Icon:        "clock",
	},
}

// StatusDefinitions returns the display metadata of every status, in
// display order. The returned slice is a copy.
func StatusDefinitions() []StatusDefinition {
	out := make([]StatusDefinition, len(statusDefinitions))
	copy(out, statusDefinitions[:])
	return out
}

// StatusDefinitionFor returns the display metadata for s. Unknown statuses
// get the definition of [StatusScheduled].
func StatusDefinitionFor(s Status) StatusDefinition {
	for _, def := range statusDefinitions {
		if def.Key == s {
			return def
		}
	}
	return statusDefinitions[0]
}
