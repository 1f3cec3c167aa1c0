// Package domain holds the raw-lead call outcome model.
package domain

// Status is the outcome of the latest call attempt on a raw lead.
type Status string

const (
	StatusUntouched     Status = "UNTOUCHED"
	StatusCallLater     Status = "CALL_LATER"
	StatusInterested    Status = "INTERESTED"
	StatusNotInterested Status = "NOT_INTERESTED"
	StatusDND           Status = "DND"
	StatusInvalid       Status = "INVALID"
)

// StatusGroup partitions statuses for workload reporting.
type StatusGroup int

const (
	GroupUnknown StatusGroup = iota
	GroupPending
	GroupCompleted
)

// Every known status maps to exactly one group.
var statusGroups = map[Status]StatusGroup{
	StatusUntouched:     GroupPending,
	StatusCallLater:     GroupPending,
	StatusInterested:    GroupCompleted,
	StatusNotInterested: GroupCompleted,
	StatusDND:           GroupCompleted,
	StatusInvalid:       GroupCompleted,
}

// AllStatuses lists statuses in their usual call-flow order.
func AllStatuses() []Status {
	return []Status{
		StatusUntouched,
		StatusCallLater,
		StatusInterested,
		StatusNotInterested,
		StatusDND,
		StatusInvalid,
	}
}

// PendingStatuses returns the statuses still awaiting a final outcome.
func PendingStatuses() []Status {
	return statusesIn(GroupPending)
}

// CompletedStatuses returns the terminal call outcomes.
func CompletedStatuses() []Status {
	return statusesIn(GroupCompleted)
}

func statusesIn(group StatusGroup) []Status {
	out := make([]Status, 0, len(statusGroups))
	for _, s := range AllStatuses() {
		if statusGroups[s] == group {
			out = append(out, s)
		}
	}
	return out
}

// Group returns the partition s belongs to, GroupUnknown for unknown values.
func (s Status) Group() StatusGroup {
	return statusGroups[s]
}

// IsKnown reports whether s is one of the defined statuses.
func (s Status) IsKnown() bool {
	_, ok := statusGroups[s]
	return ok
}

func (s Status) IsPending() bool   { return s.Group() == GroupPending }
func (s Status) IsCompleted() bool { return s.Group() == GroupCompleted }

// TriggersConversion reports whether moving into s promotes the raw lead to a CRM lead.
func (s Status) TriggersConversion() bool {
	return s == StatusNotInterested
}

// ParseStatus validates a raw string.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	return s, s.IsKnown()
}

// StatusStrings converts statuses for SQL array parameters.
func StatusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
