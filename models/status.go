package models

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in-transit"
	StatusArrived   Status = "arrived"
	StatusReceived  Status = "received"
	StatusIssue     Status = "issue"

	// StatusReceivedPendingAdmin is derived at read time and never stored.
	StatusReceivedPendingAdmin Status = "received-pending-admin"
)

var storedStatuses = []Status{StatusPending, StatusInTransit, StatusArrived, StatusReceived, StatusIssue}

// edges lists every stored transition except the any-state move to issue.
var edges = map[Status][]Status{
	StatusPending:   {StatusPending, StatusInTransit},
	StatusInTransit: {StatusArrived},
	StatusArrived:   {StatusReceived},
}

func ParseStatus(raw string) (Status, error) {
	for _, s := range storedStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether a stored status may move from one value to another.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusIssue {
		return true
	}
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DisplayStatus derives the status shown to receiving staff.
func DisplayStatus(d *Dispatch) Status {
	if d.Status == StatusArrived && d.LotNumber == "" {
		return StatusReceivedPendingAdmin
	}
	return d.Status
}

type TemperatureZone string

const (
	ZoneAmbient TemperatureZone = "ambient"
	ZoneChilled TemperatureZone = "chilled"
	ZoneFrozen  TemperatureZone = "frozen"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)
