package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInTransit, true},
		{StatusPending, StatusPending, true},
		{StatusPending, StatusArrived, false},
		{StatusInTransit, StatusArrived, true},
		{StatusInTransit, StatusPending, false},
		{StatusArrived, StatusReceived, true},
		{StatusReceived, StatusArrived, false},
		{StatusReceived, StatusIssue, true},
		{StatusPending, StatusIssue, true},
		{StatusIssue, StatusReceived, false},
		{StatusIssue, StatusPending, false},
		{StatusReceivedPendingAdmin, StatusReceived, false},
		{Status("shipped"), StatusArrived, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseStatusRejectsDerivedState(t *testing.T) {
	_, err := ParseStatus(string(StatusReceivedPendingAdmin))
	assert.Error(t, err)

	st, err := ParseStatus("in-transit")
	assert.NoError(t, err)
	assert.Equal(t, StatusInTransit, st)
}

func TestDisplayStatus(t *testing.T) {
	d := &Dispatch{Status: StatusArrived}
	assert.Equal(t, StatusReceivedPendingAdmin, DisplayStatus(d))

	d.LotNumber = "LOT-42"
	assert.Equal(t, StatusArrived, DisplayStatus(d))

	for _, st := range []Status{StatusPending, StatusInTransit, StatusReceived, StatusIssue} {
		assert.Equal(t, st, DisplayStatus(&Dispatch{Status: st}))
	}
}
