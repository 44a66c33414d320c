package entity

import (
	"errors"
	"time"
)

type RemovalState string

const (
	RemovalNotSubmitted RemovalState = "Not Submitted"
	RemovalNotRequested RemovalState = "Not Requested"
	RemovalRequested    RemovalState = "Requested"
	RemovalRemoved      RemovalState = "Removed"
)

func (s RemovalState) Pending() bool {
	return s != RemovalRequested && s != RemovalRemoved
}

type BrokerLedgerEntry struct {
	ID               uint64       `bson:"_id" json:"id"`
	Name             string       `bson:"name" json:"name"`
	URL              string       `bson:"url" json:"url"`
	RemovalState     RemovalState `bson:"removal_state" json:"removal_state"`
	SubmissionDate   *time.Time   `bson:"submission_date" json:"submission_date,omitempty"`
	ConfirmationDate *time.Time   `bson:"confirmation_date" json:"confirmation_date,omitempty"`
}

func (e BrokerLedgerEntry) Target() Target {
	return Target{URL: e.URL, BrokerID: e.ID, BrokerName: e.Name}
}

var ErrBrokerNotFound = errors.New("broker not found")
