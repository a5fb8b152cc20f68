package types

import "time"

// DeadlineSource distinguishes an ingested spreadsheet row from a manually
// entered override.
type DeadlineSource int

const (
	DeadlineFromSpreadsheet DeadlineSource = iota
	DeadlineFromManualEntry
)

func (s DeadlineSource) String() string {
	if s == DeadlineFromManualEntry {
		return "manual"
	}
	return "spreadsheet"
}

// DeadlineRow is the pre-parsed shape handed to ingestion by the external
// spreadsheet/CSV collaborator; parsing the raw file format itself happens
// upstream of this package.
type DeadlineRow struct {
	Entity      string
	RecordID    string
	Description string
	DueDate     time.Time
}

// DeadlineRecord is the persisted, reconciled deadline fact.
type DeadlineRecord struct {
	ID          string
	Entity      string
	RecordID    string
	Description string
	DueDate     time.Time
	Source      DeadlineSource
	ImportedAt  time.Time
	RawRowHash  string
}
