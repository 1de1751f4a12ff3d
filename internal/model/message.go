package model

// PredefinedMessage is a catalog entry a reporter can pick instead of typing text.
// Ref is the row key in the context spreadsheet; ID is the database key used in
// button payloads.
type PredefinedMessage struct {
	ID   int64      `db:"id" json:"id"`
	Ref  string     `db:"ref" json:"ref"`
	Text string     `db:"text" json:"text"`
	Kind ReportKind `db:"kind" json:"kind"`
}

type UpsertPredefinedMessageParams struct {
	Ref  string
	Text string
	Kind ReportKind
}
