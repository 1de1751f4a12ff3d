package model

import "time"

type Record struct {
	ID         int64      `db:"id" json:"id"`
	Text       string     `db:"text" json:"text"`
	Kind       ReportKind `db:"kind" json:"kind"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ReporterID int64      `db:"reporter_id" json:"reporterId"`
	DeviceID   int64      `db:"device_id" json:"deviceId"`
}

type CreateRecordParams struct {
	ReporterID int64
	DeviceID   int64
	Kind       ReportKind
	Text       string
}

// RecordView is a record joined with its reporter and device.
type RecordView struct {
	Record
	ReporterName string `db:"reporter_name" json:"reporterName"`
	DeviceName   string `db:"device_name" json:"deviceName"`
	DeviceGroup  string `db:"device_group" json:"deviceGroup"`
}

// OpenProblem is a device whose latest record is a problem.
type OpenProblem struct {
	DeviceID     int64     `db:"device_id" json:"deviceId"`
	DeviceName   string    `db:"device_name" json:"deviceName"`
	DeviceGroup  string    `db:"device_group" json:"deviceGroup"`
	RecordID     int64     `db:"record_id" json:"recordId"`
	Text         string    `db:"text" json:"text"`
	ReportedAt   time.Time `db:"reported_at" json:"reportedAt"`
	ReporterName string    `db:"reporter_name" json:"reporterName"`
}
