package model

import (
	"fmt"
	"time"
)

type Device struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Group        string    `db:"group" json:"group"`
	SerialNumber *string   `db:"serial_number" json:"serialNumber,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Label is the device name qualified by its group, as used in exports.
func (d Device) Label() string {
	return fmt.Sprintf("%s-%s", d.Group, d.Name)
}

type UpsertDeviceParams struct {
	ID           int64
	Name         string
	Group        string
	SerialNumber *string
}
