package models

import "time"

const (
	SettingProjectName   = "project_name"
	DefaultProjectName   = "Indian Kitchen"
	MaxProjectNameLength = 40
)

type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
