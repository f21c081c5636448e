package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSON-mapped value types owned by their parent aggregate. They have no
// lifecycle of their own: the whole value is replaced on update.

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *StringList) Scan(src interface{}) error {
	return jsonScan(src, l)
}

// FormField describes one entry of an event's custom registration form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // text|number|email|select
	Required bool   `json:"required"`
}

type FormFields []FormField

func (f FormFields) Value() (driver.Value, error) {
	return jsonValue(f)
}

func (f *FormFields) Scan(src interface{}) error {
	return jsonScan(src, f)
}

// FormAnswers maps field name to the participant's answer.
type FormAnswers map[string]string

func (a FormAnswers) Value() (driver.Value, error) {
	return jsonValue(a)
}

func (a *FormAnswers) Scan(src interface{}) error {
	return jsonScan(src, a)
}

// MerchandiseSelection records what a merchandise purchase ordered.
type MerchandiseSelection struct {
	Variants map[string]string `json:"variants,omitempty"` // e.g. {"size": "L"}
	Quantity int               `json:"quantity"`
}

func (m MerchandiseSelection) Value() (driver.Value, error) {
	return jsonValue(m)
}

func (m *MerchandiseSelection) Scan(src interface{}) error {
	return jsonScan(src, m)
}

const (
	AttendanceMethodScan   = "scan"
	AttendanceMethodManual = "manual"
)

// AttendanceEntry is one append-only audit record of an attendance marking.
type AttendanceEntry struct {
	Method   string    `json:"method"` // scan|manual
	MarkedBy uuid.UUID `json:"marked_by"`
	MarkedAt time.Time `json:"marked_at"`
	Note     string    `json:"note,omitempty"`
}

type AttendanceLog []AttendanceEntry

func (l AttendanceLog) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *AttendanceLog) Scan(src interface{}) error {
	return jsonScan(src, l)
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src, dest interface{}) error {
	if src == nil {
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dest)
	case string:
		return json.Unmarshal([]byte(data), dest)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
