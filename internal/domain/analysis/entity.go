package analysis

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ID identifier assigned by the Repository on first save
type ID int64

// Type enum
type Type string

const (
	TypeObjectDetection Type = "OBJECT_DETECTION"
	TypeGeneralAnalysis Type = "GENERAL_ANALYSIS"
)

// ParseType maps a raw analysis type onto a known Type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeObjectDetection, TypeGeneralAnalysis:
		return t, nil
	default:
		return "", &ValidationError{Reason: ReasonUnsupportedType}
	}
}

// TargetObject is the object searched for by an OBJECT_DETECTION request.
// The zero value means absent.
type TargetObject struct {
	value string
	set   bool
}

func SomeTarget(v string) TargetObject { return TargetObject{value: v, set: true} }

func NoTarget() TargetObject { return TargetObject{} }

func (t TargetObject) Get() (string, bool) { return t.value, t.set }

// String returns the target or "" when absent.
func (t TargetObject) String() string { return t.value }

func (t TargetObject) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.value)
}

func (t *TargetObject) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = NoTarget()
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = SomeTarget(v)
	return nil
}

// Record is the persisted result of one analysis request.
type Record struct {
	ID           ID           `json:"id"`
	FileName     string       `json:"fileName"`
	AnalysisType Type         `json:"analysisType"`
	TargetObject TargetObject `json:"targetObject"`
	Result       string       `json:"result"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// NewRecord builds an unsaved record. The target is kept only for
// OBJECT_DETECTION and must then be non-empty.
func NewRecord(fileName string, t Type, target string, result string, createdAt time.Time) (Record, error) {
	if err := Validate(t, target); err != nil {
		return Record{}, err
	}
	r := Record{
		FileName:     fileName,
		AnalysisType: t,
		Result:       result,
		CreatedAt:    createdAt,
	}
	if t == TypeObjectDetection {
		r.TargetObject = SomeTarget(target)
	}
	return r, nil
}

// Persisted reports whether the record already carries a store-assigned ID.
func (r Record) Persisted() bool { return r.ID != 0 }

// Page represents a paginated listing of records
type Page struct {
	Data       []Record `json:"data"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int64    `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
}
