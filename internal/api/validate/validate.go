package validate

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Collect drops the nil results of the helpers below.
func Collect(checks ...*ErrField) Errs {
	var out Errs
	for _, c := range checks {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

func MaxLen(field, value string, n int) *ErrField {
	if len([]rune(value)) > n {
		return &ErrField{Field: field, Msg: "must be at most " + strconv.Itoa(n) + " characters"}
	}
	return nil
}

// UUID leaves empty values to Required.
func UUID(field, value string) *ErrField {
	if value == "" {
		return nil
	}
	if _, err := uuid.Parse(value); err != nil {
		return &ErrField{Field: field, Msg: "must be a uuid"}
	}
	return nil
}

func OneOf(field, value string, allowed ...string) *ErrField {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ErrField{Field: field, Msg: "must be one of " + strings.Join(allowed, ", ")}
}
