package db

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Collection names used across the admin tools.
const (
	CollectionUsers         = "users"
	CollectionAppointments  = "appointments"
	CollectionChats         = "chats"
	CollectionNotifications = "notifications"
	CollectionInvoices      = "invoices"
	CollectionRuns          = "reconciliation_runs"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionConflict  = errors.New("document was modified concurrently")
)

// Fields is the loosely typed body of a document.
type Fields map[string]any

// Document is one record of a collection. Version increases by one on every
// write and is used for conditional updates.
type Document struct {
	ID        string
	Version   int64
	Data      Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// String returns the value under key rendered as a string. Missing keys, nulls
// and non-scalar values yield "".
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case decimal.Decimal:
		return v.String()
	default:
		return ""
	}
}

// Decimal returns the numeric value under key. Numeric strings are accepted
// because older booking clients stored amounts as text.
func (f Fields) Decimal(key string) (decimal.Decimal, bool) {
	switch v := f[key].(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// Bool reports whether key holds a true boolean.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Map returns the nested object under key, or nil.
func (f Fields) Map(key string) Fields {
	switch v := f[key].(type) {
	case map[string]any:
		return Fields(v)
	case Fields:
		return v
	default:
		return nil
	}
}

// Slice returns the nested array under key, or nil.
func (f Fields) Slice(key string) []any {
	v, _ := f[key].([]any)
	return v
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a copy of f with patch applied on top, the same way a partial
// update leaves untouched keys in place.
func (f Fields) Merge(patch Fields) Fields {
	out := f.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func decodeFields(raw []byte) (Fields, error) {
	if len(raw) == 0 {
		return Fields{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode document body: %w", err)
	}
	if f == nil {
		f = Fields{}
	}
	return f, nil
}

func encodeFields(f Fields) (string, error) {
	if f == nil {
		f = Fields{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode document body: %w", err)
	}
	return string(b), nil
}
