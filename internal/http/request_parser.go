// Package http exposes the budget service as a JSON API.
//
// This file holds the request side: body decoding, amount and date parsing,
// query parameters and input sanitization.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("malformed request body")

// Amount is a money value sent either as a JSON string ("12.50", "12,50")
// or as a JSON number.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = Amount(n.String())
	return nil
}

// Decimal parses the amount, rounding to cents. Zero and negative values
// are rejected with core.ErrInvalidAmount.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

// capAmount parses an optional category cap. Missing and zero caps mean
// the category is unlimited.
func capAmount(a *Amount) (*decimal.Decimal, error) {
	if a == nil {
		return nil, nil
	}
	s := strings.ReplaceAll(strings.TrimSpace(string(*a)), ",", ".")
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, core.ErrInvalidAmount
	}
	if d.IsZero() {
		return nil, nil
	}
	d = d.Round(2)
	return &d, nil
}

// decodeJSON reads a single JSON document into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps, datetime-local values and plain
// dates. Values without a zone are read in local time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.ErrInvalidDate
}

// parseTransactionFilter reads ?type= and ?limit= from a history query.
func parseTransactionFilter(query url.Values) (engine.TransactionFilter, error) {
	var f engine.TransactionFilter

	switch typ := core.TransactionType(strings.TrimSpace(query.Get("type"))); typ {
	case "":
	case core.Income, core.Withdrawal, core.Payment:
		f.Type = typ
	default:
		return f, fmt.Errorf("type must be one of: income withdrawal payment")
	}

	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("limit must be a non-negative number")
		}
		f.Limit = limit
	}
	return f, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = sanitizeInput(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
