package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
)

// DateLayout is how ledger rows store the transaction date.
const DateLayout = "2006-01-02 15:04"

// Ports for outbound adapters.
type (
	// LedgerWriter appends committed transactions to an external ledger.
	// Appending a row whose TransactionID is already present returns the
	// existing reference.
	LedgerWriter interface {
		Append(ctx context.Context, row Row) (rowRef string, err error)
	}

	// LedgerReader lists ledger rows recorded for a given month.
	LedgerReader interface {
		ListEntries(ctx context.Context, year int, month int) ([]Row, error)
	}
)

// Row is one ledger line: date, type, amount, categories, description, id.
type Row struct {
	Date          time.Time
	Type          core.TransactionType
	Amount        decimal.Decimal
	Categories    []string
	Description   string
	TransactionID string
}

// NewRow builds a ledger row from a transaction and its resolved category names.
func NewRow(tx core.Transaction, categoryNames []string) Row {
	return Row{
		Date:          tx.Date,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Categories:    append([]string(nil), categoryNames...),
		Description:   tx.Description,
		TransactionID: tx.ID,
	}
}

func (r Row) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return errors.New("missing transaction id")
	}
	if !r.Amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	if r.Date.IsZero() {
		return core.ErrInvalidDate
	}
	return nil
}

// Values renders the row in sheet column order.
func (r Row) Values() []any {
	return []any{
		r.Date.Format(DateLayout),
		string(r.Type),
		r.Amount.StringFixed(2),
		strings.Join(r.Categories, ", "),
		r.Description,
		r.TransactionID,
	}
}

// ParseRow reverses Values. Missing trailing cells are treated as empty.
func ParseRow(cells []string) (Row, error) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	date, err := time.Parse(DateLayout, get(0))
	if err != nil {
		return Row{}, fmt.Errorf("parse date %q: %w", get(0), err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(get(2), ",", ""))
	if err != nil {
		return Row{}, fmt.Errorf("parse amount %q: %w", get(2), err)
	}

	var categories []string
	for _, name := range strings.Split(get(3), ",") {
		if name = strings.TrimSpace(name); name != "" {
			categories = append(categories, name)
		}
	}

	return Row{
		Date:          date,
		Type:          core.TransactionType(get(1)),
		Amount:        amount,
		Categories:    categories,
		Description:   get(4),
		TransactionID: get(5),
	}, nil
}
