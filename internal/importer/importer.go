package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/models"
)

// Column positions in the SeminarLedger workshop export.
const (
	colDate              = 0
	colCustomer          = 1
	colTimeLocation      = 2
	colContactName       = 3
	colPhone             = 4
	colEmail             = 5
	colOtherEmail        = 6
	colInstructor        = 7
	colInstructorCFPID   = 8
	colWebinarCompleted  = 9
	colWebinarSigninLink = 10
	colLocation          = 12
	colAllMaterialsSent  = 14
	colAttendeesCount    = 15
	colRosterReceived    = 16
	colBatchNumber       = 17
	colBatchDate         = 18
	colInvoiceSent       = 20
	colInvoiceAmount     = 21
	colInvoiceReceived   = 22
	colSettlementReport  = 23
	colEvalsToCFPB       = 24
	colNotes             = 25
)

// Result counts what an import did.
type Result struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Upserter stores a workshop keyed by (seminar_date, customer).
type Upserter interface {
	Upsert(ctx context.Context, w *models.Workshop) (inserted bool, err error)
}

// DateInvalidator drops cached sign-in lookups for a date.
type DateInvalidator interface {
	InvalidateDate(ctx context.Context, date time.Time) error
}

// Importer loads workshop rows from CSV.
type Importer struct {
	store  Upserter
	cache  DateInvalidator
	logger *zap.Logger
}

// New creates an importer. cache may be nil.
func New(store Upserter, cache DateInvalidator, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, cache: cache, logger: logger}
}

// ParseDate reads a calendar date in any common layout and returns it at UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "0123456789") {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if t.Year() <= 1970 {
		return time.Time{}, false
	}
	return t, true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func dateCell(row []string, i int) *time.Time {
	t, ok := ParseDate(cell(row, i))
	if !ok {
		return nil
	}
	return &t
}

func intCell(row []string, i int) *int {
	n, err := strconv.Atoi(cell(row, i))
	if err != nil {
		return nil
	}
	return &n
}

func amountCell(row []string, i int) *float64 {
	raw := strings.NewReplacer("$", "", ",", "").Replace(cell(row, i))
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

// RowWorkshop maps one CSV row. ok is false when the row has no usable date.
func RowWorkshop(row []string) (*models.Workshop, bool) {
	date, ok := ParseDate(cell(row, colDate))
	if !ok {
		return nil, false
	}
	return &models.Workshop{
		SeminarDate:       date,
		Customer:          cell(row, colCustomer),
		TimeLocation:      cell(row, colTimeLocation),
		ContactName:       cell(row, colContactName),
		Phone:             cell(row, colPhone),
		Email:             cell(row, colEmail),
		OtherEmail:        cell(row, colOtherEmail),
		Instructor:        cell(row, colInstructor),
		InstructorCFPID:   cell(row, colInstructorCFPID),
		WebinarCompleted:  cell(row, colWebinarCompleted),
		WebinarSigninLink: cell(row, colWebinarSigninLink),
		Location:          cell(row, colLocation),
		AllMaterialsSent:  dateCell(row, colAllMaterialsSent),
		AttendeesCount:    intCell(row, colAttendeesCount),
		RosterReceived:    cell(row, colRosterReceived),
		BatchNumber:       intCell(row, colBatchNumber),
		BatchDate:         dateCell(row, colBatchDate),
		InvoiceSent:       dateCell(row, colInvoiceSent),
		InvoiceAmount:     amountCell(row, colInvoiceAmount),
		InvoiceReceived:   dateCell(row, colInvoiceReceived),
		SettlementReport:  cell(row, colSettlementReport),
		EvalsToCFPB:       cell(row, colEvalsToCFPB),
		Notes:             cell(row, colNotes),
	}, true
}

// Import reads r, skipping the header row, and upserts every dated row.
// A store failure aborts the import and returns the counts so far.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("read header: %w", err)
	}

	touched := make(map[time.Time]struct{})
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read line %d: %w", line, err)
		}
		w, ok := RowWorkshop(row)
		if !ok {
			res.Skipped++
			continue
		}
		inserted, err := im.store.Upsert(ctx, w)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if inserted {
			res.Imported++
		} else {
			res.Updated++
		}
		touched[w.SeminarDate] = struct{}{}
	}

	if im.cache != nil {
		for d := range touched {
			if err := im.cache.InvalidateDate(ctx, d); err != nil {
				im.logger.Warn("invalidate workshop lookup cache", zap.Time("date", d), zap.Error(err))
			}
		}
	}
	im.logger.Info("workshop import complete",
		zap.Int("imported", res.Imported), zap.Int("updated", res.Updated), zap.Int("skipped", res.Skipped))
	return res, nil
}
