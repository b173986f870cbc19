package payments

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"ms-venues/internal/db"
	"ms-venues/internal/models"

	"github.com/dustin/go-humanize"
)

const (
	ExportFilename    = "payments_export.csv"
	exportTimeLayout  = "2006-01-02 15:04"
	missing           = "—"
	titlePreviewRunes = 40
)

var exportHeader = []string{
	"ID", "Плательщик (email)", "Тип", "Связанный объект", "Сумма (₽)", "Статус", "Создан", "Оплачен",
}

// PaymentRow is a payment joined with what list views and the export show.
type PaymentRow struct {
	models.PaymentView
	PayerEmail string `json:"payer_email"`
	// EventTitle is the title of the booked event; empty for hires.
	EventTitle string `json:"event_title,omitempty"`
}

// rows resolves payer emails and booking event titles in batches.
func (s *Service) rows(ctx context.Context, items []models.Payment) ([]PaymentRow, error) {
	return joinRows(ctx, s.DB, items)
}

func joinRows(ctx context.Context, store *db.DB, items []models.Payment) ([]PaymentRow, error) {
	payerIDs := make([]string, 0, len(items))
	bookingIDs := make([]string, 0, len(items))
	for _, p := range items {
		payerIDs = append(payerIDs, p.PayerID)
		if p.BookingID != nil {
			bookingIDs = append(bookingIDs, *p.BookingID)
		}
	}

	emails, err := store.EmailsByID(ctx, payerIDs)
	if err != nil {
		return nil, err
	}
	bookings, err := store.BookingsByID(ctx, bookingIDs)
	if err != nil {
		return nil, err
	}
	eventIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		eventIDs = append(eventIDs, b.EventID)
	}
	events, err := store.EventsByID(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
	}
	bookingTitle := make(map[string]string, len(bookings))
	for _, b := range bookings {
		bookingTitle[b.ID] = titles[b.EventID]
	}

	out := make([]PaymentRow, len(items))
	for k := range items {
		p := &items[k]
		row := PaymentRow{PaymentView: models.NewPaymentView(p), PayerEmail: emails[p.PayerID]}
		if p.BookingID != nil {
			row.EventTitle = bookingTitle[*p.BookingID]
		}
		out[k] = row
	}
	return out, nil
}

// ExportCSV writes every payment matching f, ignoring its page.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, f db.PaymentFilter) error {
	f.Page = db.Page{Limit: db.MaxLimit}
	var all []PaymentRow
	// Pages are read in one transaction so concurrent writes cannot shift
	// the offsets between them.
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		page := f
		for {
			items, total, err := tx.ListPayments(ctx, page)
			if err != nil {
				return err
			}
			rows, err := joinRows(ctx, tx, items)
			if err != nil {
				return err
			}
			all = append(all, rows...)
			page.Offset += len(items)
			if len(items) == 0 || page.Offset >= total {
				return nil
			}
		}
	})
	if err != nil {
		return err
	}
	s.Log.LogPayment("EXPORT", "-", humanize.Comma(int64(len(all)))+" payments exported")
	return WriteCSV(w, all, s.Loc)
}

// WriteCSV renders rows as the semicolon-separated payments export.
func WriteCSV(w io.Writer, rows []PaymentRow, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(exportRecord(r, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRecord(r PaymentRow, loc *time.Location) []string {
	kind, target := missing, missing
	if t := r.Target; t != nil {
		kind = t.Kind.Label()
		switch t.Kind {
		case models.TargetBooking:
			target = truncateRunes(r.EventTitle, titlePreviewRunes) + "..."
		case models.TargetHire:
			target = t.ID
		}
	}

	paid := missing
	if r.PaidAt != nil {
		paid = r.PaidAt.In(loc).Format(exportTimeLayout)
	}
	created := missing
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.In(loc).Format(exportTimeLayout)
	}

	return []string{
		r.ShortID,
		r.PayerEmail,
		kind,
		target,
		FormatAmount(r.Amount.InexactFloat64()),
		r.StatusLabel,
		created,
		paid,
	}
}

// FormatAmount renders money with two decimals and spaces between
// thousands, e.g. 15 000.00.
func FormatAmount(v float64) string {
	if v == 0 {
		return missing
	}
	return humanize.FormatFloat("# ###.##", v)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
