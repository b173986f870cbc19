package payments

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"ms-venues/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "15 000.00", FormatAmount(15000))
	assert.Equal(t, "999.90", FormatAmount(999.9))
	assert.Equal(t, "1 000 000.01", FormatAmount(1000000.01))
	assert.Equal(t, "—", FormatAmount(0))
}

func TestWriteCSVUsesDisplayZone(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	booking := "b1"
	p := &models.Payment{
		ID:        "abcdef12-0000-0000-0000-000000000000",
		BookingID: &booking,
		Amount:    decimal.RequireFromString("500"),
		Status:    models.PaymentPending,
		CreatedAt: time.Date(2025, 1, 31, 22, 15, 0, 0, time.UTC),
	}
	rows := []PaymentRow{{PaymentView: models.NewPaymentView(p), PayerEmail: "a@b.c", EventTitle: "Короткое"}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows, msk))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ABCDEF12;a@b.c;Бронирование;Короткое...;500.00;ожидает оплаты;2025-02-01 01:15;—", lines[1])
}

func TestWriteCSVWithoutTarget(t *testing.T) {
	p := &models.Payment{ID: "x", Amount: decimal.RequireFromString("1"), Status: models.PaymentFailed}
	rows := []PaymentRow{{PaymentView: models.NewPaymentView(p)}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows, nil))
	assert.Contains(t, buf.String(), "X;;—;—;1.00;не удалось;—;—")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "При", truncateRunes("Привет", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 40))
}
