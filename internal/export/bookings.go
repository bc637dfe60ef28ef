package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"guesthouse/internal/models"

	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Bookings"

var bookingColumns = []struct {
	title string
	width float64
	value func(b *models.Booking) interface{}
}{
	{"Booking ID", 12, func(b *models.Booking) interface{} { return b.ID }},
	{"Created", 20, func(b *models.Booking) interface{} { return b.Timestamp }},
	{"Name", 24, func(b *models.Booking) interface{} { return b.Name }},
	{"Email", 28, func(b *models.Booking) interface{} { return b.Email }},
	{"Phone", 16, func(b *models.Booking) interface{} { return b.Phone }},
	{"Room", 14, func(b *models.Booking) interface{} { return b.RoomType }},
	{"Check-in", 12, func(b *models.Booking) interface{} { return b.CheckIn }},
	{"Check-out", 12, func(b *models.Booking) interface{} { return b.CheckOut }},
	{"Nights", 8, func(b *models.Booking) interface{} { return b.Nights }},
	{"Adults", 8, func(b *models.Booking) interface{} { return b.Adults }},
	{"Children", 9, func(b *models.Booking) interface{} { return b.Children }},
	{"Required", 12, func(b *models.Booking) interface{} { return b.RequiredAmount }},
	{"Paid", 12, func(b *models.Booking) interface{} { return optional(b.PaidAmount) }},
	{"Status", 16, func(b *models.Booking) interface{} { return b.Status }},
	{"Payment", 12, func(b *models.Booking) interface{} { return b.PaymentStatus }},
	{"Reference", 24, func(b *models.Booking) interface{} { return b.PaymentReference }},
	{"Note", 40, func(b *models.Booking) interface{} { return b.PaymentNote }},
	{"Refund", 12, func(b *models.Booking) interface{} { return optional(b.RefundAmount) }},
	{"Refund reason", 30, func(b *models.Booking) interface{} { return b.RefundReason }},
	{"Message", 40, func(b *models.Booking) interface{} { return b.Message }},
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// BookingsWorkbook lays the bookings out one per row, newest first, under a
// styled header row. The caller closes the returned file.
func BookingsWorkbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating header style: %w", err)
	}

	for i, col := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, col.title)
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(bookingsSheet, name, name, col.width)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingColumns))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", headerStyle)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	sorted := append([]models.Booking(nil), bookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	styles := make(map[string]int)
	for r := range sorted {
		b := &sorted[r]
		row := r + 2
		for c, col := range bookingColumns {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, col.value(b))
		}

		color := statusColor(b.Status)
		if color == "" {
			continue
		}
		styleID, ok := styles[color]
		if !ok {
			styleID, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			})
			if err != nil {
				continue
			}
			styles[color] = styleID
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(bookingColumns), row)
		_ = f.SetCellStyle(bookingsSheet, first, last, styleID)
	}

	return f, nil
}

func statusColor(status string) string {
	switch status {
	case models.StatusConfirmed:
		return "#E2EFDA"
	case models.StatusPendingPayment:
		return "#FFF2CC"
	case models.StatusFailed, models.StatusRefunded:
		return "#FCE4D6"
	default:
		return ""
	}
}

// WriteBookings streams the workbook to w.
func WriteBookings(w io.Writer, bookings []models.Booking) error {
	f, err := BookingsWorkbook(bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveBookings writes a timestamped copy under dir and returns its path.
func SaveBookings(dir string, bookings []models.Booking, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := BookingsWorkbook(bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, fmt.Sprintf("bookings_%s.xlsx", now.Format("2006-01-02_150405")))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

// FileName is the download name offered to the browser.
func FileName(now time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", now.Format("2006-01-02"))
}
