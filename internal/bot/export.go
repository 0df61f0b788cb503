package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"barberbot/internal/models"
	"barberbot/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	ordersSheet   = "Buyurtmalar"
	scheduleSheet = "Jadval"
)

// exportOrders writes upcoming orders for the configured number of days to
// an xlsx file and returns its path.
func (b *Bot) exportOrders(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	orders, err := b.booking.UpcomingOrders(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting orders: %w", err)
	}

	today := b.booking.Today()
	last := lastExportDate(today, b.config.Exports.Days)
	kept := orders[:0]
	for _, o := range orders {
		if o.Date <= last {
			kept = append(kept, o)
		}
	}

	fileName := fmt.Sprintf("orders_%s_%s.xlsx", today, time.Now().Format("150405"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)
	if err := writeOrdersWorkbook(filePath, kept, len(b.booking.Universe())); err != nil {
		return "", err
	}

	b.logger.Info().Str("file_path", filePath).Int("orders", len(kept)).Msg("Excel file created")
	return filePath, nil
}

func lastExportDate(today string, days int) string {
	t, err := time.Parse(models.DateLayout, today)
	if err != nil || days <= 0 {
		return today
	}
	return t.AddDate(0, 0, days-1).Format(models.DateLayout)
}

// writeOrdersWorkbook saves two sheets: a flat order list and a barber by
// date grid colored by how full each day is. slotsPerDay sizes the grid.
func writeOrdersWorkbook(path string, orders []models.Order, slotsPerDay int) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ordersSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	writeOrderList(f, orders)
	if _, err := f.NewSheet(scheduleSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	writeScheduleGrid(f, orders, slotsPerDay)

	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

func writeOrderList(f *excelize.File, orders []models.Order) {
	headers := []string{"ID", "Sana", "Vaqt", "Xizmat", "Sartarosh", "Mijoz", "Telefon", "Yaratilgan"}
	header, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ordersSheet, cell, h)
		_ = f.SetCellStyle(ordersSheet, cell, cell, header)
	}

	for i, o := range orders {
		row := i + 2
		values := []interface{}{
			o.ID, service.DisplayDate(o.Date), o.Time, o.ServiceName, o.BarberName,
			o.FullName, o.Phone, o.CreatedAt.Format("02.01.2006 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(ordersSheet, cell, v)
		}
	}

	widths := []float64{8, 12, 8, 22, 20, 25, 16, 18}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(ordersSheet, col, col, w)
	}
}

func writeScheduleGrid(f *excelize.File, orders []models.Order, slotsPerDay int) {
	var dates, barbers []string
	seenDate := map[string]bool{}
	seenBarber := map[string]bool{}
	counts := map[string]map[string]int{}
	for _, o := range orders {
		if !seenDate[o.Date] {
			seenDate[o.Date] = true
			dates = append(dates, o.Date)
		}
		if !seenBarber[o.BarberName] {
			seenBarber[o.BarberName] = true
			barbers = append(barbers, o.BarberName)
			counts[o.BarberName] = map[string]int{}
		}
		counts[o.BarberName][o.Date]++
	}
	sort.Strings(dates)
	sort.Strings(barbers)

	bold, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellValue(scheduleSheet, "A1", "Sartarosh")
	_ = f.SetCellStyle(scheduleSheet, "A1", "A1", bold)
	for i, d := range dates {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		_ = f.SetCellValue(scheduleSheet, cell, service.DisplayDate(d))
		_ = f.SetCellStyle(scheduleSheet, cell, cell, bold)
	}

	for r, name := range barbers {
		row := r + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(scheduleSheet, cell, name)
		for c, d := range dates {
			cell, _ := excelize.CoordinatesToCellName(c+2, row)
			n := counts[name][d]
			if slotsPerDay > 0 {
				_ = f.SetCellValue(scheduleSheet, cell, fmt.Sprintf("%d/%d", n, slotsPerDay))
			} else {
				_ = f.SetCellValue(scheduleSheet, cell, n)
			}
			if style, err := loadStyle(f, n, slotsPerDay); err == nil {
				_ = f.SetCellStyle(scheduleSheet, cell, cell, style)
			}
		}
	}

	_ = f.SetColWidth(scheduleSheet, "A", "A", 25)
}

// loadStyle fills a grid cell white when free, green when partly booked and
// red when every slot is taken.
func loadStyle(f *excelize.File, booked, slotsPerDay int) (int, error) {
	color := "#FFFFFF"
	switch {
	case slotsPerDay > 0 && booked >= slotsPerDay:
		color = "#FFC7CE"
	case booked > 0:
		color = "#C6EFCE"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
