package orders

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/tealeg/xlsx"

	"qtrestaurant/internal/models"
)

// Sheet names in the exported workbook.
const (
	ReservationsSheet = "Reservations"
	OrdersSheet       = "Orders"
)

// Workbook lays the view out as a spreadsheet.
func Workbook(v View) (*xlsx.File, error) {
	file := xlsx.NewFile()

	res, err := file.AddSheet(ReservationsSheet)
	if err != nil {
		return nil, errors.Wrap(err, "adding reservations sheet")
	}
	header := res.AddRow()
	for _, h := range []string{"ID", "Khách", "Bàn", "Số người", "Thời gian", "Điện thoại", "Trạng thái"} {
		header.AddCell().SetValue(h)
	}
	for _, r := range v.Reservations {
		row := res.AddRow()
		row.AddCell().SetValue(r.ID)
		row.AddCell().SetValue(r.CustomerName)
		row.AddCell().SetValue(tableName(r.Table))
		row.AddCell().SetValue(r.PartySize)
		row.AddCell().SetValue(r.ReservationTime)
		row.AddCell().SetValue(r.CustomerPhone)
		row.AddCell().SetValue(StatusLabel(string(r.Status)))
	}

	ord, err := file.AddSheet(OrdersSheet)
	if err != nil {
		return nil, errors.Wrap(err, "adding orders sheet")
	}
	header = ord.AddRow()
	for _, h := range []string{"ID", "Bàn", "Món", "Số món", "Tổng tiền", "Ghi chú", "Trạng thái"} {
		header.AddCell().SetValue(h)
	}
	for _, o := range v.Orders {
		row := ord.AddRow()
		row.AddCell().SetValue(o.ID)
		row.AddCell().SetValue(tableName(o.Table))
		row.AddCell().SetValue(dishes(o.Items))
		row.AddCell().SetValue(len(o.Items))
		row.AddCell().SetValue(o.Total)
		row.AddCell().SetValue(o.Notes)
		row.AddCell().SetValue(StatusLabel(string(o.Status)))
	}

	return file, nil
}

// Export writes the view as an .xlsx workbook.
func Export(w io.Writer, v View) error {
	file, err := Workbook(v)
	if err != nil {
		return err
	}
	return errors.Wrap(file.Write(w), "writing workbook")
}

func tableName(t *models.TableRef) string {
	if t == nil {
		return ""
	}
	return t.Name
}

func dishes(items []models.OrderItem) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.MenuItem == nil {
			continue
		}
		names = append(names, it.MenuItem.Name)
	}
	return strings.Join(names, ", ")
}
