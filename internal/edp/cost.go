package edp

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostStatus tracks whether a supplier invoice was settled.
type CostStatus string

const (
	CostPending CostStatus = "pending"
	CostPaid    CostStatus = "paid"
)

// Cost is a supplier invoice charged to a project.
type Cost struct {
	ID          string              `json:"id"`
	ProjectID   string              `json:"project_id"`
	Vendor      string              `json:"vendor"`
	Type        string              `json:"type"`
	Gross       decimal.NullDecimal `json:"gross"`
	Net         decimal.NullDecimal `json:"net"`
	Currency    string              `json:"currency"`
	InvoiceDate time.Time           `json:"invoice_date"`
	ReceiptDate time.Time           `json:"receipt_date"`
	DueDate     time.Time           `json:"due_date"`
	PaymentDate time.Time           `json:"payment_date"`
	Status      CostStatus          `json:"status"`
}

// Amount prefers the net amount and falls back to gross.
func (c Cost) Amount() decimal.Decimal {
	if c.Net.Valid {
		return c.Net.Decimal
	}
	if c.Gross.Valid {
		return c.Gross.Decimal
	}
	return decimal.Zero
}

var costColumns = map[string][]string{
	"id":       {"id", "id_costo", "folio", "n_factura"},
	"project":  {"proyecto_id", "id_proyecto", "proyecto", "project_id"},
	"vendor":   {"proveedor", "vendor"},
	"type":     {"tipo_costo", "tipo", "type"},
	"gross":    {"importe_bruto", "monto_bruto", "gross"},
	"net":      {"importe_neto", "monto_neto", "net"},
	"currency": {"moneda", "currency"},
	"invoice":  {"fecha_factura", "invoice_date"},
	"receipt":  {"fecha_recepcion", "receipt_date"},
	"due":      {"fecha_vencimiento", "due_date"},
	"payment":  {"fecha_pago", "payment_date"},
	"status":   {"estado_costo", "estado", "status"},
}

// NormalizeCosts converts supplier cost rows, collecting field issues.
func (n *Normalizer) NormalizeCosts(rows []map[string]any) ([]Cost, []FieldError) {
	out := make([]Cost, 0, len(rows))
	var issues []FieldError
	for i, row := range rows {
		f := foldRow(row)
		text := func(key string) string {
			v, _, _ := f.lookup(costColumns[key])
			return parseText(v)
		}
		money := func(key string) decimal.NullDecimal {
			v, _, _ := f.lookup(costColumns[key])
			d, err := parseMoney(v)
			if err != nil {
				issues = append(issues, FieldError{Row: i, Field: key, Value: v, Err: err})
			}
			return d
		}
		date := func(key string) time.Time {
			v, _, _ := f.lookup(costColumns[key])
			t, err := parseDate(v)
			if err != nil {
				issues = append(issues, FieldError{Row: i, Field: key, Value: v, Err: err})
			}
			return t
		}

		c := Cost{
			ID:          text("id"),
			ProjectID:   text("project"),
			Vendor:      text("vendor"),
			Type:        text("type"),
			Gross:       money("gross"),
			Net:         money("net"),
			Currency:    text("currency"),
			InvoiceDate: date("invoice"),
			ReceiptDate: date("receipt"),
			DueDate:     date("due"),
			PaymentDate: date("payment"),
			Status:      CostPending,
		}
		switch Fold(text("status")) {
		case "pagado", "pagada", "paid":
			c.Status = CostPaid
		}
		if !c.PaymentDate.IsZero() {
			c.Status = CostPaid
		}
		out = append(out, c)
	}
	return out, issues
}
