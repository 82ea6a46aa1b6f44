package services

import (
	"bytes"
	"html/template"
)

const (
	tmplOrderConfirmation    = "order_confirmation"
	tmplOutOfStock           = "out_of_stock"
	tmplLowStock             = "low_stock"
	tmplRestockRequest       = "restock_request"
	tmplPrescriptionDecision = "prescription_decision"
)

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"money": func(v float64) string { return money(v) },
}).Parse(`
{{define "layout_start"}}<div style="font-family:Arial,sans-serif;max-width:600px">
<h2 style="background:#0f766e;color:#fff;padding:12px">PharmaCare</h2>{{end}}
{{define "layout_end"}}<p style="color:#6b7280;font-size:12px">This is an automated message.</p></div>{{end}}

{{define "order_confirmation"}}{{template "layout_start"}}
<p>Hi {{.Name}},</p>
<p>Thank you for your order <strong>#{{.Order.ID.Hex}}</strong>.</p>
<table cellpadding="6" style="border-collapse:collapse">
<tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{money .Price}}</td></tr>
{{end}}</table>
<p><strong>Total: {{money .Order.TotalAmount}}</strong></p>
<p>Paid with {{.Order.PaymentMethod}} ending in {{.Order.CardLast4}}.</p>
{{template "layout_end"}}{{end}}

{{define "out_of_stock"}}{{template "layout_start"}}
<p>Order <strong>#{{.OrderID}}</strong> could not be shipped.</p>
<p><strong>{{.ProductName}}</strong>: requested {{.Requested}}, available {{.Available}}{{if .BatchNumber}} in batch {{.BatchNumber}}{{end}}.</p>
<p>Receive a new batch or adjust the order before shipping.</p>
{{template "layout_end"}}{{end}}

{{define "low_stock"}}{{template "layout_start"}}
<p><strong>{{.ProductName}}</strong> is running low: {{.TotalStock}} left (threshold {{.Threshold}}).</p>
{{template "layout_end"}}{{end}}

{{define "restock_request"}}{{template "layout_start"}}
<p>Dear {{.Supplier.ContactPerson}},</p>
<p>Please supply <strong>{{.Quantity}}</strong> units of <strong>{{.Product.Name}}</strong>{{if .Product.Brand}} ({{.Product.Brand}}){{end}}.</p>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{template "layout_end"}}{{end}}

{{define "prescription_decision"}}{{template "layout_start"}}
<p>Hi {{.Name}},</p>
<p>Your prescription from Dr. {{.Prescription.DoctorName}} has been <strong>{{.Prescription.Status}}</strong>.</p>
{{if .Prescription.ReviewNote}}<p>Note: {{.Prescription.ReviewNote}}</p>{{end}}
{{template "layout_end"}}{{end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
