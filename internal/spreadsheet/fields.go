package spreadsheet

// Field describes how one order column is recognised in an imported sheet.
type Field struct {
	Key      string
	Label    string
	Required bool
	Aliases  []string
}

var fields = []Field{
	{Key: "order_date", Label: "Order Date"},
	{Key: "ordered_by", Label: "Ordered By", Required: true},
	{Key: "provider", Label: "Provider", Required: true, Aliases: []string{"PROVEEDOR"}},
	{Key: "sku", Label: "SKU", Aliases: []string{"REFERENCIA"}},
	{Key: "description", Label: "Description", Required: true, Aliases: []string{"DESCRIPCION"}},
	{Key: "quantity", Label: "Quantity", Aliases: []string{"CANTIDAD"}},
	{Key: "unit_price", Label: "Unit Price", Aliases: []string{"PRECIO (UNIDAD)"}},
	{Key: "project_code", Label: "Project Code", Aliases: []string{"PROYECTO"}},
	{Key: "po_number", Label: "PO Number"},
	{Key: "received_date", Label: "Received Date"},
	{Key: "storage_location", Label: "Storage Location"},
	{Key: "is_received", Label: "Received?"},
}

// Fields returns the import schema in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// RequiredFields returns the schema fields that every order must carry.
func RequiredFields() []Field {
	var out []Field
	for _, f := range fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// FieldByKey looks up a schema field.
func FieldByKey(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
