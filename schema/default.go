package schema

// DefaultName is the schema used when a job does not name one explicitly.
const DefaultName = "invoice"

// DefaultInvoiceSchema is registered at startup when no schema directory is
// configured, so a fresh deployment can process documents out of the box.
const DefaultInvoiceSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "invoice_number": {"type": "string"},
    "issuer": {"type": "string"},
    "recipient": {"type": "string"},
    "issue_date": {"type": "string"},
    "due_date": {"type": "string"},
    "currency": {"type": "string"},
    "total": {"type": ["number", "string"]},
    "line_items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "description": {"type": "string"},
          "quantity": {"type": ["number", "string"]},
          "amount": {"type": ["number", "string"]}
        },
        "required": ["description"]
      }
    }
  },
  "required": ["invoice_number", "issuer", "total"]
}`
