package event

// Type identifies the type of domain event
type Type string

const (
	TypeInvoiceUploaded      Type = "invoice.uploaded"
	TypeInvoiceAdded         Type = "invoice.added"
	TypeInvoiceUpdated       Type = "invoice.updated"
	TypeInvoiceStatusChanged Type = "invoice.status_changed"
	TypeExtractionFailed     Type = "invoice.extraction_failed"
	TypeInvoicesImported     Type = "invoices.imported"
)

// AllTypes lists every defined event type
func AllTypes() []Type {
	return []Type{
		TypeInvoiceUploaded,
		TypeInvoiceAdded,
		TypeInvoiceUpdated,
		TypeInvoiceStatusChanged,
		TypeExtractionFailed,
		TypeInvoicesImported,
	}
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}
