// Package events defines the closed set of domain events the pipeline emits
// and the typed payload carried by each kind.
package events

import "github.com/google/uuid"

// Type identifies one of the four domain event kinds.
type Type string

const (
	ProductCreated  Type = "product.created"
	ProductUpdated  Type = "product.updated"
	ProductDeleted  Type = "product.deleted"
	ImportCompleted Type = "import.completed"
)

// Types lists every valid event type, in the order subscriptions expose them.
var Types = []Type{ProductCreated, ProductUpdated, ProductDeleted, ImportCompleted}

// Valid reports whether t is one of the known event kinds.
func (t Type) Valid() bool {
	switch t {
	case ProductCreated, ProductUpdated, ProductDeleted, ImportCompleted:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// ProductPayload accompanies product.created and product.updated.
type ProductPayload struct {
	ID    uuid.UUID `json:"id"`
	SKU   string    `json:"sku"`
	Name  string    `json:"name"`
	Price *float64  `json:"price"`
}

// ProductDeletedPayload accompanies product.deleted.
type ProductDeletedPayload struct {
	ID  uuid.UUID `json:"id"`
	SKU string    `json:"sku"`
}

// ImportCompletedPayload accompanies import.completed.
type ImportCompletedPayload struct {
	UploadID string `json:"upload_id"`
	Imported int    `json:"imported"`
}

// Event couples an event type with its payload. Payload must be
// JSON-serializable; the typed constructors below keep kind and payload
// matched at compile time.
type Event struct {
	Type    Type
	Payload interface{}
}

func NewProductCreated(p ProductPayload) Event {
	return Event{Type: ProductCreated, Payload: p}
}

func NewProductUpdated(p ProductPayload) Event {
	return Event{Type: ProductUpdated, Payload: p}
}

func NewProductDeleted(p ProductDeletedPayload) Event {
	return Event{Type: ProductDeleted, Payload: p}
}

func NewImportCompleted(p ImportCompletedPayload) Event {
	return Event{Type: ImportCompleted, Payload: p}
}
