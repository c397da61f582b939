package core

import (
	"github.com/google/uuid"
)

// Book carries only the identity the loan lifecycle needs; all catalog
// metadata lives with the catalog component. Availability is derived, never
// stored: a book is available iff no open loan references it.
type Book struct {
	ID    uuid.UUID
	Title string
}
