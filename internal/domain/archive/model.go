// Package archive implements the trash: deleted records live on as
// tombstones holding a full snapshot, and most of them can be restored
// with their original primary keys.
package archive

import (
	"time"

	"stockbook/internal/core/id"
)

// Entity types stored in the trash.
const (
	EntityProduct  = "product"
	EntitySupplier = "supplier"
	EntityCustomer = "customer"
	EntityInvoice  = "invoice"
	EntityPayment  = "customer_payment"
	EntityUser     = "user"
)

// CompressionAlgo specifies how RelatedData is compressed.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Tombstone is one trashed record. Data holds the canonical JSON
// snapshot of the entity itself; RelatedData carries whatever the
// restore path needs (linked IDs, line items), compressed when large.
type Tombstone struct {
	ID              id.ID           `db:"id" json:"id"`
	EntityType      string          `db:"entity_type" json:"entityType"`
	EntityID        id.ID           `db:"entity_id" json:"entityId"`
	Data            []byte          `db:"data" json:"-"`
	RelatedData     []byte          `db:"related_data" json:"-"`
	CompressionAlgo CompressionAlgo `db:"compression_algo" json:"-"`
	DeletedBy       string          `db:"deleted_by" json:"deletedBy"`
	DeletedAt       time.Time       `db:"deleted_at" json:"deletedAt"`
}

// DeletedRecord is a trash listing row.
type DeletedRecord struct {
	ID          id.ID     `json:"id"`
	EntityType  string    `json:"entityType"`
	EntityID    id.ID     `json:"entityId"`
	DisplayName string    `json:"displayName"`
	DeletedBy   string    `json:"deletedBy"`
	DeletedAt   time.Time `json:"deletedAt"`
}
