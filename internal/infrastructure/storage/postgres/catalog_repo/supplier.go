package catalog_repo

import (
	"stockbook/internal/domain/catalogs/supplier"
	"stockbook/internal/infrastructure/storage/postgres"
)

const supplierTable = "suppliers"

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txm *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*supplier.Supplier](
			txm,
			supplierTable,
			postgres.ExtractDBColumns[supplier.Supplier](),
			[]string{"name", "contact_person", "phone", "email"},
			func() *supplier.Supplier { return &supplier.Supplier{} },
		),
	}
}
