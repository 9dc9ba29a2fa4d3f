package catalog_repo

import (
	"stockbook/internal/domain/catalogs/customer"
	"stockbook/internal/infrastructure/storage/postgres"
)

const customerTable = "customers"

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*customer.Customer](
			txm,
			customerTable,
			postgres.ExtractDBColumns[customer.Customer](),
			[]string{"name", "phone", "email", "town"},
			func() *customer.Customer { return &customer.Customer{} },
		),
	}
}
