package dto

import (
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalogs/customer"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/catalogs/supplier"
)

// --- Products ---

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Name         string       `json:"name" binding:"required"`
	SKU          string       `json:"sku" binding:"required"`
	CostPrice    types.Money  `json:"costPrice"`
	SellingPrice *types.Money `json:"sellingPrice"`
	InitialStock int          `json:"initialStock"`
	SupplierID   *id.ID       `json:"supplierId"`
	Category     *string      `json:"category"`
	ImagePath    *string      `json:"imagePath"`
}

// ToEntity converts the request to a product.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.New(r.Name, r.SKU, r.CostPrice)
	p.SellingPrice = r.SellingPrice
	p.InitialStock = r.InitialStock
	p.StockQuantity = r.InitialStock
	p.SupplierID = r.SupplierID
	p.Category = r.Category
	p.ImagePath = r.ImagePath
	return p
}

// UpdateProductRequest for updating products. Stock quantity is absent
// on purpose: only the inventory engine writes it.
type UpdateProductRequest struct {
	Name         *string      `json:"name"`
	SKU          *string      `json:"sku"`
	CostPrice    *types.Money `json:"costPrice"`
	SellingPrice *types.Money `json:"sellingPrice"`
	SupplierID   *id.ID       `json:"supplierId"`
	Category     *string      `json:"category"`
	ImagePath    *string      `json:"imagePath"`
	Version      int          `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto an existing product.
func (r UpdateProductRequest) ApplyTo(p *product.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.SKU != nil {
		p.SKU = *r.SKU
	}
	if r.CostPrice != nil {
		p.CostPrice = *r.CostPrice
	}
	if r.SellingPrice != nil {
		p.SellingPrice = r.SellingPrice
	}
	if r.SupplierID != nil {
		p.SupplierID = r.SupplierID
	}
	if r.Category != nil {
		p.Category = r.Category
	}
	if r.ImagePath != nil {
		p.ImagePath = r.ImagePath
	}
	p.Version = r.Version
}

// --- Suppliers ---

// CreateSupplierRequest for creating suppliers.
type CreateSupplierRequest struct {
	Name          string  `json:"name" binding:"required"`
	ContactPerson *string `json:"contactPerson"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
}

// ToEntity converts the request to a supplier.
func (r CreateSupplierRequest) ToEntity() *supplier.Supplier {
	s := supplier.New(r.Name)
	s.ContactPerson = r.ContactPerson
	s.Phone = r.Phone
	s.Email = r.Email
	s.Address = r.Address
	return s
}

// UpdateSupplierRequest for updating suppliers.
type UpdateSupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contactPerson"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	Version       int     `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto an existing supplier.
func (r UpdateSupplierRequest) ApplyTo(s *supplier.Supplier) {
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.ContactPerson != nil {
		s.ContactPerson = r.ContactPerson
	}
	if r.Phone != nil {
		s.Phone = r.Phone
	}
	if r.Email != nil {
		s.Email = r.Email
	}
	if r.Address != nil {
		s.Address = r.Address
	}
	s.Version = r.Version
}

// --- Customers ---

// CreateCustomerRequest for creating customers.
type CreateCustomerRequest struct {
	Name     string  `json:"name" binding:"required"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	State    *string `json:"state"`
	District *string `json:"district"`
	Town     *string `json:"town"`
}

// ToEntity converts the request to a customer.
func (r CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.New(r.Name)
	c.Phone = r.Phone
	c.Email = r.Email
	c.Address = r.Address
	c.State = r.State
	c.District = r.District
	c.Town = r.Town
	return c
}

// UpdateCustomerRequest for updating customers.
type UpdateCustomerRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	State    *string `json:"state"`
	District *string `json:"district"`
	Town     *string `json:"town"`
	Version  int     `json:"version" binding:"required,min=1"`
}

// ApplyTo overlays the request onto an existing customer.
func (r UpdateCustomerRequest) ApplyTo(c *customer.Customer) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Phone != nil {
		c.Phone = r.Phone
	}
	if r.Email != nil {
		c.Email = r.Email
	}
	if r.Address != nil {
		c.Address = r.Address
	}
	if r.State != nil {
		c.State = r.State
	}
	if r.District != nil {
		c.District = r.District
	}
	if r.Town != nil {
		c.Town = r.Town
	}
	c.Version = r.Version
}
