package engine

import (
	"fmt"
	"slices"

	"github.com/kiwari-pos/opsdash/internal/model"
)

// CustomerPatch holds the fields UpdateCustomer may change. Aggregates
// (order count, spend) are maintained by CreateOrder and cannot be patched.
type CustomerPatch struct {
	Name        *string
	Email       *string
	Phone       *string
	Address     *string
	IsVIP       *bool
	LoyaltyTier *string
	Preferences *model.Preferences
}

// AddCustomer adds a customer. ID and JoinDate are assigned when empty.
type AddCustomer struct {
	Customer model.Customer
}

// UpdateCustomer patches a customer.
type UpdateCustomer struct {
	CustomerID string
	Patch      CustomerPatch
}

// RemoveCustomer deletes a customer.
type RemoveCustomer struct {
	CustomerID string
}

func (a AddCustomer) apply(tx *txn) error {
	c := a.Customer
	if c.ID == "" {
		c.ID = tx.e.newID()
	} else if indexCustomer(tx.state.Customers, c.ID) >= 0 {
		return fmt.Errorf("customer %s: %w", c.ID, ErrAlreadyExists)
	}
	if c.JoinDate.IsZero() {
		c.JoinDate = tx.now
	}
	c.Preferences = clonePreferences(c.Preferences)

	tx.state.Customers = append(tx.customers(), c)
	tx.markDirty(maskCustomers)
	tx.customer = c
	return nil
}

func (a UpdateCustomer) apply(tx *txn) error {
	i := indexCustomer(tx.state.Customers, a.CustomerID)
	if i < 0 {
		return ErrNotFound
	}
	p := a.Patch
	cs := tx.customers()
	c := &cs[i]
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.IsVIP != nil {
		c.IsVIP = *p.IsVIP
	}
	if p.LoyaltyTier != nil {
		c.LoyaltyTier = *p.LoyaltyTier
	}
	if p.Preferences != nil {
		c.Preferences = clonePreferences(*p.Preferences)
	}
	tx.markDirty(maskCustomers)
	tx.customer = *c
	return nil
}

func (a RemoveCustomer) apply(tx *txn) error {
	i := indexCustomer(tx.state.Customers, a.CustomerID)
	if i < 0 {
		return ErrNotFound
	}
	tx.state.Customers = slices.Delete(tx.customers(), i, i+1)
	tx.markDirty(maskCustomers)
	return nil
}

func clonePreferences(p model.Preferences) model.Preferences {
	p.Favorites = slices.Clone(p.Favorites)
	p.DietaryRestrictions = slices.Clone(p.DietaryRestrictions)
	return p
}

// AddCustomer adds a customer and returns it as stored.
func (e *Engine) AddCustomer(c model.Customer) model.Customer {
	return e.run(AddCustomer{Customer: c}).customer
}

// UpdateCustomer patches a customer.
func (e *Engine) UpdateCustomer(id string, p CustomerPatch) {
	e.run(UpdateCustomer{CustomerID: id, Patch: p})
}

// RemoveCustomer deletes a customer.
func (e *Engine) RemoveCustomer(id string) {
	e.run(RemoveCustomer{CustomerID: id})
}
