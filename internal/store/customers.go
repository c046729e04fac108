package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
)

// CreateCustomer inserts a new customer for the owner. Per-owner
// uniqueness on name, phone and email is enforced by partial unique
// indexes and surfaces as Validation errors.
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}

	err := s.db.GetContext(ctx, customer, `
		INSERT INTO customers (id, customer_name, customer_phone, customer_email, description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		customer.ID, customer.Name, customer.Phone, customer.Email,
		customer.Description, customer.CreatedBy)
	if isUniqueViolation(err, "") {
		return apperr.Validation("customer with the same name, phone or email already exists")
	}
	return err
}

// GetCustomerByID retrieves a customer owned by ownerID
func (s *Store) GetCustomerByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer,
		"SELECT * FROM customers WHERE id = $1 AND created_by = $2", id, ownerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("customer not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListCustomers retrieves the owner's customers ordered by name
func (s *Store) ListCustomers(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.db.SelectContext(ctx, &customers,
		"SELECT * FROM customers WHERE created_by = $1 ORDER BY customer_name", ownerID)
	return customers, err
}

// CustomerFieldTaken reports whether another customer of the owner already
// uses the given value in the named column.
func (s *Store) CustomerFieldTaken(ctx context.Context, ownerID uuid.UUID, field, value string, excludeID uuid.UUID) (bool, error) {
	var query string
	switch field {
	case "customer_name":
		query = "SELECT EXISTS(SELECT 1 FROM customers WHERE created_by = $1 AND customer_name = $2 AND id <> $3)"
	case "customer_phone":
		query = "SELECT EXISTS(SELECT 1 FROM customers WHERE created_by = $1 AND customer_phone = $2 AND id <> $3)"
	case "customer_email":
		query = "SELECT EXISTS(SELECT 1 FROM customers WHERE created_by = $1 AND customer_email = $2 AND id <> $3)"
	default:
		return false, fmt.Errorf("unknown customer field %q", field)
	}

	var taken bool
	err := s.db.GetContext(ctx, &taken, query, ownerID, value, excludeID)
	return taken, err
}

// UpdateCustomer persists customer detail changes
func (s *Store) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	err := s.db.GetContext(ctx, customer, `
		UPDATE customers
		SET customer_name = $1, customer_phone = $2, customer_email = $3,
			description = $4, updated_at = NOW()
		WHERE id = $5 AND created_by = $6
		RETURNING *`,
		customer.Name, customer.Phone, customer.Email, customer.Description,
		customer.ID, customer.CreatedBy)
	if err == sql.ErrNoRows {
		return apperr.NotFound("customer not found: %s", customer.ID)
	}
	if isUniqueViolation(err, "") {
		return apperr.Validation("customer with the same name, phone or email already exists")
	}
	return err
}
