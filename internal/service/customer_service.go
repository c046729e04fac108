package service

import (
	"context"
	"net/mail"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/util"
)

// customerStore is the persistence surface the customer registry needs.
type customerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error)
	CustomerFieldTaken(ctx context.Context, ownerID uuid.UUID, field, value string, excludeID uuid.UUID) (bool, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
}

// CustomerService owns retailer-scoped customer records.
type CustomerService struct {
	store  customerStore
	logger *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(store customerStore) *CustomerService {
	return &CustomerService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CustomerRequest carries customer contact details. All fields are
// optional; an empty name defaults to Anonymous.
type CustomerRequest struct {
	Name        string `json:"customer_name"`
	Phone       string `json:"customer_phone"`
	Email       string `json:"customer_email"`
	Description string `json:"description"`
}

// Create registers a new customer for the owner, enforcing per-owner
// uniqueness on name, phone and email.
func (s *CustomerService) Create(ctx context.Context, ownerID uuid.UUID, req *CustomerRequest) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Create")
	defer span.End()

	customer := &models.Customer{
		Name:        capitalize(req.Name),
		Description: req.Description,
		CreatedBy:   ownerID,
	}
	if customer.Name == "" {
		customer.Name = "Anonymous"
	}

	if req.Email != "" {
		email, err := normalizeEmail(req.Email)
		if err != nil {
			return nil, err
		}
		customer.Email = email
	}
	if req.Phone != "" {
		phone, err := sanitizePhoneNumber(req.Phone)
		if err != nil {
			return nil, err
		}
		customer.Phone = phone
	}

	if err := s.checkUniqueness(ctx, ownerID, customer, uuid.Nil); err != nil {
		return nil, err
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("Customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("owner_id", ownerID.String()))
	return customer, nil
}

// Update applies partial customer detail changes.
func (s *CustomerService) Update(ctx context.Context, ownerID, customerID uuid.UUID, req *CustomerRequest) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Update")
	defer span.End()

	customer, err := s.store.GetCustomerByID(ctx, ownerID, customerID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		customer.Name = capitalize(req.Name)
	}
	if req.Email != "" {
		email, err := normalizeEmail(req.Email)
		if err != nil {
			return nil, err
		}
		customer.Email = email
	}
	if req.Phone != "" {
		phone, err := sanitizePhoneNumber(req.Phone)
		if err != nil {
			return nil, err
		}
		customer.Phone = phone
	}
	if req.Description != "" {
		customer.Description = req.Description
	}

	if err := s.checkUniqueness(ctx, ownerID, customer, customerID); err != nil {
		return nil, err
	}

	if err := s.store.UpdateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Get retrieves one customer owned by ownerID
func (s *CustomerService) Get(ctx context.Context, ownerID, customerID uuid.UUID) (*models.Customer, error) {
	return s.store.GetCustomerByID(ctx, ownerID, customerID)
}

// List retrieves the owner's customers
func (s *CustomerService) List(ctx context.Context, ownerID uuid.UUID) ([]models.Customer, error) {
	return s.store.ListCustomers(ctx, ownerID)
}

func (s *CustomerService) checkUniqueness(ctx context.Context, ownerID uuid.UUID, customer *models.Customer, excludeID uuid.UUID) error {
	checks := []struct {
		field, value, label string
	}{
		{"customer_name", customer.Name, "name"},
		{"customer_phone", customer.Phone, "phone number"},
		{"customer_email", customer.Email, "email"},
	}
	for _, check := range checks {
		if check.value == "" || check.value == "Anonymous" {
			continue
		}
		taken, err := s.store.CustomerFieldTaken(ctx, ownerID, check.field, check.value, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Validation("customer with %s already exists", check.label)
		}
	}
	return nil
}

// normalizeEmail validates an email address and lowers its case.
func normalizeEmail(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", apperr.Validation("email not valid")
	}
	return value, nil
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	runes := []rune(strings.ToLower(value))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
