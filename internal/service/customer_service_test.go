package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/storetest"
)

func TestSanitizePhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"international form", "+2348012345678", "+2348012345678", false},
		{"ten digits", "8012345678", "+2348012345678", false},
		{"eleven digits leading zero", "08012345678", "+2348012345678", false},
		{"thirteen digits with country code", "2348012345678", "+2348012345678", false},
		{"symbols rejected", "0801-234-5678", "", true},
		{"too short", "12345", "", true},
		{"wrong prefix thirteen digits", "1118012345678", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizePhoneNumber(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := normalizeEmail("  Ada.Lovelace@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace@example.com", got)

	_, err = normalizeEmail("not-an-email")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Ada", capitalize("aDA"))
	assert.Equal(t, "Ada", capitalize("  ada "))
	assert.Equal(t, "", capitalize("   "))
}

func TestCreateCustomer(t *testing.T) {
	st := storetest.New()
	svc := NewCustomerService(st)
	owner := uuid.New()

	customer, err := svc.Create(context.Background(), owner, &CustomerRequest{
		Name:  "ada lovelace",
		Phone: "08012345678",
		Email: "Ada@Example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada lovelace", customer.Name)
	assert.Equal(t, "+2348012345678", customer.Phone)
	assert.Equal(t, "ada@example.com", customer.Email)
	assert.Equal(t, owner, customer.CreatedBy)
}

func TestCreateCustomerDefaultsToAnonymous(t *testing.T) {
	st := storetest.New()
	svc := NewCustomerService(st)
	owner := uuid.New()

	first, err := svc.Create(context.Background(), owner, &CustomerRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", first.Name)

	// Anonymous is exempt from the name uniqueness rule.
	second, err := svc.Create(context.Background(), owner, &CustomerRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", second.Name)
}

func TestCreateCustomerRejectsDuplicateFields(t *testing.T) {
	st := storetest.New()
	svc := NewCustomerService(st)
	owner := uuid.New()
	ctx := context.Background()

	_, err := svc.Create(ctx, owner, &CustomerRequest{
		Name:  "Ada",
		Phone: "08012345678",
		Email: "ada@example.com",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner, &CustomerRequest{Name: "Ada"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(ctx, owner, &CustomerRequest{Name: "Grace", Phone: "08012345678"})
	require.Error(t, err)

	_, err = svc.Create(ctx, owner, &CustomerRequest{Name: "Grace", Email: "ADA@example.com"})
	require.Error(t, err)

	// Another owner can reuse the same details.
	_, err = svc.Create(ctx, uuid.New(), &CustomerRequest{Name: "Ada", Phone: "08012345678"})
	assert.NoError(t, err)
}

func TestUpdateCustomer(t *testing.T) {
	st := storetest.New()
	svc := NewCustomerService(st)
	owner := uuid.New()
	ctx := context.Background()

	customer, err := svc.Create(ctx, owner, &CustomerRequest{Name: "Ada", Phone: "08012345678"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, owner, customer.ID, &CustomerRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.Name)
	assert.Equal(t, "+2348012345678", updated.Phone)
	assert.Equal(t, "ada@example.com", updated.Email)
}

func TestUpdateCustomerKeepsOwnFieldsUnique(t *testing.T) {
	st := storetest.New()
	svc := NewCustomerService(st)
	owner := uuid.New()
	ctx := context.Background()

	customer, err := svc.Create(ctx, owner, &CustomerRequest{Name: "Ada", Phone: "08012345678"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, &CustomerRequest{Name: "Grace", Phone: "08087654321"})
	require.NoError(t, err)

	// Re-submitting the customer's own phone is not a conflict.
	_, err = svc.Update(ctx, owner, customer.ID, &CustomerRequest{Phone: "08012345678"})
	require.NoError(t, err)

	// Taking another customer's phone is.
	_, err = svc.Update(ctx, owner, customer.ID, &CustomerRequest{Phone: "08087654321"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGetCustomerScopedToOwner(t *testing.T) {
	st := storetest.New()
	svc := NewCustomerService(st)
	owner := uuid.New()

	customer := st.SeedCustomer(models.Customer{Name: "Ada", CreatedBy: owner})

	_, err := svc.Get(context.Background(), uuid.New(), customer.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	got, err := svc.Get(context.Background(), owner, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
}

func TestListCustomersSortedByName(t *testing.T) {
	st := storetest.New()
	svc := NewCustomerService(st)
	owner := uuid.New()

	st.SeedCustomer(models.Customer{Name: "Grace", CreatedBy: owner})
	st.SeedCustomer(models.Customer{Name: "Ada", CreatedBy: owner})

	customers, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "Ada", customers[0].Name)
	assert.Equal(t, "Grace", customers[1].Name)
}
