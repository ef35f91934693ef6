package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
	"github.com/ertargyn/realty-backend/internal/repository"
)

// fakeListingRepo хранит объявления в памяти.
type fakeListingRepo struct {
	properties map[uuid.UUID]*models.Property
	photos     map[uuid.UUID][]models.PropertyPhoto
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{
		properties: make(map[uuid.UUID]*models.Property),
		photos:     make(map[uuid.UUID][]models.PropertyPhoto),
	}
}

func (f *fakeListingRepo) Create(ctx context.Context, property *models.Property) error {
	property.ID = uuid.New()
	copied := *property
	f.properties[property.ID] = &copied
	return nil
}

func (f *fakeListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	property, ok := f.properties[id]
	if !ok {
		return nil, apperror.ErrPropertyNotFound
	}
	copied := *property
	return &copied, nil
}

func (f *fakeListingRepo) Update(ctx context.Context, property *models.Property) error {
	if _, ok := f.properties[property.ID]; !ok {
		return apperror.ErrPropertyNotFound
	}
	copied := *property
	f.properties[property.ID] = &copied
	return nil
}

func (f *fakeListingRepo) List(ctx context.Context, params repository.PropertyListParams) ([]models.Property, error) {
	var out []models.Property
	for _, p := range f.properties {
		if params.OwnerID != nil && p.OwnerID != *params.OwnerID {
			continue
		}
		if params.Status != "" && p.Status != params.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeListingRepo) AddPhoto(ctx context.Context, photo *models.PropertyPhoto) error {
	photo.ID = uuid.New()
	f.photos[photo.PropertyID] = append(f.photos[photo.PropertyID], *photo)
	return nil
}

func (f *fakeListingRepo) ListPhotos(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyPhoto, error) {
	return f.photos[propertyID], nil
}

func validPropertyInput() PropertyInput {
	return PropertyInput{
		Title:       "Двухкомнатная квартира",
		Description: "Светлая квартира рядом с метро",
		Address:     "ул. Абая, 10",
		City:        "Алматы",
		DealType:    models.DealTypeRent,
		Price:       300000,
		Rooms:       2,
	}
}

func TestPropertyService_CreateRequiresListingRole(t *testing.T) {
	repo := newFakeListingRepo()
	svc := NewPropertyService(repo, nil)
	ctx := context.Background()

	client := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleClient)}
	_, err := svc.CreateProperty(ctx, client, validPropertyInput())
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	landlord := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleLandlord)}
	property, err := svc.CreateProperty(ctx, landlord, validPropertyInput())
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusAvailable, property.Status)
	assert.Equal(t, landlord.UserID, property.OwnerID)
}

func TestPropertyService_CreateValidatesInput(t *testing.T) {
	repo := newFakeListingRepo()
	svc := NewPropertyService(repo, nil)
	ctx := context.Background()
	landlord := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleLandlord)}

	in := validPropertyInput()
	in.Price = 0
	_, err := svc.CreateProperty(ctx, landlord, in)
	assert.True(t, apperror.IsValidation(err))

	in = validPropertyInput()
	in.DealType = "exchange"
	_, err = svc.CreateProperty(ctx, landlord, in)
	assert.True(t, apperror.IsValidation(err))

	in = validPropertyInput()
	in.Title = "ab"
	_, err = svc.CreateProperty(ctx, landlord, in)
	assert.True(t, apperror.IsValidation(err))
}

func TestPropertyService_UpdateForeignForbidden(t *testing.T) {
	repo := newFakeListingRepo()
	svc := NewPropertyService(repo, nil)
	ctx := context.Background()

	landlord := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleLandlord)}
	property, err := svc.CreateProperty(ctx, landlord, validPropertyInput())
	require.NoError(t, err)

	stranger := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleLandlord)}
	_, err = svc.UpdateProperty(ctx, stranger, property.ID, validPropertyInput())
	assert.True(t, apperror.IsForbidden(err))

	// Брокер обходит проверку владения.
	broker := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleBroker)}
	in := validPropertyInput()
	in.Price = 350000
	updated, err := svc.UpdateProperty(ctx, broker, property.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 350000.0, updated.Price)
}

func TestPropertyService_SetStatus(t *testing.T) {
	repo := newFakeListingRepo()
	svc := NewPropertyService(repo, nil)
	ctx := context.Background()

	landlord := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleLandlord)}
	property, err := svc.CreateProperty(ctx, landlord, validPropertyInput())
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, landlord, property.ID, "hidden")
	assert.True(t, apperror.IsValidation(err))

	updated, err := svc.SetStatus(ctx, landlord, property.ID, models.PropertyStatusUnavailable)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyStatusUnavailable, updated.Status)
}

func TestPropertyService_ListValidatesStatus(t *testing.T) {
	repo := newFakeListingRepo()
	svc := NewPropertyService(repo, nil)
	ctx := context.Background()

	_, err := svc.ListProperties(ctx, repository.PropertyListParams{Status: "hidden"})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.ListProperties(ctx, repository.PropertyListParams{Status: models.PropertyStatusAvailable})
	assert.NoError(t, err)
}
