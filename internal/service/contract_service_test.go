package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
	"github.com/ertargyn/realty-backend/internal/repository"
)

// Минимальный PNG заголовок, проходящий проверку магических байтов.
var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// fakeContractStore хранит договоры в памяти и повторяет guard-семантику
// настоящего репозитория.
type fakeContractStore struct {
	contracts  map[uuid.UUID]*models.Contract
	properties *fakePropertyRepo
}

func newFakeContractStore(properties *fakePropertyRepo) *fakeContractStore {
	return &fakeContractStore{
		contracts:  make(map[uuid.UUID]*models.Contract),
		properties: properties,
	}
}

func (f *fakeContractStore) Create(ctx context.Context, contract *models.Contract) error {
	contract.ID = uuid.New()
	now := time.Now()
	contract.CreatedAt = now
	contract.UpdatedAt = now
	copied := *contract
	f.contracts[contract.ID] = &copied
	return nil
}

func (f *fakeContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, ok := f.contracts[id]
	if !ok {
		return nil, apperror.ErrContractNotFound
	}
	copied := *contract
	return &copied, nil
}

func (f *fakeContractStore) ListByParty(ctx context.Context, userID uuid.UUID) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range f.contracts {
		if c.OwnerID == userID || c.CounterpartyID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeContractStore) HasBlockingRental(ctx context.Context, propertyID uuid.UUID, now time.Time) (bool, error) {
	for _, c := range f.contracts {
		if c.PropertyID != propertyID || c.Kind != models.ContractKindRental {
			continue
		}
		if c.Status != models.ContractStatusPendingSignatures && c.Status != models.ContractStatusActive {
			continue
		}
		if c.EndDate == nil || c.EndDate.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContractStore) HasBlockingSale(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	for _, c := range f.contracts {
		if c.PropertyID == propertyID && c.Kind == models.ContractKindSale &&
			(c.Status == models.ContractStatusPendingSignatures || c.Status == models.ContractStatusActive) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContractStore) SetSignature(ctx context.Context, contractID uuid.UUID, party repository.ContractParty, signedAt time.Time, signaturePath string) (bool, error) {
	contract, ok := f.contracts[contractID]
	if !ok {
		return false, nil
	}
	if party == repository.PartyOwner {
		if contract.OwnerSignedAt != nil {
			return false, nil
		}
		contract.OwnerSignedAt = &signedAt
		contract.OwnerSignaturePath = &signaturePath
		return true, nil
	}
	if contract.CounterpartySignedAt != nil {
		return false, nil
	}
	contract.CounterpartySignedAt = &signedAt
	contract.CounterpartySignaturePath = &signaturePath
	return true, nil
}

func (f *fakeContractStore) SetConfirmation(ctx context.Context, contractID uuid.UUID, party repository.ContractParty, confirmedAt time.Time) (bool, error) {
	contract, ok := f.contracts[contractID]
	if !ok {
		return false, nil
	}
	if party == repository.PartyOwner {
		if contract.OwnerConfirmedAt != nil {
			return false, nil
		}
		contract.OwnerConfirmedAt = &confirmedAt
		return true, nil
	}
	if contract.CounterpartyConfirmedAt != nil {
		return false, nil
	}
	contract.CounterpartyConfirmedAt = &confirmedAt
	return true, nil
}

func (f *fakeContractStore) Activate(ctx context.Context, contractID, propertyID uuid.UUID, propertyStatus string, newOwnerID *uuid.UUID) error {
	contract, ok := f.contracts[contractID]
	if !ok {
		return apperror.ErrContractNotFound
	}
	if contract.Status != models.ContractStatusPendingSignatures {
		return apperror.New(apperror.ErrCodeConflict, "договор уже не ожидает подписей")
	}
	contract.Status = models.ContractStatusActive

	property, ok := f.properties.properties[propertyID]
	if !ok {
		return apperror.ErrPropertyNotFound
	}
	property.Status = propertyStatus
	if newOwnerID != nil {
		property.OwnerID = *newOwnerID
	}
	return nil
}

func (f *fakeContractStore) CancelPending(ctx context.Context, contractID uuid.UUID) (bool, error) {
	contract, ok := f.contracts[contractID]
	if !ok {
		return false, nil
	}
	if contract.Status != models.ContractStatusPendingSignatures {
		return false, nil
	}
	contract.Status = models.ContractStatusCancelled
	return true, nil
}

// fakeUserStore хранит пользователей и профили в памяти.
type fakeUserStore struct {
	users    map[uuid.UUID]*models.User
	profiles map[uuid.UUID]*models.Profile
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[uuid.UUID]*models.User),
		profiles: make(map[uuid.UUID]*models.Profile),
	}
}

func (f *fakeUserStore) add(username, email, phone, idNumber string) *models.User {
	user := &models.User{
		ID:       uuid.New(),
		Email:    email,
		Username: username,
		Roles:    []string{string(models.RoleClient)},
		IsActive: true,
	}
	f.users[user.ID] = user

	profile := &models.Profile{
		UserID:      user.ID,
		DisplayName: username,
	}
	if phone != "" {
		profile.Phone = &phone
	}
	if idNumber != "" {
		profile.IDDocumentNumber = &idNumber
	}
	f.profiles[user.ID] = profile
	return user
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) FindByContactIdentifier(ctx context.Context, candidates []string) (*models.User, error) {
	for _, candidate := range candidates {
		for id, profile := range f.profiles {
			if profile.Phone != nil && *profile.Phone == candidate {
				return f.users[id], nil
			}
		}
	}
	for _, candidate := range candidates {
		for _, user := range f.users {
			if user.Email == candidate {
				return user, nil
			}
		}
	}
	return nil, apperror.ErrUserNotFound
}

func (f *fakeUserStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeUserStore) SetIDDocumentNumber(ctx context.Context, userID uuid.UUID, idNumber string) error {
	profile, ok := f.profiles[userID]
	if !ok {
		return apperror.ErrUserNotFound
	}
	profile.IDDocumentNumber = &idNumber
	return nil
}

// fakeSignatureStorage запоминает сохранённые файлы.
type fakeSignatureStorage struct {
	saved []string
}

func (f *fakeSignatureStorage) SaveBytes(ctx context.Context, category string, ownerID uuid.UUID, name string, data []byte) (string, error) {
	path := category + "/" + ownerID.String() + "/" + name
	f.saved = append(f.saved, path)
	return path, nil
}

type contractFixture struct {
	svc        *ContractService
	contracts  *fakeContractStore
	properties *fakePropertyRepo
	users      *fakeUserStore
	storage    *fakeSignatureStorage
	notifier   *recordingNotifier

	owner        *models.User
	counterparty *models.User
	property     *models.Property
}

func newContractFixture(t *testing.T, dealType string) *contractFixture {
	t.Helper()

	properties := newFakePropertyRepo()
	contracts := newFakeContractStore(properties)
	users := newFakeUserStore()
	storage := &fakeSignatureStorage{}
	notifier := &recordingNotifier{}

	owner := users.add("Арман", "arman@example.com", "+77011234567", "N12345678")
	counterparty := users.add("Дана", "dana@example.com", "+77029876543", "")

	property := properties.add(owner.ID, models.PropertyStatusAvailable)
	property.DealType = dealType
	properties.properties[property.ID] = property

	svc := NewContractService(contracts, properties, users, storage, notifier, "+7")
	return &contractFixture{
		svc:          svc,
		contracts:    contracts,
		properties:   properties,
		users:        users,
		storage:      storage,
		notifier:     notifier,
		owner:        owner,
		counterparty: counterparty,
		property:     property,
	}
}

func (f *contractFixture) ownerAuth() models.AuthContext {
	return models.AuthContext{UserID: f.owner.ID, Roles: models.NewRoleSet(models.RoleLandlord)}
}

func (f *contractFixture) counterpartyAuth() models.AuthContext {
	return models.AuthContext{UserID: f.counterparty.ID, Roles: models.NewRoleSet(models.RoleClient)}
}

func (f *contractFixture) create(t *testing.T, kind string) *models.Contract {
	t.Helper()

	in := CreateContractInput{
		PropertyID:             f.property.ID,
		Kind:                   kind,
		CounterpartyIdentifier: "8 (702) 987-65-43",
		Amount:                 250000,
		StartDate:              time.Now().Add(24 * time.Hour),
	}
	if kind == models.ContractKindRental {
		end := in.StartDate.AddDate(1, 0, 0)
		in.EndDate = &end
	}

	contract, err := f.svc.CreateContract(context.Background(), f.ownerAuth(), in)
	require.NoError(t, err)
	return contract
}

func TestContractService_RentalFullLifecycle(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)
	assert.Equal(t, models.ContractStatusPendingSignatures, contract.Status)
	assert.Equal(t, f.counterparty.ID, contract.CounterpartyID)
	assert.Contains(t, contract.Text, "АРЕНДЫ")
	assert.Contains(t, contract.Text, "N12345678")

	// Подписывают обе стороны.
	contract, err := f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "N12345678", pngSignature)
	require.NoError(t, err)
	assert.NotNil(t, contract.OwnerSignedAt)

	contract, err = f.svc.Sign(ctx, f.counterpartyAuth(), contract.ID, "IIN987654", pngSignature)
	require.NoError(t, err)
	assert.NotNil(t, contract.CounterpartySignedAt)

	// Номер документа второй стороны сохранился в профиль.
	profile, err := f.users.GetProfile(ctx, f.counterparty.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.IDDocumentNumber)
	assert.Equal(t, "IIN987654", *profile.IDDocumentNumber)

	// Первое подтверждение ещё не активирует договор.
	contract, err = f.svc.Confirm(ctx, f.ownerAuth(), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusPendingSignatures, contract.Status)

	// Второе подтверждение активирует договор и переводит объект в rented.
	contract, err = f.svc.Confirm(ctx, f.counterpartyAuth(), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, contract.Status)
	assert.Equal(t, models.PropertyStatusRented, f.properties.properties[f.property.ID].Status)
	assert.Equal(t, f.owner.ID, f.properties.properties[f.property.ID].OwnerID)

	assert.Contains(t, f.notifier.events, "contract.activated")
	assert.Len(t, f.storage.saved, 2)
}

func TestContractService_SaleTransfersOwnership(t *testing.T) {
	f := newContractFixture(t, models.DealTypeSale)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindSale)

	_, err := f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "N12345678", pngSignature)
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.counterpartyAuth(), contract.ID, "IIN987654", pngSignature)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, f.ownerAuth(), contract.ID)
	require.NoError(t, err)
	contract, err = f.svc.Confirm(ctx, f.counterpartyAuth(), contract.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ContractStatusActive, contract.Status)
	property := f.properties.properties[f.property.ID]
	assert.Equal(t, models.PropertyStatusSold, property.Status)
	assert.Equal(t, f.counterparty.ID, property.OwnerID)
}

func TestContractService_DoubleSignRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)

	_, err := f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "N12345678", pngSignature)
	require.NoError(t, err)

	_, err = f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "N12345678", pngSignature)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))

	// Отклонённый повтор не меняет договор и не плодит файлы подписей.
	after, err := f.contracts.GetByID(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusPendingSignatures, after.Status)
	require.NotNil(t, after.OwnerSignedAt)
	assert.Nil(t, after.CounterpartySignedAt)
	assert.Nil(t, after.OwnerConfirmedAt)
	assert.Len(t, f.storage.saved, 1)
}

func TestContractService_SaleEndDateRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeSale)
	ctx := context.Background()

	end := time.Now().AddDate(1, 0, 0)
	_, err := f.svc.CreateContract(ctx, f.ownerAuth(), CreateContractInput{
		PropertyID:             f.property.ID,
		Kind:                   models.ContractKindSale,
		CounterpartyIdentifier: "dana@example.com",
		Amount:                 250000,
		StartDate:              time.Now().Add(24 * time.Hour),
		EndDate:                &end,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "даты окончания")
}

func TestContractService_ConfirmBeforeSignRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)

	_, err := f.svc.Confirm(ctx, f.ownerAuth(), contract.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsPrecondition(err))
}

func TestContractService_NonImageSignatureRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)

	_, err := f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "N12345678", []byte("не картинка"))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "изображением")
}

func TestContractService_IDNumberMismatchRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)

	// У собственника документ уже зафиксирован, другой номер не пройдёт.
	_, err := f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "DRUGOI-NOMER", pngSignature)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "не совпадает")
}

func TestContractService_OwnerWithoutIDDocumentRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	f.users.profiles[f.owner.ID].IDDocumentNumber = nil

	_, err := f.svc.CreateContract(ctx, f.ownerAuth(), CreateContractInput{
		PropertyID:             f.property.ID,
		Kind:                   models.ContractKindRental,
		CounterpartyIdentifier: "dana@example.com",
		Amount:                 250000,
		StartDate:              time.Now().Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsPrecondition(err))
}

func TestContractService_BlockingRentalRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	f.create(t, models.ContractKindRental)

	_, err := f.svc.CreateContract(ctx, f.ownerAuth(), CreateContractInput{
		PropertyID:             f.property.ID,
		Kind:                   models.ContractKindRental,
		CounterpartyIdentifier: "dana@example.com",
		Amount:                 300000,
		StartDate:              time.Now().Add(48 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestContractService_CounterpartyNotFound(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	_, err := f.svc.CreateContract(ctx, f.ownerAuth(), CreateContractInput{
		PropertyID:             f.property.ID,
		Kind:                   models.ContractKindRental,
		CounterpartyIdentifier: "+7 (777) 000-00-00",
		Amount:                 250000,
		StartDate:              time.Now().Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Contains(t, err.Error(), "вторая сторона не найдена")
}

func TestContractService_OwnerAsCounterpartyRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	_, err := f.svc.CreateContract(ctx, f.ownerAuth(), CreateContractInput{
		PropertyID:             f.property.ID,
		Kind:                   models.ContractKindRental,
		CounterpartyIdentifier: "arman@example.com",
		Amount:                 250000,
		StartDate:              time.Now().Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestContractService_CancelAfterActivationRejected(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)

	_, err := f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "N12345678", pngSignature)
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, f.counterpartyAuth(), contract.ID, "IIN987654", pngSignature)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, f.ownerAuth(), contract.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, f.counterpartyAuth(), contract.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.ownerAuth(), contract.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestContractService_CancelPending(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)

	contract, err := f.svc.Cancel(ctx, f.counterpartyAuth(), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusCancelled, contract.Status)

	// Подпись после отмены невозможна.
	_, err = f.svc.Sign(ctx, f.ownerAuth(), contract.ID, "N12345678", pngSignature)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestContractService_StrangerForbidden(t *testing.T) {
	f := newContractFixture(t, models.DealTypeRent)
	ctx := context.Background()

	contract := f.create(t, models.ContractKindRental)
	stranger := models.AuthContext{UserID: uuid.New(), Roles: models.NewRoleSet(models.RoleClient)}

	_, err := f.svc.GetContract(ctx, stranger, contract.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Sign(ctx, stranger, contract.ID, "N12345678", pngSignature)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}
