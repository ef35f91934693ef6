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
)

// fakeVisitRepo хранит заявки в памяти.
type fakeVisitRepo struct {
	visits     map[uuid.UUID]*models.Visit
	properties *fakePropertyRepo
}

func newFakeVisitRepo(properties *fakePropertyRepo) *fakeVisitRepo {
	return &fakeVisitRepo{
		visits:     make(map[uuid.UUID]*models.Visit),
		properties: properties,
	}
}

func (f *fakeVisitRepo) Create(ctx context.Context, visit *models.Visit) error {
	visit.ID = uuid.New()
	now := time.Now()
	visit.CreatedAt = now
	visit.UpdatedAt = now
	copied := *visit
	f.visits[visit.ID] = &copied
	return nil
}

func (f *fakeVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	visit, ok := f.visits[id]
	if !ok {
		return nil, apperror.ErrVisitNotFound
	}
	copied := *visit
	return &copied, nil
}

func (f *fakeVisitRepo) Update(ctx context.Context, visit *models.Visit) error {
	if _, ok := f.visits[visit.ID]; !ok {
		return apperror.ErrVisitNotFound
	}
	visit.UpdatedAt = time.Now()
	copied := *visit
	f.visits[visit.ID] = &copied
	return nil
}

func (f *fakeVisitRepo) HasActiveVisit(ctx context.Context, clientID, propertyID uuid.UUID) (bool, error) {
	for _, v := range f.visits {
		if v.ClientID == clientID && v.PropertyID == propertyID && !v.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeVisitRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Visit, error) {
	var out []models.Visit
	for _, v := range f.visits {
		if v.ClientID == clientID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVisitRepo) ListByOwnerProperties(ctx context.Context, ownerID uuid.UUID) ([]models.Visit, error) {
	var out []models.Visit
	for _, v := range f.visits {
		if property, ok := f.properties.properties[v.PropertyID]; ok && property.OwnerID == ownerID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVisitRepo) CompleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, v := range f.visits {
		if v.Status == models.VisitStatusScheduled && v.ScheduledAt != nil && v.ScheduledAt.Before(cutoff) {
			v.Status = models.VisitStatusCompleted
			n++
		}
	}
	return n, nil
}

// fakePropertyRepo хранит объекты в памяти.
type fakePropertyRepo struct {
	properties map[uuid.UUID]*models.Property
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{properties: make(map[uuid.UUID]*models.Property)}
}

func (f *fakePropertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	property, ok := f.properties[id]
	if !ok {
		return nil, apperror.ErrPropertyNotFound
	}
	copied := *property
	return &copied, nil
}

func (f *fakePropertyRepo) add(ownerID uuid.UUID, status string) *models.Property {
	property := &models.Property{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Title:    "Квартира",
		Address:  "ул. Ленина, 1",
		City:     "Алматы",
		DealType: models.DealTypeRent,
		Price:    350000,
		Status:   status,
	}
	f.properties[property.ID] = property
	return property
}

// recordingNotifier запоминает отправленные события.
type recordingNotifier struct {
	events []string
	users  []uuid.UUID
}

func (r *recordingNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	r.events = append(r.events, event)
	r.users = append(r.users, userID)
	return nil
}

func newVisitFixture() (*VisitService, *fakeVisitRepo, *fakePropertyRepo, *recordingNotifier) {
	properties := newFakePropertyRepo()
	repo := newFakeVisitRepo(properties)
	notifier := &recordingNotifier{}
	svc := NewVisitService(repo, properties, notifier)
	return svc, repo, properties, notifier
}

func clientAuth(id uuid.UUID) models.AuthContext {
	return models.AuthContext{UserID: id, Roles: models.NewRoleSet(models.RoleClient)}
}

func ownerAuth(id uuid.UUID) models.AuthContext {
	return models.AuthContext{UserID: id, Roles: models.NewRoleSet(models.RoleLandlord)}
}

func TestVisitService_OwnerAcceptsRequestedDate(t *testing.T) {
	svc, _, properties, notifier := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	requestedAt := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: requestedAt,
		Message:     "хочу посмотреть",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusPendingOwner, visit.Status)

	visit, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{Action: models.VisitActionAccept})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusScheduled, visit.Status)
	require.NotNil(t, visit.ScheduledAt)
	assert.True(t, visit.ScheduledAt.Equal(requestedAt))

	assert.Equal(t, []string{"visit.requested", "visit.scheduled"}, notifier.events)
	assert.Equal(t, []uuid.UUID{owner, client}, notifier.users)
}

func TestVisitService_CounterProposalRoundTrip(t *testing.T) {
	svc, _, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	// Собственник предлагает другую дату.
	ownerDate := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	visit, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{
		Action:     models.VisitActionPropose,
		ProposedAt: &ownerDate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusPendingClient, visit.Status)

	// Клиент отвечает встречным предложением.
	clientDate := time.Now().Add(96 * time.Hour).Truncate(time.Second)
	visit, err = svc.ClientRespond(ctx, clientAuth(client), visit.ID, RespondInput{
		Action:     models.VisitActionPropose,
		ProposedAt: &clientDate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusPendingOwner, visit.Status)
	require.NotNil(t, visit.ClientProposedAt)

	// Собственник принимает: назначается дата клиента, а не исходная.
	visit, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{Action: models.VisitActionAccept})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusScheduled, visit.Status)
	require.NotNil(t, visit.ScheduledAt)
	assert.True(t, visit.ScheduledAt.Equal(clientDate))
}

func TestVisitService_ClientAcceptsOwnerProposal(t *testing.T) {
	svc, _, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	ownerDate := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	visit, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{
		Action:     models.VisitActionPropose,
		ProposedAt: &ownerDate,
	})
	require.NoError(t, err)

	visit, err = svc.ClientRespond(ctx, clientAuth(client), visit.ID, RespondInput{Action: models.VisitActionAccept})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusScheduled, visit.Status)
	require.NotNil(t, visit.ScheduledAt)
	assert.True(t, visit.ScheduledAt.Equal(ownerDate))
}

func TestVisitService_ClientRejectEndsNegotiation(t *testing.T) {
	svc, _, properties, notifier := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	ownerDate := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	visit, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{
		Action:     models.VisitActionPropose,
		ProposedAt: &ownerDate,
	})
	require.NoError(t, err)

	visit, err = svc.ClientRespond(ctx, clientAuth(client), visit.ID, RespondInput{Action: models.VisitActionReject})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusDeclined, visit.Status)
	assert.Nil(t, visit.ScheduledAt)
	assert.Contains(t, notifier.events, "visit.rejected")

	// Переговоры завершены, новый ответ по заявке невозможен.
	later := time.Now().Add(96 * time.Hour)
	_, err = svc.ClientRespond(ctx, clientAuth(client), visit.ID, RespondInput{
		Action:     models.VisitActionPropose,
		ProposedAt: &later,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestVisitService_OwnerDeclineEndsNegotiation(t *testing.T) {
	svc, _, properties, notifier := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	visit, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{Action: models.VisitActionDecline})
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusDeclined, visit.Status)
	assert.Contains(t, notifier.events, "visit.declined")

	_, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{Action: models.VisitActionAccept})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestVisitService_DuplicateActiveVisitRejected(t *testing.T) {
	svc, _, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	_, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(48 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestVisitService_PastDateRejected(t *testing.T) {
	svc, _, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	_, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(-time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	_, err = svc.OwnerRespond(ctx, ownerAuth(owner), visit.ID, RespondInput{
		Action:     models.VisitActionPropose,
		ProposedAt: &past,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestVisitService_AcceptWithoutProposalIsInvariantViolation(t *testing.T) {
	svc, repo, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	// Повреждённая заявка: ожидает клиента, но без даты собственника.
	broken := &models.Visit{
		ID:          uuid.New(),
		PropertyID:  property.ID,
		ClientID:    client,
		RequestedAt: time.Now().Add(24 * time.Hour),
		Status:      models.VisitStatusPendingClient,
	}
	repo.visits[broken.ID] = broken

	_, err := svc.ClientRespond(ctx, clientAuth(client), broken.ID, RespondInput{Action: models.VisitActionAccept})
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeInvariant, apperror.CodeOf(err))
}

func TestVisitService_CancelTerminalRejected(t *testing.T) {
	svc, _, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	visit, err = svc.Cancel(ctx, clientAuth(client), visit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusCancelled, visit.Status)

	_, err = svc.Cancel(ctx, ownerAuth(owner), visit.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestVisitService_ForeignUserForbidden(t *testing.T) {
	svc, _, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	stranger := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	visit, err := svc.RequestVisit(ctx, clientAuth(client), RequestVisitInput{
		PropertyID:  property.ID,
		RequestedAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.OwnerRespond(ctx, ownerAuth(stranger), visit.ID, RespondInput{Action: models.VisitActionAccept})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestVisitService_SweepCompletesOldScheduledVisits(t *testing.T) {
	svc, repo, properties, _ := newVisitFixture()
	ctx := context.Background()

	owner := uuid.New()
	client := uuid.New()
	property := properties.add(owner, models.PropertyStatusAvailable)

	oldDate := time.Now().Add(-25 * time.Hour)
	recentDate := time.Now().Add(-23 * time.Hour)

	expired := &models.Visit{
		ID:          uuid.New(),
		PropertyID:  property.ID,
		ClientID:    client,
		RequestedAt: oldDate,
		ScheduledAt: &oldDate,
		Status:      models.VisitStatusScheduled,
	}
	fresh := &models.Visit{
		ID:          uuid.New(),
		PropertyID:  property.ID,
		ClientID:    client,
		RequestedAt: recentDate,
		ScheduledAt: &recentDate,
		Status:      models.VisitStatusScheduled,
	}
	repo.visits[expired.ID] = expired
	repo.visits[fresh.ID] = fresh

	n, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.VisitStatusCompleted, repo.visits[expired.ID].Status)
	assert.Equal(t, models.VisitStatusScheduled, repo.visits[fresh.ID].Status)
}
