package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ertargyn/realty-backend/internal/logger"
	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
)

// visitCompletionAge определяет, через сколько после назначенной даты
// просмотр считается состоявшимся.
const visitCompletionAge = 24 * time.Hour

// VisitRepository описывает зависимости VisitService от хранилища.
type VisitRepository interface {
	Create(ctx context.Context, visit *models.Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	Update(ctx context.Context, visit *models.Visit) error
	HasActiveVisit(ctx context.Context, clientID, propertyID uuid.UUID) (bool, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Visit, error)
	ListByOwnerProperties(ctx context.Context, ownerID uuid.UUID) ([]models.Visit, error)
	CompleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// VisitPropertyRepository даёт сервису доступ к объектам недвижимости.
type VisitPropertyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

// Notifier доставляет событие пользователю. Ошибки доставки логируются
// и не влияют на результат операции.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// VisitService реализует переговоры о дате просмотра между клиентом
// и собственником.
type VisitService struct {
	repo       VisitRepository
	properties VisitPropertyRepository
	notifier   Notifier
	now        func() time.Time
}

// RequestVisitInput содержит данные новой заявки.
type RequestVisitInput struct {
	PropertyID  uuid.UUID
	RequestedAt time.Time
	Message     string
}

// RespondInput содержит ответ стороны на текущее предложение.
type RespondInput struct {
	Action     string
	ProposedAt *time.Time
	Message    string
}

// NewVisitService создаёт сервис заявок на просмотр.
func NewVisitService(repo VisitRepository, properties VisitPropertyRepository, notifier Notifier) *VisitService {
	return &VisitService{
		repo:       repo,
		properties: properties,
		notifier:   notifier,
		now:        time.Now,
	}
}

// RequestVisit создаёт заявку на просмотр объекта.
func (s *VisitService) RequestVisit(ctx context.Context, auth models.AuthContext, in RequestVisitInput) (*models.Visit, error) {
	property, err := s.properties.GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}

	if property.OwnerID == auth.UserID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя записаться на просмотр собственного объекта")
	}

	if property.Status != models.PropertyStatusAvailable {
		return nil, apperror.New(apperror.ErrCodeConflict, "объект недоступен для просмотра")
	}

	if !in.RequestedAt.After(s.now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата просмотра должна быть в будущем")
	}

	exists, err := s.repo.HasActiveVisit(ctx, auth.UserID, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.New(apperror.ErrCodeConflict, "по этому объекту уже есть активная заявка")
	}

	actor := models.VisitActorClient
	visit := &models.Visit{
		PropertyID:   in.PropertyID,
		ClientID:     auth.UserID,
		RequestedAt:  in.RequestedAt,
		Status:       models.VisitStatusPendingOwner,
		LastActionBy: &actor,
	}
	if in.Message != "" {
		visit.ClientMessage = &in.Message
	}

	if err := s.repo.Create(ctx, visit); err != nil {
		return nil, err
	}

	s.notify(property.OwnerID, "visit.requested", visit)
	return visit, nil
}

// OwnerRespond обрабатывает ответ собственника на заявку в статусе
// pending_owner: accept, decline или propose.
func (s *VisitService) OwnerRespond(ctx context.Context, auth models.AuthContext, visitID uuid.UUID, in RespondInput) (*models.Visit, error) {
	visit, _, err := s.loadForOwner(ctx, auth, visitID)
	if err != nil {
		return nil, err
	}

	if visit.Status != models.VisitStatusPendingOwner {
		return nil, apperror.New(apperror.ErrCodeConflict, "заявка не ожидает ответа собственника")
	}

	actor := models.VisitActorOwner
	visit.LastActionBy = &actor
	if in.Message != "" {
		visit.OwnerMessage = &in.Message
	}

	var event string
	switch in.Action {
	case models.VisitActionAccept:
		scheduled := visit.CurrentClientAsk()
		visit.ScheduledAt = &scheduled
		visit.Status = models.VisitStatusScheduled
		event = "visit.scheduled"
	case models.VisitActionDecline:
		visit.Status = models.VisitStatusDeclined
		event = "visit.declined"
	case models.VisitActionPropose:
		if in.ProposedAt == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "не указана предлагаемая дата")
		}
		if !in.ProposedAt.After(s.now()) {
			return nil, apperror.New(apperror.ErrCodeValidation, "предлагаемая дата должна быть в будущем")
		}
		visit.OwnerProposedAt = in.ProposedAt
		visit.Status = models.VisitStatusPendingClient
		event = "visit.owner_proposed"
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимое действие собственника")
	}

	if err := s.repo.Update(ctx, visit); err != nil {
		return nil, err
	}

	s.notify(visit.ClientID, event, visit)
	return visit, nil
}

// ClientRespond обрабатывает ответ клиента на встречное предложение
// собственника: accept, reject или propose.
func (s *VisitService) ClientRespond(ctx context.Context, auth models.AuthContext, visitID uuid.UUID, in RespondInput) (*models.Visit, error) {
	visit, err := s.repo.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if visit.ClientID != auth.UserID && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	if visit.Status != models.VisitStatusPendingClient {
		return nil, apperror.New(apperror.ErrCodeConflict, "заявка не ожидает ответа клиента")
	}

	actor := models.VisitActorClient
	visit.LastActionBy = &actor
	if in.Message != "" {
		visit.ClientMessage = &in.Message
	}

	var event string
	switch in.Action {
	case models.VisitActionAccept:
		if visit.OwnerProposedAt == nil {
			return nil, apperror.New(apperror.ErrCodeInvariant, "в заявке отсутствует предложение собственника")
		}
		visit.ScheduledAt = visit.OwnerProposedAt
		visit.Status = models.VisitStatusScheduled
		event = "visit.scheduled"
	case models.VisitActionReject:
		visit.Status = models.VisitStatusDeclined
		event = "visit.rejected"
	case models.VisitActionPropose:
		if in.ProposedAt == nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "не указана предлагаемая дата")
		}
		if !in.ProposedAt.After(s.now()) {
			return nil, apperror.New(apperror.ErrCodeValidation, "предлагаемая дата должна быть в будущем")
		}
		visit.ClientProposedAt = in.ProposedAt
		visit.Status = models.VisitStatusPendingOwner
		event = "visit.client_proposed"
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимое действие клиента")
	}

	if err := s.repo.Update(ctx, visit); err != nil {
		return nil, err
	}

	if property, perr := s.properties.GetByID(ctx, visit.PropertyID); perr == nil {
		s.notify(property.OwnerID, event, visit)
	}
	return visit, nil
}

// Cancel отменяет незавершённую заявку. Доступно любой из сторон.
func (s *VisitService) Cancel(ctx context.Context, auth models.AuthContext, visitID uuid.UUID) (*models.Visit, error) {
	visit, err := s.repo.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	property, err := s.properties.GetByID(ctx, visit.PropertyID)
	if err != nil {
		return nil, err
	}

	isClient := visit.ClientID == auth.UserID
	isOwner := property.OwnerID == auth.UserID
	if !isClient && !isOwner && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	if visit.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeConflict, "заявка уже завершена")
	}

	actor := models.VisitActorClient
	if isOwner {
		actor = models.VisitActorOwner
	}
	visit.LastActionBy = &actor
	visit.Status = models.VisitStatusCancelled

	if err := s.repo.Update(ctx, visit); err != nil {
		return nil, err
	}

	counterparty := property.OwnerID
	if isOwner {
		counterparty = visit.ClientID
	}
	s.notify(counterparty, "visit.cancelled", visit)
	return visit, nil
}

// ListMyVisits возвращает заявки клиента, предварительно закрывая
// просроченные просмотры.
func (s *VisitService) ListMyVisits(ctx context.Context, auth models.AuthContext) ([]models.Visit, error) {
	s.sweep(ctx)
	return s.repo.ListByClient(ctx, auth.UserID)
}

// ListOwnerVisits возвращает заявки по объектам собственника.
func (s *VisitService) ListOwnerVisits(ctx context.Context, auth models.AuthContext) ([]models.Visit, error) {
	s.sweep(ctx)
	return s.repo.ListByOwnerProperties(ctx, auth.UserID)
}

// GetVisit возвращает заявку, доступную одной из сторон.
func (s *VisitService) GetVisit(ctx context.Context, auth models.AuthContext, visitID uuid.UUID) (*models.Visit, error) {
	visit, err := s.repo.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if visit.ClientID == auth.UserID || auth.Elevated() {
		return visit, nil
	}

	property, err := s.properties.GetByID(ctx, visit.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.OwnerID != auth.UserID {
		return nil, apperror.ErrForbidden
	}

	return visit, nil
}

// Sweep переводит в completed просмотры, назначенная дата которых
// прошла более суток назад. Вызывается лениво при чтении списков и
// опционально по таймеру.
func (s *VisitService) Sweep(ctx context.Context) (int64, error) {
	return s.repo.CompleteExpired(ctx, s.now().Add(-visitCompletionAge))
}

func (s *VisitService) sweep(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		logger.Log.WithError(err).Warn("visit service: не удалось закрыть просроченные просмотры")
	}
}

func (s *VisitService) loadForOwner(ctx context.Context, auth models.AuthContext, visitID uuid.UUID) (*models.Visit, *models.Property, error) {
	visit, err := s.repo.GetByID(ctx, visitID)
	if err != nil {
		return nil, nil, err
	}

	property, err := s.properties.GetByID(ctx, visit.PropertyID)
	if err != nil {
		return nil, nil, err
	}

	if property.OwnerID != auth.UserID && !auth.Elevated() {
		return nil, nil, apperror.ErrForbidden
	}

	return visit, property, nil
}

func (s *VisitService) notify(userID uuid.UUID, event string, visit *models.Visit) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToUser(userID, event, visit); err != nil {
		logger.Log.WithError(err).Warn("visit service: не удалось отправить уведомление")
	}
}
