package service

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ertargyn/realty-backend/internal/logger"
	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
	"github.com/ertargyn/realty-backend/internal/repository"
	"github.com/ertargyn/realty-backend/internal/validation"
)

// contractTextTemplate шаблон юридического текста договора. Текст
// фиксируется при создании и больше не меняется.
var contractTextTemplate = template.Must(template.New("contract").Parse(strings.TrimSpace(`
ДОГОВОР {{if eq .Kind "rental"}}АРЕНДЫ{{else}}КУПЛИ-ПРОДАЖИ{{end}} НЕДВИЖИМОСТИ

Объект: {{.PropertyTitle}}, адрес: {{.PropertyAddress}}.
Собственник: {{.OwnerName}}, документ: {{.OwnerIDNumber}}.
Вторая сторона: {{.CounterpartyName}}.
Сумма: {{printf "%.2f" .Amount}}.
Дата начала: {{.StartDate}}.{{if .EndDate}}
Дата окончания: {{.EndDate}}.{{end}}

Договор вступает в силу после подписания и подтверждения обеими сторонами.
`)))

// ContractStore описывает зависимости ContractService от хранилища договоров.
type ContractStore interface {
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListByParty(ctx context.Context, userID uuid.UUID) ([]models.Contract, error)
	HasBlockingRental(ctx context.Context, propertyID uuid.UUID, now time.Time) (bool, error)
	HasBlockingSale(ctx context.Context, propertyID uuid.UUID) (bool, error)
	SetSignature(ctx context.Context, contractID uuid.UUID, party repository.ContractParty, signedAt time.Time, signaturePath string) (bool, error)
	SetConfirmation(ctx context.Context, contractID uuid.UUID, party repository.ContractParty, confirmedAt time.Time) (bool, error)
	Activate(ctx context.Context, contractID, propertyID uuid.UUID, propertyStatus string, newOwnerID *uuid.UUID) error
	CancelPending(ctx context.Context, contractID uuid.UUID) (bool, error)
}

// ContractUserStore даёт сервису доступ к пользователям и профилям.
type ContractUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByContactIdentifier(ctx context.Context, candidates []string) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	SetIDDocumentNumber(ctx context.Context, userID uuid.UUID, idNumber string) error
}

// SignatureStorage сохраняет изображения подписей.
type SignatureStorage interface {
	SaveBytes(ctx context.Context, category string, ownerID uuid.UUID, name string, data []byte) (string, error)
}

// ContractService реализует жизненный цикл договора: создание,
// подписание и подтверждение обеими сторонами, активацию и отмену.
type ContractService struct {
	contracts  ContractStore
	properties VisitPropertyRepository
	users      ContractUserStore
	storage    SignatureStorage
	notifier   Notifier

	phonePrefix string
	now         func() time.Time
}

// CreateContractInput содержит данные нового договора.
type CreateContractInput struct {
	PropertyID             uuid.UUID
	Kind                   string
	CounterpartyIdentifier string
	Amount                 float64
	StartDate              time.Time
	EndDate                *time.Time
}

// NewContractService создаёт сервис договоров.
func NewContractService(contracts ContractStore, properties VisitPropertyRepository, users ContractUserStore, storage SignatureStorage, notifier Notifier, phonePrefix string) *ContractService {
	return &ContractService{
		contracts:   contracts,
		properties:  properties,
		users:       users,
		storage:     storage,
		notifier:    notifier,
		phonePrefix: phonePrefix,
		now:         time.Now,
	}
}

// CreateContract создаёт договор аренды или купли-продажи. Вторая
// сторона разыскивается по контактному идентификатору (телефон или
// email) с перебором вариантов нормализации номера.
func (s *ContractService) CreateContract(ctx context.Context, auth models.AuthContext, in CreateContractInput) (*models.Contract, error) {
	if _, ok := models.ValidContractKinds[in.Kind]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный вид договора: %s", in.Kind))
	}
	if err := validation.ValidatePrice(in.Amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if in.Kind == models.ContractKindSale && in.EndDate != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "договор купли-продажи не имеет даты окончания")
	}
	if in.Kind == models.ContractKindRental && in.EndDate != nil && !in.EndDate.After(in.StartDate) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата окончания должна быть позже даты начала")
	}

	property, err := s.properties.GetByID(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}

	if property.OwnerID != auth.UserID && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	ownerProfile, err := s.users.GetProfile(ctx, property.OwnerID)
	if err != nil {
		return nil, err
	}
	if ownerProfile.IDDocumentNumber == nil || *ownerProfile.IDDocumentNumber == "" {
		return nil, apperror.New(apperror.ErrCodePrecondition, "в профиле собственника не указан номер документа")
	}

	if in.Kind == models.ContractKindRental {
		blocked, err := s.contracts.HasBlockingRental(ctx, in.PropertyID, s.now())
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperror.New(apperror.ErrCodeConflict, "по объекту уже действует договор аренды")
		}
	}

	saleBlocked, err := s.contracts.HasBlockingSale(ctx, in.PropertyID)
	if err != nil {
		return nil, err
	}
	if saleBlocked {
		return nil, apperror.New(apperror.ErrCodeConflict, "по объекту уже есть договор купли-продажи")
	}

	candidates := validation.ContactIdentifierCandidates(in.CounterpartyIdentifier, s.phonePrefix)
	counterparty, err := s.users.FindByContactIdentifier(ctx, candidates)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "вторая сторона не найдена по указанному контакту")
		}
		return nil, err
	}

	if counterparty.ID == property.OwnerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "собственник не может быть второй стороной договора")
	}

	owner, err := s.users.GetByID(ctx, property.OwnerID)
	if err != nil {
		return nil, err
	}

	text, err := s.renderContractText(in, property, owner, ownerProfile, counterparty)
	if err != nil {
		return nil, err
	}

	contract := &models.Contract{
		PropertyID:     in.PropertyID,
		OwnerID:        property.OwnerID,
		CounterpartyID: counterparty.ID,
		Kind:           in.Kind,
		Amount:         in.Amount,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Text:           text,
		Status:         models.ContractStatusPendingSignatures,
	}

	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, err
	}

	s.notify(counterparty.ID, "contract.created", contract)
	return contract, nil
}

// Sign записывает подпись стороны. При первом подписании номер
// документа сохраняется в профиль, при последующих сверяется.
func (s *ContractService) Sign(ctx context.Context, auth models.AuthContext, contractID uuid.UUID, idNumber string, signatureImage []byte) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.IsParty(auth.UserID) {
		return nil, apperror.ErrForbidden
	}

	if contract.Status != models.ContractStatusPendingSignatures {
		return nil, apperror.New(apperror.ErrCodeConflict, "договор уже не ожидает подписей")
	}

	// Ранний отказ, чтобы не сохранять файл подписи впустую.
	// Решающий guard от гонки остаётся в SetSignature.
	if contract.SignedBy(auth.UserID) {
		return nil, apperror.New(apperror.ErrCodeConflict, "сторона уже подписала договор")
	}

	if !filetype.IsImage(signatureImage) {
		return nil, apperror.New(apperror.ErrCodeValidation, "подпись должна быть изображением")
	}

	if err := validation.ValidateIDDocumentNumber(idNumber); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	profile, err := s.users.GetProfile(ctx, auth.UserID)
	if err != nil {
		return nil, err
	}

	if profile.IDDocumentNumber == nil || *profile.IDDocumentNumber == "" {
		if err := s.users.SetIDDocumentNumber(ctx, auth.UserID, idNumber); err != nil {
			return nil, err
		}
	} else if *profile.IDDocumentNumber != idNumber {
		return nil, apperror.New(apperror.ErrCodeValidation, "номер документа не совпадает с указанным ранее")
	}

	kind, err := filetype.Match(signatureImage)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не удалось распознать формат изображения")
	}

	path, err := s.storage.SaveBytes(ctx, "signatures", auth.UserID, "signature."+kind.Extension, signatureImage)
	if err != nil {
		return nil, fmt.Errorf("contract service: save signature %w", err)
	}

	party := s.partyOf(contract, auth.UserID)
	signed, err := s.contracts.SetSignature(ctx, contractID, party, s.now(), path)
	if err != nil {
		return nil, err
	}
	if !signed {
		return nil, apperror.New(apperror.ErrCodeConflict, "сторона уже подписала договор")
	}

	contract, err = s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	s.notify(s.otherParty(contract, auth.UserID), "contract.signed", contract)
	return contract, nil
}

// Confirm записывает подтверждение стороны. Когда подтверждения обеих
// сторон на месте, договор атомарно активируется вместе с изменением
// статуса объекта, а для купли-продажи и собственника.
func (s *ContractService) Confirm(ctx context.Context, auth models.AuthContext, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.IsParty(auth.UserID) {
		return nil, apperror.ErrForbidden
	}

	if contract.Status != models.ContractStatusPendingSignatures {
		return nil, apperror.New(apperror.ErrCodeConflict, "договор уже не ожидает подписей")
	}

	if !contract.SignedBy(auth.UserID) {
		return nil, apperror.New(apperror.ErrCodePrecondition, "перед подтверждением необходимо подписать договор")
	}

	party := s.partyOf(contract, auth.UserID)
	confirmed, err := s.contracts.SetConfirmation(ctx, contractID, party, s.now())
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, apperror.New(apperror.ErrCodeConflict, "сторона уже подтвердила договор")
	}

	contract, err = s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if contract.BothConfirmed() {
		propertyStatus := models.PropertyStatusRented
		var newOwnerID *uuid.UUID
		if contract.Kind == models.ContractKindSale {
			propertyStatus = models.PropertyStatusSold
			counterpartyID := contract.CounterpartyID
			newOwnerID = &counterpartyID
		}

		if err := s.contracts.Activate(ctx, contract.ID, contract.PropertyID, propertyStatus, newOwnerID); err != nil {
			return nil, err
		}

		contract, err = s.contracts.GetByID(ctx, contractID)
		if err != nil {
			return nil, err
		}

		s.notify(contract.OwnerID, "contract.activated", contract)
		s.notify(contract.CounterpartyID, "contract.activated", contract)
		return contract, nil
	}

	s.notify(s.otherParty(contract, auth.UserID), "contract.confirmed", contract)
	return contract, nil
}

// Cancel отменяет договор до активации.
func (s *ContractService) Cancel(ctx context.Context, auth models.AuthContext, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.IsParty(auth.UserID) && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	cancelled, err := s.contracts.CancelPending(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, apperror.New(apperror.ErrCodeConflict, "договор уже нельзя отменить")
	}

	contract, err = s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	s.notify(s.otherParty(contract, auth.UserID), "contract.cancelled", contract)
	return contract, nil
}

// GetContract возвращает договор, доступный одной из сторон.
func (s *ContractService) GetContract(ctx context.Context, auth models.AuthContext, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.IsParty(auth.UserID) && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	return contract, nil
}

// ContractText возвращает зафиксированный текст договора.
func (s *ContractService) ContractText(ctx context.Context, auth models.AuthContext, contractID uuid.UUID) (string, error) {
	contract, err := s.GetContract(ctx, auth, contractID)
	if err != nil {
		return "", err
	}
	return contract.Text, nil
}

// ListMyContracts возвращает договоры пользователя.
func (s *ContractService) ListMyContracts(ctx context.Context, auth models.AuthContext) ([]models.Contract, error) {
	return s.contracts.ListByParty(ctx, auth.UserID)
}

func (s *ContractService) partyOf(contract *models.Contract, userID uuid.UUID) repository.ContractParty {
	if contract.OwnerID == userID {
		return repository.PartyOwner
	}
	return repository.PartyCounterparty
}

func (s *ContractService) otherParty(contract *models.Contract, userID uuid.UUID) uuid.UUID {
	if contract.OwnerID == userID {
		return contract.CounterpartyID
	}
	return contract.OwnerID
}

func (s *ContractService) renderContractText(in CreateContractInput, property *models.Property, owner *models.User, ownerProfile *models.Profile, counterparty *models.User) (string, error) {
	data := map[string]interface{}{
		"Kind":             in.Kind,
		"PropertyTitle":    property.Title,
		"PropertyAddress":  property.Address,
		"OwnerName":        owner.Username,
		"OwnerIDNumber":    *ownerProfile.IDDocumentNumber,
		"CounterpartyName": counterparty.Username,
		"Amount":           in.Amount,
		"StartDate":        in.StartDate.Format("02.01.2006"),
	}
	if in.EndDate != nil {
		data["EndDate"] = in.EndDate.Format("02.01.2006")
	} else {
		data["EndDate"] = ""
	}

	var sb strings.Builder
	if err := contractTextTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("contract service: render text %w", err)
	}
	return sb.String(), nil
}

func (s *ContractService) notify(userID uuid.UUID, event string, contract *models.Contract) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToUser(userID, event, contract); err != nil {
		logger.Log.WithError(err).Warn("contract service: не удалось отправить уведомление")
	}
}
