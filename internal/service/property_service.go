package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
	"github.com/ertargyn/realty-backend/internal/repository"
	"github.com/ertargyn/realty-backend/internal/validation"
)

// PropertyRepository описывает зависимости PropertyService от хранилища.
type PropertyRepository interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	Update(ctx context.Context, property *models.Property) error
	List(ctx context.Context, params repository.PropertyListParams) ([]models.Property, error)
	AddPhoto(ctx context.Context, photo *models.PropertyPhoto) error
	ListPhotos(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyPhoto, error)
}

// PhotoStorage сохраняет файлы фотографий.
type PhotoStorage interface {
	Save(ctx context.Context, category string, ownerID uuid.UUID, originalName string, r io.Reader) (string, int64, error)
}

// PropertyService содержит бизнес-логику объектов недвижимости.
type PropertyService struct {
	repo    PropertyRepository
	storage PhotoStorage
}

// PropertyInput содержит данные объявления.
type PropertyInput struct {
	Title       string
	Description string
	Address     string
	City        string
	DealType    string
	Price       float64
	Rooms       int
	Area        *float64
}

// NewPropertyService создаёт сервис объектов недвижимости.
func NewPropertyService(repo PropertyRepository, storage PhotoStorage) *PropertyService {
	return &PropertyService{
		repo:    repo,
		storage: storage,
	}
}

// CreateProperty публикует новое объявление.
func (s *PropertyService) CreateProperty(ctx context.Context, auth models.AuthContext, in PropertyInput) (*models.Property, error) {
	if !auth.Roles.HasAny(models.RoleLandlord, models.RoleBroker, models.RoleAdmin) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "публиковать объявления могут собственники и брокеры")
	}

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	property := &models.Property{
		OwnerID:     auth.UserID,
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		City:        in.City,
		DealType:    in.DealType,
		Price:       in.Price,
		Rooms:       in.Rooms,
		Area:        in.Area,
		Status:      models.PropertyStatusAvailable,
	}

	if err := s.repo.Create(ctx, property); err != nil {
		return nil, err
	}

	return property, nil
}

// GetProperty возвращает объект с фотографиями.
func (s *PropertyService) GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	photos, err := s.repo.ListPhotos(ctx, id)
	if err != nil {
		return nil, err
	}
	property.Photos = photos

	return property, nil
}

// UpdateProperty изменяет объявление. Доступно собственнику и
// пользователям с расширенными правами.
func (s *PropertyService) UpdateProperty(ctx context.Context, auth models.AuthContext, id uuid.UUID, in PropertyInput) (*models.Property, error) {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if property.OwnerID != auth.UserID && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	property.Title = in.Title
	property.Description = in.Description
	property.Address = in.Address
	property.City = in.City
	property.DealType = in.DealType
	property.Price = in.Price
	property.Rooms = in.Rooms
	property.Area = in.Area

	if err := s.repo.Update(ctx, property); err != nil {
		return nil, err
	}

	return property, nil
}

// SetStatus меняет статус объявления вручную (снятие с публикации и т.п.).
func (s *PropertyService) SetStatus(ctx context.Context, auth models.AuthContext, id uuid.UUID, status string) (*models.Property, error) {
	if _, ok := models.ValidPropertyStatuses[status]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный статус: %s", status))
	}

	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if property.OwnerID != auth.UserID && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	property.Status = status
	if err := s.repo.Update(ctx, property); err != nil {
		return nil, err
	}

	return property, nil
}

// ListProperties возвращает объявления с фильтрацией.
func (s *PropertyService) ListProperties(ctx context.Context, params repository.PropertyListParams) ([]models.Property, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Status != "" {
		if _, ok := models.ValidPropertyStatuses[params.Status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный статус: %s", params.Status))
		}
	}

	return s.repo.List(ctx, params)
}

// ListMyProperties возвращает объявления текущего пользователя.
func (s *PropertyService) ListMyProperties(ctx context.Context, auth models.AuthContext) ([]models.Property, error) {
	ownerID := auth.UserID
	return s.repo.List(ctx, repository.PropertyListParams{OwnerID: &ownerID, Limit: 100})
}

// AddPhoto валидирует файл по magic-байтам и прикрепляет его к объекту.
func (s *PropertyService) AddPhoto(ctx context.Context, auth models.AuthContext, propertyID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.PropertyPhoto, error) {
	property, err := s.repo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if property.OwnerID != auth.UserID && !auth.Elevated() {
		return nil, apperror.ErrForbidden
	}

	head := make([]byte, 261)
	n, err := file.Read(head)
	if err != nil && n == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "не удалось прочитать файл")
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || !filetype.IsImage(head[:n]) {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл не является изображением")
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("property service: seek %w", err)
	}

	path, size, err := s.storage.Save(ctx, "properties", propertyID, header.Filename, file)
	if err != nil {
		return nil, fmt.Errorf("property service: save photo %w", err)
	}

	photo := &models.PropertyPhoto{
		PropertyID: propertyID,
		FilePath:   path,
		FileType:   kind.MIME.Value,
		FileSize:   size,
	}

	if err := s.repo.AddPhoto(ctx, photo); err != nil {
		return nil, err
	}

	return photo, nil
}

func (s *PropertyService) validateInput(in PropertyInput) error {
	if err := validation.ValidatePropertyTitle(in.Title); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePropertyDescription(in.Description); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("address", in.Address); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("city", in.City); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if in.DealType != models.DealTypeRent && in.DealType != models.DealTypeSale {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный тип сделки: %s", in.DealType))
	}
	if err := validation.ValidatePrice(in.Price); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if in.Rooms < 0 {
		return apperror.New(apperror.ErrCodeValidation, "число комнат не может быть отрицательным")
	}
	return nil
}
