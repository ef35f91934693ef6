package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ertargyn/realty-backend/internal/dto"
	"github.com/ertargyn/realty-backend/internal/http/handlers/common"
	"github.com/ertargyn/realty-backend/internal/service"
)

// maxSignatureBytes лимит размера изображения подписи.
const maxSignatureBytes = 5 * 1024 * 1024

// ContractHandler обслуживает маршруты договоров.
type ContractHandler struct {
	contracts *service.ContractService
}

// NewContractHandler создаёт хэндлер.
func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// Create обрабатывает POST /contracts.
func (h *ContractHandler) Create(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.ContractCreateRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.CreateContract(c.Request.Context(), auth, service.CreateContractInput{
		PropertyID:             req.PropertyID,
		Kind:                   req.Kind,
		CounterpartyIdentifier: req.CounterpartyIdentifier,
		Amount:                 req.Amount,
		StartDate:              req.StartDate,
		EndDate:                req.EndDate,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// ListMine обрабатывает GET /contracts/my.
func (h *ContractHandler) ListMine(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	contracts, err := h.contracts.ListMyContracts(c.Request.Context(), auth)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contracts)
}

// Get обрабатывает GET /contracts/:id.
func (h *ContractHandler) Get(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.GetContract(c.Request.Context(), auth, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// GetText обрабатывает GET /contracts/:id/text.
func (h *ContractHandler) GetText(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	text, err := h.contracts.ContractText(c.Request.Context(), auth, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}

// Sign обрабатывает POST /contracts/:id/sign. Ожидает multipart форму
// с полями id_number и signature (файл изображения).
func (h *ContractHandler) Sign(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	idNumber := c.PostForm("id_number")
	if idNumber == "" {
		common.RespondBadRequest(c, "поле id_number обязательно")
		return
	}

	fileHeader, err := c.FormFile("signature")
	if err != nil {
		common.RespondBadRequest(c, "файл signature обязателен")
		return
	}
	if fileHeader.Size > maxSignatureBytes {
		common.RespondBadRequest(c, "файл подписи слишком большой")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось открыть файл")
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxSignatureBytes))
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	contract, err := h.contracts.Sign(c.Request.Context(), auth, id, idNumber, payload)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// Confirm обрабатывает POST /contracts/:id/confirm.
func (h *ContractHandler) Confirm(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.Confirm(c.Request.Context(), auth, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// Cancel обрабатывает POST /contracts/:id/cancel.
func (h *ContractHandler) Cancel(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.Cancel(c.Request.Context(), auth, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contract)
}
