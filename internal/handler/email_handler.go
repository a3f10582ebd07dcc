package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"smart-email/internal/apperr"
	"smart-email/internal/model"
	"smart-email/internal/repository"
	"smart-email/internal/service"

	"github.com/labstack/echo/v4"
)

// maxPage bounds the page query parameter.
const maxPage = 1_000_000

type EmailHandler struct {
	emailService    service.EmailService
	users           UserResolver
	defaultPageSize int
	maxPageSize     int
	logger          echo.Logger
}

func NewEmailHandler(emailService service.EmailService, users UserResolver, defaultPageSize, maxPageSize int, logger echo.Logger) *EmailHandler {
	return &EmailHandler{
		emailService:    emailService,
		users:           users,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
	}
}

// GetInbox syncs and returns one page of the signed-in user's inbox.
func (h *EmailHandler) GetInbox(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	page, pageSize, err := h.pagination(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	identity := model.Identity{UserID: user.ID, Email: user.Email}
	result, err := h.emailService.SyncPage(c.Request().Context(), identity, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to sync inbox page:", err)
		return c.JSON(syncStatus(err), pageResponse(result, syncMessage(err)))
	}

	return c.JSON(http.StatusOK, pageResponse(result, ""))
}

// GetStored lists persisted classifications without touching the mailbox.
func (h *EmailHandler) GetStored(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	page, pageSize, err := h.pagination(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	identity := model.Identity{UserID: user.ID, Email: user.Email}
	result, err := h.emailService.ListStored(c.Request().Context(), identity, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list stored emails:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to get emails",
		})
	}

	return c.JSON(http.StatusOK, pageResponse(result, ""))
}

// ArchiveEmail hides a stored classification from the stored list.
func (h *EmailHandler) ArchiveEmail(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	identity := model.Identity{UserID: user.ID, Email: user.Email}
	if err := h.emailService.Archive(c.Request().Context(), identity, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Email not found",
			})
		}
		h.logger.Error("Failed to archive email:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to archive email",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Email archived",
	})
}

func (h *EmailHandler) pagination(c echo.Context) (int, int, error) {
	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxPage {
			return 0, 0, fmt.Errorf("page must be an integer between 1 and %d", maxPage)
		}
		page = parsed
	}

	pageSize := h.defaultPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		pageSize = parsed
	}
	if pageSize > h.maxPageSize {
		pageSize = h.maxPageSize
	}
	return page, pageSize, nil
}

func pageResponse(result service.PageResult, errMsg string) map[string]interface{} {
	items := result.Items
	if items == nil {
		items = []*model.ClassifiedEmail{}
	}
	resp := map[string]interface{}{
		"emails": items,
		"total":  result.Total,
		"page":   result.Page,
		"limit":  result.PageSize,
	}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	return resp
}

func syncStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUserNotFound, apperr.KindNoAccountLinked:
		return http.StatusNotFound
	case apperr.KindCredentialExpired:
		return http.StatusUnauthorized
	case apperr.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func syncMessage(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindUserNotFound, apperr.KindNoAccountLinked:
		return apperr.Message(err)
	case apperr.KindCredentialExpired:
		return "Mail access expired, please sign in again"
	default:
		return "Failed to fetch emails"
	}
}
