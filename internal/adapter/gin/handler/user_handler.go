package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	domain "usuarios-service/internal/domain/user"
	"usuarios-service/internal/usecase/user"
	pkgerrors "usuarios-service/pkg/errors"
	"usuarios-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for the /usuarios resource
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// UserRequest represents the HTTP request body for creating or replacing a user.
// ID is accepted for compatibility but never used: storage assigns it on
// create and the path decides it on update.
type UserRequest struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CPF       string `json:"cpf"`
	BirthDate string `json:"birthDate"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CPF       string `json:"cpf"`
	BirthDate string `json:"birthDate"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toResponse(u user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CPF:       u.CPF,
		BirthDate: domain.FormatDate(u.BirthDate),
	}
}

func toResponses(users []user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toResponse(u)
	}
	return out
}

// CreateUser handles POST /usuarios
func (h *UserHandler) CreateUser(c *gin.Context) {
	req, birthDate, err := h.bindUser(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:      req.Name,
		Email:     req.Email,
		CPF:       req.CPF,
		BirthDate: birthDate,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(*resp))
}

// ListUsers handles GET /usuarios
func (h *UserHandler) ListUsers(c *gin.Context) {
	resp, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.writeList(c, resp.Users)
}

// GetUser handles GET /usuarios/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := h.pathID(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(*resp))
}

// DeleteUser handles DELETE /usuarios/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := h.pathID(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id}); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// FilterByBirthDate handles GET /usuarios/filtro-data?nascimento=YYYY-MM-DD
func (h *UserHandler) FilterByBirthDate(c *gin.Context) {
	nascimento, present := c.GetQuery("nascimento")
	if !present {
		h.handleError(c, pkgerrors.NewValidationError("nascimento", "query parameter is required"))
		return
	}

	resp, err := h.uc.FilterUsersByBirthDate(c.Request.Context(), user.FilterUsersRequest{BornAfter: nascimento})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.writeList(c, resp.Users)
}

// UpdateUser handles PUT /usuarios/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := h.pathID(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	req, birthDate, err := h.bindUser(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:        id,
		Name:      req.Name,
		Email:     req.Email,
		CPF:       req.CPF,
		BirthDate: birthDate,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(*resp))
}

// writeList answers 204 with no body for an empty result and 200 otherwise.
func (h *UserHandler) writeList(c *gin.Context, users []user.User) {
	if len(users) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toResponses(users))
}

func (h *UserHandler) pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, pkgerrors.NewValidationError("id", "must be a valid number")
	}
	return id, nil
}

// bindUser decodes the body and parses birthDate; an empty birthDate stays unset.
func (h *UserHandler) bindUser(c *gin.Context) (UserRequest, time.Time, error) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return UserRequest{}, time.Time{}, pkgerrors.NewValidationError("body", err.Error())
	}
	if req.BirthDate == "" {
		return req, time.Time{}, nil
	}

	birthDate, err := domain.ParseDate(req.BirthDate)
	if err != nil {
		return UserRequest{}, time.Time{}, pkgerrors.NewValidationError("birthDate", "must be YYYY-MM-DD")
	}
	return req, birthDate, nil
}

// handleError converts usecase errors to HTTP responses. Not found and
// conflict carry no body.
func (h *UserHandler) handleError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context(), h.log)

	switch status := pkgerrors.StatusOf(err); status {
	case http.StatusNotFound, http.StatusConflict:
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
		c.Status(status)
	case http.StatusBadRequest:
		log.Warn("invalid request", zap.Error(err))
		code := "validation_error"
		var ve *pkgerrors.ValidationError
		if errors.As(err, &ve) && ve.Field == "id" {
			code = "invalid_id"
		}
		c.JSON(status, ErrorResponse{
			Error:   code,
			Message: err.Error(),
		})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
