package users

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandlers provides HTTP handlers for user operations
type UserHandlers struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandlers creates new user handlers
func NewUserHandlers(service UserService, logger *zap.Logger) *UserHandlers {
	return &UserHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers all user-related routes
func (h *UserHandlers) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:userId", h.GetUser)
		users.PUT("/:userId", h.UpdateUser)
		users.DELETE("/:userId", h.SoftDeleteUser)
		users.DELETE("/:userId/hard", h.HardDeleteUser)
	}
}

// CreateUser handles POST /users
func (h *UserHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create user",
			zap.String("username", req.Username),
			zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser handles GET /users/:userId
func (h *UserHandlers) GetUser(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers handles GET /users with pagination
func (h *UserHandlers) ListUsers(c *gin.Context) {
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		page = parsed
	}

	size := 10
	if sizeStr := c.Query("size"); sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 100"})
			return
		}
		size = parsed
	}

	activeOnly := true
	if activeStr := c.Query("active_only"); activeStr != "" {
		parsed, err := strconv.ParseBool(activeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "active_only must be a boolean"})
			return
		}
		activeOnly = parsed
	}

	skip := (page - 1) * size
	usersPage, total, err := h.service.ListUsers(c.Request.Context(), skip, size, activeOnly)
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		h.writeError(c, err)
		return
	}

	pages := 1
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(size)))
	}

	c.JSON(http.StatusOK, UserListResponse{
		Users: usersPage,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pages,
	})
}

// UpdateUser handles PUT /users/:userId
func (h *UserHandlers) UpdateUser(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), userID, &req)
	if err != nil {
		h.logger.Error("Failed to update user",
			zap.Int64("user_id", userID),
			zap.Error(err))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SoftDeleteUser handles DELETE /users/:userId
func (h *UserHandlers) SoftDeleteUser(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	if err := h.service.SoftDeleteUser(c.Request.Context(), userID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HardDeleteUser handles DELETE /users/:userId/hard
func (h *UserHandlers) HardDeleteUser(c *gin.Context) {
	userID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	if err := h.service.HardDeleteUser(c.Request.Context(), userID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandlers) userIDParam(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return userID, true
}

// writeError maps typed domain outcomes to status codes
func (h *UserHandlers) writeError(c *gin.Context, err error) {
	if userErr, ok := AsUserError(err); ok {
		switch userErr.Type {
		case UserErrorTypeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		case UserErrorTypeConflict:
			c.JSON(http.StatusConflict, gin.H{"error": userErr.Message, "field": userErr.Field})
			return
		case UserErrorTypeInvalidRequest:
			c.JSON(http.StatusBadRequest, gin.H{"error": userErr.Message})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
