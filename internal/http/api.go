package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"events-tracker/internal/domain"
	"events-tracker/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth   service.AuthService
	events service.EventService
	logger *logrus.Logger
}

func NewHandler(auth service.AuthService, events service.EventService, logger *logrus.Logger) *Handler {
	return &Handler{
		auth:   auth,
		events: events,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(requestLogger(h.logger))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.register)
			authGroup.POST("/login", h.login)
			authGroup.GET("/me", h.requireAuth(), h.me)
		}

		events := api.Group("/events")
		{
			events.GET("", h.listEvents)
			events.POST("", h.requireAuth(), h.createEvent)
			events.GET("/my", h.requireAuth(), h.myEvents)
			events.GET("/:id", h.getEvent)
			events.GET("/:id/image", h.getEventImage)
			events.PUT("/:id", h.requireAuth(), h.updateEvent)
			events.DELETE("/:id", h.requireAuth(), h.deleteEvent)
		}

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(user))
}

func (h *Handler) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	token, user, err := h.auth.Login(c.Request.Context(), username, password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         userToResponse(user),
	})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.auth.GetByID(c.Request.Context(), principal(c))
	if err != nil {
		// a token for a user the store no longer knows is not a valid identity
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrInvalidToken
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) listEvents(c *gin.Context) {
	h.listWithFilter(c, domain.EventFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Limit:    intQuery(c, "limit"),
		Offset:   intQuery(c, "offset"),
	})
}

func (h *Handler) myEvents(c *gin.Context) {
	h.listWithFilter(c, domain.EventFilter{
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		CreatorID: principal(c),
		Limit:     intQuery(c, "limit"),
		Offset:    intQuery(c, "offset"),
	})
}

func (h *Handler) listWithFilter(c *gin.Context, filter domain.EventFilter) {
	events, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]EventResponse, len(events))
	for i := range events {
		resp[i] = eventToResponse(&events[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	event, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eventToResponse(event))
}

func (h *Handler) getEventImage(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	contentType, data, err := h.events.GetImage(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) createEvent(c *gin.Context) {
	date, err := parseEventDate(c.PostForm("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	image, err := h.formImage(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	event, err := h.events.Create(c.Request.Context(), service.CreateEventInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Date:        date,
		Location:    c.PostForm("location"),
		Category:    c.PostForm("category"),
		Image:       image,
	}, principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, eventToResponse(event))
}

func (h *Handler) updateEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	var patch domain.EventPatch
	if title, present := c.GetPostForm("title"); present {
		patch.Title = &title
	}
	if description, present := c.GetPostForm("description"); present {
		patch.Description = &description
	}
	if raw, present := c.GetPostForm("date"); present {
		// an empty value is not "leave it alone", it is a bad date
		if raw == "" {
			h.writeError(c, fmt.Errorf("%w: date must not be empty", domain.ErrValidation))
			return
		}
		date, err := parseEventDate(raw)
		if err != nil {
			h.writeError(c, err)
			return
		}
		patch.Date = &date
	}
	if location, present := c.GetPostForm("location"); present {
		patch.Location = &location
	}
	if raw, present := c.GetPostForm("category"); present {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			h.writeError(c, err)
			return
		}
		patch.Category = &category
	}

	image, err := h.formImage(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	event, err := h.events.Update(c.Request.Context(), id, patch, image, principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, eventToResponse(event))
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id, ok := h.eventID(c)
	if !ok {
		return
	}

	if err := h.events.Delete(c.Request.Context(), id, principal(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// eventID parses the :id path segment. A non-numeric id names no event, so it
// reads as NotFound rather than Validation.
func (h *Handler) eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "event not found"})
		return 0, false
	}
	return id, true
}

func (h *Handler) formImage(c *gin.Context) (*service.ImageUpload, error) {
	header, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open image: %v", domain.ErrValidation, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", domain.ErrValidation, err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &service.ImageUpload{ContentType: contentType, Data: data}, nil
}

func parseEventDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date format, use ISO-8601 (e.g. 2006-01-02T15:04:05Z)", domain.ErrValidation)
}

func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// writeError is the single translation point from typed domain outcomes to the
// wire contract.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrTokenExpired):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	default:
		h.logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	CreatedAt string `json:"created_at"`
}

type EventResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Date             string  `json:"date"`
	Location         string  `json:"location"`
	Category         string  `json:"category"`
	CreatorID        int64   `json:"creator_id"`
	ImageContentType *string `json:"image_content_type"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func eventToResponse(event *domain.Event) EventResponse {
	resp := EventResponse{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date.Format(time.RFC3339),
		Location:    event.Location,
		Category:    string(event.Category),
		CreatorID:   event.CreatorID,
		CreatedAt:   event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   event.UpdatedAt.Format(time.RFC3339),
	}
	if event.ImageContentType != "" {
		v := event.ImageContentType
		resp.ImageContentType = &v
	}
	return resp
}
