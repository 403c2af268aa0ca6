package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"read-check/internal/auth"
	"read-check/internal/domain"
	"read-check/internal/metrics"
	"read-check/internal/repository"
	"read-check/internal/service"
	"read-check/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users      service.UserService
	articles   service.ArticleService
	tokens     *auth.TokenService
	storage    storage.Service
	bucket     string
	production bool
}

func NewHandler(
	users service.UserService,
	articles service.ArticleService,
	tokens *auth.TokenService,
	store storage.Service,
	bucket string,
	production bool,
) *Handler {
	return &Handler{
		users:      users,
		articles:   articles,
		tokens:     tokens,
		storage:    store,
		bucket:     bucket,
		production: production,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(metricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/auth/signup", h.signup)
		api.POST("/auth/login", h.login)

		protected := api.Group("", auth.Middleware(h.tokens))
		{
			protected.GET("/user", h.currentUser)
			protected.GET("/articles", h.listArticles)
			protected.POST("/articles", h.saveArticle)
			protected.GET("/articles/:id", h.getArticle)
			protected.PATCH("/articles/:id", h.updateArticle)
			protected.DELETE("/articles/:id", h.deleteArticle)
			protected.POST("/articles/:id/verify", h.verifyArticle)
			protected.GET("/archive/objects", h.listArchiveObjects)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Not found"})
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.CountRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}

// respondError writes the {status, message} error envelope. Server-side
// failure details are redacted in production.
func (h *Handler) respondError(c *gin.Context, status int, message string) {
	if h.production && status >= http.StatusInternalServerError {
		message = "Internal Server Error"
	}
	c.JSON(status, gin.H{"status": "error", "message": message})
}

func respondSuccess(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status, message := signupError(err)
		h.respondError(c, status, message)
		return
	}

	token, err := h.tokens.Issue(auth.Identity{ID: user.ID, Email: user.Email})
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondSuccess(c, http.StatusCreated, gin.H{
		"user":  gin.H{"id": user.ID, "email": user.Email},
		"token": token,
	})
}

func signupError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		return http.StatusBadRequest, "Email and password are required"
	case errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email format"
	case errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be at least 8 characters"
	case errors.Is(err, service.ErrEmailInUse):
		return http.StatusConflict, "Email already in use"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			h.respondError(c, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			h.respondError(c, http.StatusUnauthorized, "Invalid email or password")
		default:
			h.respondError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	token, err := h.tokens.Issue(auth.Identity{ID: user.ID, Email: user.Email})
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"user":  gin.H{"id": user.ID, "email": user.Email},
		"token": token,
	})
}

func (h *Handler) currentUser(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"user": gin.H{"id": identity.ID, "email": identity.Email},
	})
}

func (h *Handler) listArticles(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	articles, err := h.articles.List(c.Request.Context(), identity.ID)
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]ArticleResponse, len(articles))
	for i := range articles {
		resp[i] = articleToResponse(articles[i])
	}
	respondSuccess(c, http.StatusOK, gin.H{"articles": resp})
}

func (h *Handler) getArticle(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := c.Param("id")
	if uuid.Validate(id) != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid article ID")
		return
	}

	article, err := h.articles.Get(c.Request.Context(), identity.ID, id)
	if err != nil {
		h.articleError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"article": articleToResponse(*article)})
}

type saveArticleRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (h *Handler) saveArticle(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req saveArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" || req.Title == "" {
		h.respondError(c, http.StatusBadRequest, "URL and title are required")
		return
	}

	article, err := h.articles.Save(c.Request.Context(), identity.ID, req.URL, req.Title)
	if err != nil {
		if errors.Is(err, service.ErrSaveFailed) {
			h.respondError(c, http.StatusInternalServerError, "Failed to save article: "+err.Error())
			return
		}
		h.respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondSuccess(c, http.StatusCreated, gin.H{"article": articleToResponse(*article)})
}

func (h *Handler) updateArticle(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := c.Param("id")
	if uuid.Validate(id) != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid article ID")
		return
	}

	var body struct {
		Title  *string `json:"title"`
		IsRead *bool   `json:"is_read"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Title == nil && body.IsRead == nil {
		h.respondError(c, http.StatusBadRequest, "No valid fields to update")
		return
	}

	article, err := h.articles.Update(c.Request.Context(), identity.ID, id, repository.ArticleUpdate{
		Title:  body.Title,
		IsRead: body.IsRead,
	})
	if err != nil {
		if errors.Is(err, service.ErrArticleNotFound) {
			h.respondError(c, http.StatusNotFound, "Article not found or unauthorized")
			return
		}
		h.articleError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"article": articleToResponse(*article)})
}

func (h *Handler) deleteArticle(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := c.Param("id")
	if uuid.Validate(id) != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid article ID")
		return
	}

	if err := h.articles.Delete(c.Request.Context(), identity.ID, id); err != nil {
		if errors.Is(err, service.ErrArticleNotFound) {
			h.respondError(c, http.StatusNotFound, "Article not found or unauthorized")
			return
		}
		h.respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Article deleted successfully"})
}

type verifyRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) verifyArticle(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		h.respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := c.Param("id")
	if uuid.Validate(id) != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid article ID")
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Answer == "" {
		h.respondError(c, http.StatusBadRequest, "Answer is required")
		return
	}

	result, err := h.articles.VerifyAnswer(c.Request.Context(), identity.ID, id, req.Answer)
	if err != nil {
		h.articleError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"verified": result.Verified,
		"message":  result.Message,
		"article":  articleToResponse(*result.Article),
	})
}

func (h *Handler) listArchiveObjects(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		h.respondError(c, http.StatusInternalServerError, "archive storage not configured")
		return
	}

	prefix := c.Query("prefix")
	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, prefix)
	if err != nil {
		h.respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]ArchiveObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	respondSuccess(c, http.StatusOK, gin.H{"objects": resp})
}

func (h *Handler) articleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArticleNotFound):
		h.respondError(c, http.StatusNotFound, "Article not found")
	case errors.Is(err, service.ErrForbidden):
		h.respondError(c, http.StatusForbidden, "You don't have permission to access this article")
	default:
		h.respondError(c, http.StatusInternalServerError, err.Error())
	}
}

type ArticleResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	URL             string `json:"url"`
	Title           string `json:"title"`
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	IsRead          bool   `json:"is_read"`
	ContentLocation string `json:"content_location,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type ArchiveObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func articleToResponse(article domain.Article) ArticleResponse {
	return ArticleResponse{
		ID:              article.ID,
		UserID:          article.UserID,
		URL:             article.URL,
		Title:           article.Title,
		Question:        article.Question,
		Answer:          article.Answer,
		IsRead:          article.IsRead,
		ContentLocation: article.ContentLocation,
		CreatedAt:       article.CreatedAt.Format(time.RFC3339),
	}
}

func objectToResponse(obj storage.ObjectInfo) ArchiveObjectResponse {
	resp := ArchiveObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
