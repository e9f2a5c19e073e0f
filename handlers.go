package main

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cashbackd/pkg/photo"
	"cashbackd/pkg/store"
)

// maxUploadBytes caps a single photo before normalization.
const maxUploadBytes = 10 << 20

type server struct {
	cfg Config
	svc *store.Service
	log *logrus.Logger
}

func (s *server) setupRoutes(r *gin.Engine) {
	r.GET("/submissions", s.listSubmissionsHandler)
	r.POST("/submissions", s.createSubmissionHandler)
	r.POST("/admin/login", s.adminLoginHandler)

	admin := r.Group("/admin")
	admin.Use(adminAuthMiddleware([]byte(s.cfg.SessionSecret)))
	admin.PATCH("/submissions/:id", s.updateSubmissionHandler)
	admin.POST("/logout", s.adminLogoutHandler)

	// locally stored photos resolve through this route
	r.Static("/uploads", s.cfg.UploadBase)
}

func (s *server) listSubmissionsHandler(c *gin.Context) {
	recs, err := s.svc.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *server) createSubmissionHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	plan, _ := strconv.ParseInt(c.PostForm("plan"), 10, 64)
	total, _ := strconv.ParseInt(c.PostForm("total"), 10, 64)

	var files []store.File
	for _, fh := range form.File["files"] {
		if fh.Size > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
			return
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only image uploads are accepted"})
			return
		}
		src, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
			return
		}
		normalized, ctype, err := photo.Normalize(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a readable image"})
			return
		}
		// normalization re-encodes as JPEG, so the stored name follows
		name := strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)) + ".jpg"
		files = append(files, store.File{Name: name, ContentType: ctype, Data: normalized})
	}

	rec, err := s.svc.Create(c.Request.Context(), store.CreateInput{
		Username: c.PostForm("username"),
		Plan:     plan,
		Total:    total,
		Files:    files,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *server) updateSubmissionHandler(c *gin.Context) {
	var req struct {
		Status string  `json:"status" binding:"required"`
		Note   *string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	note := req.Note
	if note != nil && strings.TrimSpace(*note) == "" {
		note = nil
	}
	rec, err := s.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, note)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) adminLoginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !checkCredentials(s.cfg, req.Username, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := issueSession([]byte(s.cfg.SessionSecret), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookie, token, int(sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) adminLogoutHandler(c *gin.Context) {
	c.SetCookie(authCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// fail maps service errors onto HTTP status codes.
func (s *server) fail(c *gin.Context, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
	default:
		s.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
	}
}
