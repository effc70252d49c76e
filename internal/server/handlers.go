package server

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palengkehub/vendorpermits/internal/models"
	"github.com/palengkehub/vendorpermits/internal/services"
	"github.com/palengkehub/vendorpermits/internal/store"
)

// Server holds the handler dependencies for the HTTP surface.
type Server struct {
	submissions *services.SubmissionService
	reviews     *services.ReviewService
	subStore    store.SubmissionStore
	baseDocs    store.BaseDocumentStore
	jwtSecret   string
}

// NewServer wires the HTTP handlers.
func NewServer(
	submissions *services.SubmissionService,
	reviews *services.ReviewService,
	subStore store.SubmissionStore,
	baseDocs store.BaseDocumentStore,
	jwtSecret string,
) *Server {
	return &Server{
		submissions: submissions,
		reviews:     reviews,
		subStore:    subStore,
		baseDocs:    baseDocs,
		jwtSecret:   jwtSecret,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	user := r.Group("/document-submissions", AuthRequired(s.jwtSecret))
	{
		user.POST("/upload", s.handleUpload)
		user.GET("/my-uploads", s.handleMyUploads)
		user.GET("/get-single/:id", s.handleGetSingle)
	}

	r.GET("/base-documents", AuthRequired(s.jwtSecret), s.handleListBaseDocuments)

	admin := r.Group("/admin/document-submissions", AuthRequired(s.jwtSecret), AdminRequired())
	{
		admin.PATCH("/update-status/:id", s.handleUpdateStatus)
		admin.GET("/get-all", s.handleGetAll)
		admin.DELETE("/delete/:id", s.handleDelete)
	}

	return r
}

func (s *Server) handleUpload(c *gin.Context) {
	claims := CurrentClaims(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not parse multipart form"})
		return
	}
	baseDocumentID := c.PostForm("base_document_id")
	if baseDocumentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_document_id is required"})
		return
	}
	notes := c.PostForm("notes")

	uploads, err := readUploads(form.File["files"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := s.submissions.Submit(c.Request.Context(), claims.UserID, baseDocumentID, notes, uploads)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrNoFiles),
			errors.Is(err, services.ErrBaseDocumentInactive):
			status = http.StatusBadRequest
		case errors.Is(err, services.ErrUserNotFound),
			errors.Is(err, services.ErrBaseDocumentNotFound):
			status = http.StatusNotFound
		}
		if status == http.StatusInternalServerError {
			slog.Error("Submission failed.", "userId", claims.UserID, "error", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Document submitted successfully",
		"submission": summary,
	})
}

func readUploads(headers []*multipart.FileHeader) ([]services.FileUpload, error) {
	if len(headers) == 0 {
		return nil, errors.New("at least one file is required")
	}
	uploads := make([]services.FileUpload, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, errors.New("could not open uploaded file " + header.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.New("could not read uploaded file " + header.Filename)
		}
		uploads = append(uploads, services.FileUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

func (s *Server) handleMyUploads(c *gin.Context) {
	claims := CurrentClaims(c)
	subs, err := s.subStore.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		slog.Error("Failed to list user submissions.", "userId", claims.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (s *Server) handleGetSingle(c *gin.Context) {
	claims := CurrentClaims(c)
	sub, err := s.subStore.Get(c.Request.Context(), c.Param("id"))
	if err != nil || sub.UserID != claims.UserID {
		// Hide whether the record exists from non-owners.
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found or you don't have permission to view it"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": sub})
}

func (s *Server) handleListBaseDocuments(c *gin.Context) {
	docs, err := s.baseDocs.ListActive(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list base documents.", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch base documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"base_documents": docs})
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	claims := CurrentClaims(c)

	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status and admin_notes are required"})
		return
	}

	sub, err := s.reviews.Review(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrEmptyNotes):
			status = http.StatusBadRequest
		case errors.Is(err, services.ErrNotAdmin):
			status = http.StatusForbidden
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, store.ErrAlreadyReviewed):
			status = http.StatusConflict
		}
		if status == http.StatusInternalServerError {
			slog.Error("Review failed.", "submissionId", c.Param("id"), "error", err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Submission status updated",
		"submission": sub,
	})
}

func (s *Server) handleGetAll(c *gin.Context) {
	subs, err := s.subStore.ListAll(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list all submissions.", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if err := s.subStore.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		slog.Error("Failed to delete submission.", "submissionId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete submission"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Submission deleted successfully"})
}
