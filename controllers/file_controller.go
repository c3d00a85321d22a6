package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"secureshare/models"
	"secureshare/policy"
	"secureshare/services"
	"secureshare/utils"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the maximum file size.
const multipartOverhead = 1 << 20

type FileController struct {
	fileService     *services.FileService
	maxUploadSize   int64
	hideUnavailable bool
	logger          *logrus.Logger
}

func NewFileController(fileService *services.FileService, maxUploadSize int64, hideUnavailable bool, logger *logrus.Logger) *FileController {
	return &FileController{
		fileService:     fileService,
		maxUploadSize:   maxUploadSize,
		hideUnavailable: hideUnavailable,
		logger:          logger,
	}
}

// Upload handles multipart upload of a single file.
func (fc *FileController) Upload(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, fc.maxUploadSize+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fc.respondTooLarge(c)
			return
		}
		utils.ValidationErrorResponse(c, "file", "no file provided")
		return
	}

	// Form binding would read a blank number as zero.
	for _, field := range []string{"expiration_hours", "download_limit"} {
		if value, present := c.GetPostForm(field); present && strings.TrimSpace(value) == "" {
			utils.ValidationErrorResponse(c, field, "must not be empty when supplied")
			return
		}
	}

	var req models.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ValidationErrorResponse(c, "form", "invalid form data")
		return
	}
	if fieldErrs := utils.FieldErrors(req); len(fieldErrs) > 0 {
		details := make(map[string]interface{}, len(fieldErrs))
		for field, msg := range fieldErrs {
			details[field] = msg
		}
		utils.CodedErrorResponse(c, http.StatusBadRequest, "validation_error", "Invalid upload parameters", details)
		return
	}

	if fileHeader.Size > fc.maxUploadSize {
		fc.respondTooLarge(c)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		utils.ValidationErrorResponse(c, "file", "unreadable upload")
		return
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, fc.maxUploadSize+1))
	if err != nil {
		utils.ValidationErrorResponse(c, "file", "unreadable upload")
		return
	}

	record, err := fc.fileService.Upload(c.Request.Context(), services.UploadInput{
		Content:       content,
		OriginalName:  fileHeader.Filename,
		OwnerID:       principal.ID,
		TTLHours:      req.ExpirationHours,
		Password:      req.Password,
		DownloadLimit: req.DownloadLimit,
	})
	if err != nil {
		fc.respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "File uploaded successfully", models.NewUploadResult(record))
}

// Download streams a file addressed by id.
func (fc *FileController) Download(c *gin.Context) {
	fc.download(c, services.ByID(c.Param("id")))
}

// SharedDownload streams a file addressed by share token.
func (fc *FileController) SharedDownload(c *gin.Context) {
	fc.download(c, services.ByToken(c.Param("token")))
}

func (fc *FileController) download(c *gin.Context, loc services.Locator) {
	password, ok := fc.passwordFromRequest(c)
	if !ok {
		utils.ValidationErrorResponse(c, "password", "invalid request body")
		return
	}

	result, err := fc.fileService.Download(c.Request.Context(), loc, password)
	if err != nil {
		fc.respondError(c, err)
		return
	}
	if !result.Decision.Allowed {
		fc.respondDenied(c, result.Decision.Reason)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": result.Filename,
	}))
	c.Header("Content-Length", strconv.Itoa(len(result.Content)))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// passwordFromRequest reads the password from the query, the
// X-File-Password header or, for POST, a JSON or form body.
func (fc *FileController) passwordFromRequest(c *gin.Context) (string, bool) {
	if pw := c.Query("password"); pw != "" {
		return pw, true
	}
	if pw := c.GetHeader("X-File-Password"); pw != "" {
		return pw, true
	}
	if c.Request.Method != http.MethodPost || c.Request.ContentLength == 0 {
		return "", true
	}

	var req models.DownloadRequest
	if err := c.ShouldBind(&req); err != nil {
		return "", false
	}
	return req.Password, true
}

// GetFileInfo returns sanitized metadata by id.
func (fc *FileController) GetFileInfo(c *gin.Context) {
	fc.info(c, services.ByID(c.Param("id")))
}

// GetSharedFileInfo returns sanitized metadata by share token.
func (fc *FileController) GetSharedFileInfo(c *gin.Context) {
	fc.info(c, services.ByToken(c.Param("token")))
}

func (fc *FileController) info(c *gin.Context, loc services.Locator) {
	var requesterID string
	if principal, exists := utils.GetPrincipalFromContext(c); exists {
		requesterID = principal.ID
	}

	result, err := fc.fileService.Info(c.Request.Context(), loc, requesterID)
	if err != nil {
		fc.respondError(c, err)
		return
	}
	if !result.Decision.Allowed {
		fc.respondDenied(c, result.Decision.Reason)
		return
	}

	utils.SuccessResponse(c, "File info retrieved successfully", result.Info)
}

// GetMyFiles lists the caller's files.
func (fc *FileController) GetMyFiles(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	includeExpired, err := strconv.ParseBool(c.DefaultQuery("include_expired", "false"))
	if err != nil {
		utils.ValidationErrorResponse(c, "include_expired", "must be a boolean")
		return
	}

	files, err := fc.fileService.ListUserFiles(c.Request.Context(), principal.ID, includeExpired)
	if err != nil {
		fc.respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Files retrieved successfully", gin.H{
		"files": files,
		"total": len(files),
	})
}

// DeleteFile removes one of the caller's files.
func (fc *FileController) DeleteFile(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	if err := fc.fileService.Delete(c.Request.Context(), c.Param("id"), principal.ID); err != nil {
		fc.respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "File deleted successfully", nil)
}

// Cleanup runs an expiry sweep. Admin only.
func (fc *FileController) Cleanup(c *gin.Context) {
	principal, _ := utils.GetPrincipalFromContext(c)

	count, err := fc.fileService.Cleanup(c.Request.Context(), principal)
	if err != nil {
		fc.respondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Expired files deactivated", models.SweepResult{Deactivated: count})
}

func (fc *FileController) respondDenied(c *gin.Context, reason policy.Reason) {
	status := http.StatusForbidden
	switch reason {
	case policy.ReasonNotFound:
		status = http.StatusNotFound
	case policy.ReasonInactive, policy.ReasonExpired:
		if fc.hideUnavailable {
			reason = policy.ReasonNotFound
			status = http.StatusNotFound
		} else {
			status = http.StatusGone
		}
	}

	utils.CodedErrorResponse(c, status, string(reason), reason.Message(), nil)
}

func (fc *FileController) respondTooLarge(c *gin.Context) {
	utils.CodedErrorResponse(c, http.StatusRequestEntityTooLarge, "size_exceeded",
		"File exceeds the maximum size of "+utils.FormatFileSize(fc.maxUploadSize), map[string]interface{}{"field": "file"})
}

func (fc *FileController) respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrFileTooLarge):
		fc.respondTooLarge(c)
	case errors.As(err, &verr):
		utils.ValidationErrorResponse(c, verr.Field, verr.Reason)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "File not found")
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "You are not allowed to perform this operation")
	case errors.Is(err, services.ErrStorageUnavailable):
		fc.logger.WithError(err).WithField("path", c.FullPath()).Error("Storage unavailable")
		utils.ServiceUnavailableResponse(c, "Storage temporarily unavailable, please retry")
	default:
		fc.logger.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		utils.InternalServerErrorResponse(c, "Internal server error")
	}
}
