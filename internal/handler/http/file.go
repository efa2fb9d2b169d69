package http

import (
	"net/http"
	"strconv"

	"collaborative-workspace/internal/service"

	"github.com/gin-gonic/gin"
)

// FileHandler 封装了用户文件树的 HTTP 处理逻辑。
type FileHandler struct {
	fileService *service.FileService
}

// NewFileHandler 创建 FileHandler 实例
func NewFileHandler(fileService *service.FileService) *FileHandler {
	if fileService == nil {
		panic("FileService cannot be nil for FileHandler")
	}
	return &FileHandler{fileService: fileService}
}

func fileIDParam(c *gin.Context) (uint, bool) {
	idStr := c.Param("fileId")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid file ID format")
		return 0, false
	}
	return uint(id), true
}

// ListTree 返回当前用户的文件树
func (h *FileHandler) ListTree(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	tree, err := h.fileService.ListTree(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"tree": tree})
}

// CreateFileRequest 定义创建文件/文件夹请求的结构体
type CreateFileRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=255"`
	Kind     string `json:"kind" binding:"required,oneof=file folder"`
	ParentID *uint  `json:"parent_id"`
}

// Create 创建文件或文件夹
func (h *FileHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name and kind (file|folder) are required")
		return
	}

	node, err := h.fileService.Create(c.Request.Context(), userID, req.Name, req.Kind, req.ParentID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"file": node})
}

// RenameFileRequest 定义重命名请求的结构体
type RenameFileRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// Rename 重命名文件或文件夹
func (h *FileHandler) Rename(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	fileID, ok := fileIDParam(c)
	if !ok {
		return
	}

	var req RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	node, err := h.fileService.Rename(c.Request.Context(), userID, fileID, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"file": node})
}

// SaveContentRequest 定义保存内容请求的结构体
type SaveContentRequest struct {
	Content string `json:"content"`
}

// SaveContent 保存文件内容
func (h *FileHandler) SaveContent(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	fileID, ok := fileIDParam(c)
	if !ok {
		return
	}

	var req SaveContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}

	if err := h.fileService.SaveContent(c.Request.Context(), userID, fileID, req.Content); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "File saved"})
}

// Delete 删除文件或文件夹
func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}
	fileID, ok := fileIDParam(c)
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), userID, fileID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "File deleted"})
}
