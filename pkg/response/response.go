package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// 空列表业务码
const CodeEmptyList = 40400

// Response 统一响应结构：{status, code, message, data}
type Response struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// ListData 不分页列表
type ListData struct {
	Results interface{} `json:"results"`
	Total   int64       `json:"total"`
}

func write(c *gin.Context, httpStatus int, code int, message string, data interface{}) {
	status := StatusSuccess
	if httpStatus >= http.StatusBadRequest {
		status = StatusFailed
	}
	c.JSON(httpStatus, Response{Status: status, Code: code, Message: message, Data: data})
}

// ── 成功响应 ──

// OK 200
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, 0, "success", data)
}

// OKWithMessage 200，自定义提示
func OKWithMessage(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusOK, 0, message, data)
}

// Created 201
func Created(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusCreated, 0, message, data)
}

// OKPage 分页列表
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	write(c, http.StatusOK, 0, "success", PageData{
		List: list,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// OKList 不分页列表
func OKList(c *gin.Context, results interface{}, total int64) {
	write(c, http.StatusOK, 0, "success", ListData{Results: results, Total: total})
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	write(c, httpStatus, code, message, nil)
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// EmptyList 空列表按 404 返回，兼容既有客户端
func EmptyList(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeEmptyList, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, 50000, "服务器内部错误")
}
