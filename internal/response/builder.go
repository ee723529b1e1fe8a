// Package response 提供基于httptool.BaseHttpResponse的统一HTTP响应格式
//
// 这个包实现了统一的响应构建器，支持：
// 管理接口与决策服务的非限流错误都使用该格式；
// 限流拒绝本身使用 ratelimit.Rejection 固定格式，不经过此包。
//
// 基本用法：
//
//	response.Success(data).JSON(c, http.StatusOK)
//	response.Error(CodeUnknownProfile, "unknown rate limit profile").WithDetail(detail).JSON(c, http.StatusNotFound)
//	response.Paginated(items, total, pageIndex, pageSize, false).JSON(c, http.StatusOK)
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shengyanli1982/toolkit/pkg/httptool"
)

// 响应代码常量定义
const (
	// CodeSuccess 表示操作成功
	CodeSuccess = 0

	// 1000-1999: 客户端错误
	CodeBadRequest = 1000 // 请求参数错误
	CodeNotFound   = 1003 // 资源未找到
	CodeRateLimit  = 1004 // 请求频率限制

	// 2000-2999: 服务器错误
	CodeInternalError = 2000 // 服务器内部错误

	// 3000-3999: 限流业务错误
	CodeUnknownProfile   = 3000 // 限流配置不存在
	CodeStoreUnavailable = 3001 // 计数存储不可用
	CodeBreakerOpen      = 3002 // 计数存储熔断器开启
)

// ResponseBuilder 是基于httptool.BaseHttpResponse的统一响应构建器
type ResponseBuilder struct {
	response *httptool.BaseHttpResponse
}

// Success 创建成功响应构建器
func Success(data interface{}) *ResponseBuilder {
	return &ResponseBuilder{
		response: &httptool.BaseHttpResponse{
			Code: CodeSuccess,
			Data: data,
		},
	}
}

// Error 创建错误响应构建器
func Error(code int64, message string) *ResponseBuilder {
	return &ResponseBuilder{
		response: &httptool.BaseHttpResponse{
			Code:         code,
			ErrorMessage: message,
		},
	}
}

// WithDetail 添加错误详细信息，支持链式调用
func (r *ResponseBuilder) WithDetail(detail interface{}) *ResponseBuilder {
	r.response.ErrorDetail = detail
	return r
}

// WithData 设置响应数据，支持链式调用
func (r *ResponseBuilder) WithData(data interface{}) *ResponseBuilder {
	r.response.Data = data
	return r
}

// JSON 将响应输出为JSON格式到gin.Context
func (r *ResponseBuilder) JSON(c *gin.Context, httpStatus int) {
	c.JSON(httpStatus, r.response)
}

// GetResponse 获取底层的BaseHttpResponse对象
func (r *ResponseBuilder) GetResponse() *httptool.BaseHttpResponse {
	return r.response
}

// 便捷方法：常见的成功响应

// OK 返回标准的成功响应（HTTP 200）
func OK(c *gin.Context, data interface{}) {
	Success(data).JSON(c, http.StatusOK)
}

// NoContent 返回无内容响应（HTTP 204）
func NoContent(c *gin.Context) {
	Success(nil).JSON(c, http.StatusNoContent)
}

// 便捷方法：常见的错误响应

// BadRequest 返回客户端请求错误响应（HTTP 400）
func BadRequest(c *gin.Context, message string) {
	Error(CodeBadRequest, message).JSON(c, http.StatusBadRequest)
}

// NotFound 返回资源未找到错误响应（HTTP 404）
func NotFound(c *gin.Context, message string) {
	Error(CodeNotFound, message).JSON(c, http.StatusNotFound)
}

// InternalServerError 返回服务器内部错误响应（HTTP 500）
func InternalServerError(c *gin.Context, message string) {
	Error(CodeInternalError, message).JSON(c, http.StatusInternalServerError)
}

// PaginatedResponseBuilder 是分页响应构建器
type PaginatedResponseBuilder struct {
	response *httptool.HttpResponsePaginated
}

// Paginated 创建分页响应构建器
func Paginated(data interface{}, totalCount int64, pageIndex int64, pageSize int64, desc bool) *PaginatedResponseBuilder {
	return &PaginatedResponseBuilder{
		response: &httptool.HttpResponsePaginated{
			HttpResponseItemsTotal: httptool.HttpResponseItemsTotal{
				TotalCount: totalCount,
			},
			HttpQueryPaginated: httptool.HttpQueryPaginated{
				PageIndex: pageIndex,
				PageSize:  pageSize,
				Desc:      desc,
			},
			BaseHttpResponse: httptool.BaseHttpResponse{
				Code: CodeSuccess,
				Data: data,
			},
		},
	}
}

// WithError 为分页响应设置错误信息
func (p *PaginatedResponseBuilder) WithError(code int64, message string) *PaginatedResponseBuilder {
	p.response.BaseHttpResponse.Code = code
	p.response.BaseHttpResponse.ErrorMessage = message
	return p
}

// WithDetail 为分页响应添加错误详细信息
func (p *PaginatedResponseBuilder) WithDetail(detail interface{}) *PaginatedResponseBuilder {
	p.response.BaseHttpResponse.ErrorDetail = detail
	return p
}

// JSON 将分页响应输出为JSON格式到gin.Context
func (p *PaginatedResponseBuilder) JSON(c *gin.Context, httpStatus int) {
	c.JSON(httpStatus, p.response)
}

// GetResponse 获取底层的HttpResponsePaginated对象
func (p *PaginatedResponseBuilder) GetResponse() *httptool.HttpResponsePaginated {
	return p.response
}
