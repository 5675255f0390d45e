package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"TripGuard/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// asDefinition 支持被 fmt.Errorf("%w") 包装过的 Definition
func asDefinition(err error) (errors.Definition, bool) {
	var def errors.Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return errors.Definition{}, false
}

// StatusFor 业务错误码到 HTTP 状态码的映射
func StatusFor(err error) int {
	def, ok := asDefinition(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch def {
	case errors.InvalidRequest:
		return http.StatusBadRequest // 400
	case errors.LocationPermissionDenied:
		return http.StatusForbidden // 403
	case errors.NoActiveSession:
		return http.StatusNotFound // 404
	case errors.LaunchRateLimited:
		return http.StatusTooManyRequests // 429
	case errors.BackgroundLocationUnsupported:
		return http.StatusNotImplemented // 501
	case errors.TripCreationFailed:
		return http.StatusBadGateway // 502
	case errors.NetworkUnavailable, errors.GeocoderUnavailable, errors.StorageUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

func errorDetail(err error, details map[string]interface{}) ErrorDetail {
	if def, ok := asDefinition(err); ok {
		return ErrorDetail{Code: def.Code, Message: def.Message, Details: details}
	}
	return ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error(), Details: details}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(StatusFor(err), ErrorResponse{Error: errorDetail(err, nil)})
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	c.JSON(StatusFor(err), ErrorResponse{Error: errorDetail(err, details)})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

// Accepted 请求已受理但尚未完成（例如离线入队）
func Accepted(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusAccepted, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
