package api

import (
	"errors"
	"net/http"

	"github.com/Phuduong999/annotation-platform-sub000/internal/apperr"
	"github.com/gin-gonic/gin"
)

// HandleError 将服务层错误映射为 HTTP 响应
// 冲突、不存在、校验错误是可预期结果,必须让调用方能区分
// "别人正在处理" / "输入不合法" / "不存在" 三种情况
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		ValidationFailed(c, ve.Fields)
		return
	}

	var ce *apperr.ConflictError
	if errors.As(err, &ce) {
		Error(c, http.StatusConflict, "conflict", ce.Reason)
		return
	}

	if apperr.IsNotFound(err) {
		Error(c, http.StatusNotFound, "not found", err.Error())
		return
	}

	// 存储层故障等不可恢复错误,不在本层重试,交给调用方退避
	Error(c, http.StatusInternalServerError, "internal server error", err.Error())
}

// ErrorHandlerMiddleware 错误处理中间件
// 兜底处理 handler 中通过 c.Error 上报的错误
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			HandleError(c, c.Errors.Last().Err)
		}
	}
}
