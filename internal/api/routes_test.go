package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Phuduong999/annotation-platform-sub000/internal/api"
	"github.com/Phuduong999/annotation-platform-sub000/internal/config"
	"github.com/Phuduong999/annotation-platform-sub000/internal/database"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/Phuduong999/annotation-platform-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRouter 创建测试路由及依赖
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	hub := websocket.NewHub()
	go hub.Run()

	auditLogSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	controllers := api.NewControllers(
		db,
		service.NewTaskService(db, auditLogSvc),
		service.NewAssignmentService(db, hub),
		service.NewLifecycleService(db, nil, hub),
		service.NewQueryService(db),
		service.NewStatisticsService(db),
		auditLogSvc,
	)

	cfg := &config.Config{
		Env: "development",
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			MaxAge:         300,
		},
	}
	return api.SetupRoutes(cfg, controllers, hub)
}

// doRequest 发送请求并返回响应
func doRequest(router *gin.Engine, method string, path string, body interface{}, actor string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeData 解析成功响应的 data 字段
func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

// TestFullAnnotationFlow 创建、拉取、开始、草稿、提交的完整流程
func TestFullAnnotationFlow(t *testing.T) {
	router := setupTestRouter(t)

	// 创建任务
	w := doRequest(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"request_id":  "req-001",
		"payload_ref": "s3://bucket/item-001",
		"priority":    0.8,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	taskID, _ := decodeData(t, w)["id"].(string)
	require.NotEmpty(t, taskID)

	// 重复的 request_id 返回 409
	w = doRequest(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"request_id":  "req-001",
		"payload_ref": "s3://bucket/item-001",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	// 拉取任务
	w = doRequest(router, http.MethodPost, "/api/v1/tasks/next", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, taskID, decodeData(t, w)["id"])

	// 开始标注
	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+taskID+"/start", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", decodeData(t, w)["status"])

	// 保存不完整草稿
	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+taskID+"/draft", gin.H{
		"payload": gin.H{"sentiment": "positive"},
	}, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 读取草稿
	w = doRequest(router, http.MethodGet, "/api/v1/tasks/"+taskID+"/draft", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	// 提交完整标注
	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+taskID+"/submit", gin.H{
		"payload":         gin.H{"sentiment": "positive", "category": "billing", "quality": "high"},
		"idempotency_key": "submit-1",
	}, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	annotationID, _ := decodeData(t, w)["id"].(string)
	require.NotEmpty(t, annotationID)

	// 幂等重试返回同一结果
	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+taskID+"/submit", gin.H{
		"payload":         gin.H{"sentiment": "positive", "category": "billing", "quality": "high"},
		"idempotency_key": "submit-1",
	}, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, annotationID, decodeData(t, w)["id"])

	// 任务落终态
	w = doRequest(router, http.MethodGet, "/api/v1/tasks/"+taskID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeData(t, w)["status"])

	// 草稿已删除
	w = doRequest(router, http.MethodGet, "/api/v1/tasks/"+taskID+"/draft", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 事件日志与存储状态一致
	w = doRequest(router, http.MethodGet, "/api/v1/tasks/"+taskID+"/consistency", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeData(t, w)["consistent"])
}

// TestFetchNextRequiresActorHeader 变更类路由强制要求 X-Actor-ID
func TestFetchNextRequiresActorHeader(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/tasks/next", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestFetchNextEmptyQueueReturnsNull 队列已空返回成功且 data 为 null
func TestFetchNextEmptyQueueReturnsNull(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/tasks/next", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "null", string(resp.Data))
}

// TestSubmitValidationReportsFields 校验失败返回 422 和全部不合法字段
func TestSubmitValidationReportsFields(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"request_id":  "req-v",
		"payload_ref": "s3://bucket/v",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	taskID, _ := decodeData(t, w)["id"].(string)

	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+taskID+"/start", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+taskID+"/submit", gin.H{
		"payload": gin.H{"sentiment": "ecstatic"},
	}, "alice")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Fields, 3)
}

// TestSkipAndDistributeEndpoints 跳过与批量均分端点
func TestSkipAndDistributeEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	for i := 0; i < 4; i++ {
		w := doRequest(router, http.MethodPost, "/api/v1/tasks", gin.H{
			"request_id":  fmt.Sprintf("req-%d", i),
			"payload_ref": fmt.Sprintf("s3://bucket/%d", i),
		}, "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	// 均分给两人
	w := doRequest(router, http.MethodPost, "/api/v1/tasks/distribute", gin.H{
		"actors": []string{"alice", "bob"},
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	counts := decodeData(t, w)
	assert.Equal(t, float64(2), counts["alice"])
	assert.Equal(t, float64(2), counts["bob"])

	// alice 跳过一个自己的任务
	status := "assigned"
	w = doRequest(router, http.MethodGet, "/api/v1/tasks?status="+status+"&page_size=50", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Data []struct {
			ID         string  `json:"id"`
			AssignedTo *string `json:"assigned_to"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.NotEmpty(t, listResp.Data)

	var aliceTask string
	for _, item := range listResp.Data {
		if item.AssignedTo != nil && *item.AssignedTo == "alice" {
			aliceTask = item.ID
			break
		}
	}
	require.NotEmpty(t, aliceTask)

	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+aliceTask+"/skip", gin.H{
		"reason": "unclear_instructions",
	}, "alice")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pending", decodeData(t, w)["status"])

	// 原因缺失返回 400(请求体绑定失败)
	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+aliceTask+"/skip", gin.H{}, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestConflictOnForeignHold 他人持有的任务操作返回 409
func TestConflictOnForeignHold(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"request_id":  "req-hold",
		"payload_ref": "s3://bucket/hold",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	taskID, _ := decodeData(t, w)["id"].(string)

	w = doRequest(router, http.MethodPost, "/api/v1/tasks/next", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/tasks/"+taskID+"/start", nil, "bob")
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestHealthAndMetricsEndpoints 健康检查与指标端点
func TestHealthAndMetricsEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestNoRouteReturnsJSON 未匹配路由返回 JSON 404
func TestNoRouteReturnsJSON(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v2/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

// TestStatisticsEndpoints 统计端点
func TestStatisticsEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/tasks", gin.H{
		"request_id":  "req-stats",
		"payload_ref": "s3://bucket/stats",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/statistics/status", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/statistics/throughput", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/statistics/annotators", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestGetTaskNotFound 不存在的任务返回 404
func TestGetTaskNotFound(t *testing.T) {
	router := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/tasks/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
