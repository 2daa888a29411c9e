package api

import (
	"net/http"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/engine"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/service"
	"github.com/arslant84/l1a-test-sub000/internal/utils"
	"github.com/gin-gonic/gin"
)

// RequestController 培训申请控制器
type RequestController struct {
	requestService service.RequestService
}

// NewRequestController 创建培训申请控制器
func NewRequestController(requestService service.RequestService) *RequestController {
	return &RequestController{
		requestService: requestService,
	}
}

// SubmitRequestBody 提交申请请求
type SubmitRequestBody struct {
	TrainingTitle string    `json:"training_title" binding:"required"` // 培训名称
	Justification string    `json:"justification"`                     // 申请理由
	Organiser     string    `json:"organiser"`                         // 主办方
	Venue         string    `json:"venue"`                             // 地点
	StartDate     time.Time `json:"start_date" binding:"required"`     // 开始日期
	EndDate       time.Time `json:"end_date" binding:"required"`       // 结束日期
	Cost          float64   `json:"cost"`                              // 费用
	Mode          string    `json:"mode" binding:"required"`           // 培训方式: online/in-house/local/overseas
	ProgramType   string    `json:"program_type"`                      // 项目类型
}

// DecideBody 审批决定请求
type DecideBody struct {
	Notes string `json:"notes"` // 审批意见
}

// ProcessBody CM 处理请求
type ProcessBody struct {
	Notes string `json:"notes"` // 处理备注
}

// CancelBody 取消申请请求
type CancelBody struct {
	Reason string `json:"reason"` // 取消原因
}

// actorID 从上下文获取已认证的操作者 ID
func (c *RequestController) actorID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString("user_id")
	if id == "" {
		Error(ctx, http.StatusUnauthorized, "unauthorized", "missing actor identity")
		return "", false
	}
	return id, true
}

// validateRequestID 验证申请 ID 并返回错误响应(如果无效)
func (c *RequestController) validateRequestID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateRequestID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request ID", err.Error())
		return false
	}
	return true
}

// respondError 统一处理服务层错误
// 操作被拒绝时带上申请的当前(未变更)状态
func (c *RequestController) respondError(ctx *gin.Context, err error, state *model.TrainingRequest) {
	code, message := statusForError(err)
	if state != nil {
		ErrorWithState(ctx, code, message, err.Error(), state)
		return
	}
	Error(ctx, code, message, err.Error())
}

// Submit 提交培训申请
func (c *RequestController) Submit(ctx *gin.Context) {
	actorID, ok := c.actorID(ctx)
	if !ok {
		return
	}

	var body SubmitRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	draft := &engine.Draft{
		TrainingTitle: utils.SanitizeString(body.TrainingTitle),
		Justification: utils.SanitizeString(body.Justification),
		Organiser:     utils.SanitizeString(body.Organiser),
		Venue:         utils.SanitizeString(body.Venue),
		StartDate:     body.StartDate,
		EndDate:       body.EndDate,
		Cost:          body.Cost,
		Mode:          model.TrainingMode(body.Mode),
		ProgramType:   utils.SanitizeString(body.ProgramType),
	}

	req, err := c.requestService.Submit(ctx.Request.Context(), draft, actorID)
	if err != nil {
		c.respondError(ctx, err, nil)
		return
	}

	Success(ctx, req)
}

// List 列出操作者可见的申请
func (c *RequestController) List(ctx *gin.Context) {
	actorID, ok := c.actorID(ctx)
	if !ok {
		return
	}

	reqs, err := c.requestService.ListVisibleTo(ctx.Request.Context(), actorID)
	if err != nil {
		c.respondError(ctx, err, nil)
		return
	}

	Success(ctx, reqs)
}

// Get 获取申请详情
func (c *RequestController) Get(ctx *gin.Context) {
	actorID, ok := c.actorID(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	req, err := c.requestService.Get(ctx.Request.Context(), id, actorID)
	if err != nil {
		c.respondError(ctx, err, nil)
		return
	}

	Success(ctx, req)
}

// GetChain 获取申请的审批链
func (c *RequestController) GetChain(ctx *gin.Context) {
	actorID, ok := c.actorID(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	req, err := c.requestService.Get(ctx.Request.Context(), id, actorID)
	if err != nil {
		c.respondError(ctx, err, nil)
		return
	}

	Success(ctx, req.ApprovalChain)
}

// Approve 审批同意
func (c *RequestController) Approve(ctx *gin.Context) {
	c.decide(ctx, model.DecisionApproved)
}

// Reject 审批拒绝
func (c *RequestController) Reject(ctx *gin.Context) {
	c.decide(ctx, model.DecisionRejected)
}

// decide 处理审批决定
func (c *RequestController) decide(ctx *gin.Context, decision model.Decision) {
	actorID, ok := c.actorID(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var body DecideBody
	if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	req, err := c.requestService.Decide(ctx.Request.Context(), id, actorID, decision, utils.SanitizeString(body.Notes))
	if err != nil {
		c.respondError(ctx, err, req)
		return
	}

	Success(ctx, req)
}

// Process CM 处理已审批通过的申请
func (c *RequestController) Process(ctx *gin.Context) {
	actorID, ok := c.actorID(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var body ProcessBody
	if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	req, err := c.requestService.ProcessByCM(ctx.Request.Context(), id, actorID, utils.SanitizeString(body.Notes))
	if err != nil {
		c.respondError(ctx, err, req)
		return
	}

	Success(ctx, req)
}

// Cancel 取消申请
func (c *RequestController) Cancel(ctx *gin.Context) {
	actorID, ok := c.actorID(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var body CancelBody
	if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	req, err := c.requestService.Cancel(ctx.Request.Context(), id, actorID, utils.SanitizeString(body.Reason))
	if err != nil {
		c.respondError(ctx, err, req)
		return
	}

	Success(ctx, req)
}
