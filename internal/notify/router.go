package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event 工作流事件
// 引擎只决定事件发生了以及它的载荷,投递方式由路由器负责
type Event struct {
	Type       model.EventType        `json:"type"`
	RequestID  string                 `json:"request_id"`
	Recipients []string               `json:"recipients"`
	Request    *model.TrainingRequest `json:"request"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Router 通知路由器接口
// 对服务层来说是 fire-and-forget:投递失败不回滚已提交的状态变更
type Router interface {
	Publish(evt *Event) error
	Close()
}

// Broadcaster 实时推送通道(WebSocket Hub)
type Broadcaster interface {
	SendToUsers(userIDs []string, message []byte)
}

const (
	// maxDeliveryAttempts 单条通知的投递次数上限,超过后停留在 failed
	maxDeliveryAttempts = 3

	// defaultRetryInterval 失败通知的重投扫描间隔
	defaultRetryInterval = 30 * time.Second

	retryBatchSize = 100
)

// dbRouter 基于数据库出箱的通知路由器
// 先持久化通知记录,再由固定数量的 worker 异步投递;
// 后台扫描定期把投递失败且未超过重试上限的记录重新入队
type dbRouter struct {
	repo          repository.NotificationRepository
	broadcaster   Broadcaster
	webhookURL    string
	httpClient    *http.Client
	logger        *logrus.Logger
	queue         chan *queuedEvent
	stop          chan struct{}
	retryInterval time.Duration
}

type queuedEvent struct {
	notificationID string
	evt            *Event
	attempt        int // 此前已失败的投递次数
}

// NewRouter 创建通知路由器
func NewRouter(repo repository.NotificationRepository, broadcaster Broadcaster, webhookURL string, workers int, logger *logrus.Logger) Router {
	return NewRouterWithRetryInterval(repo, broadcaster, webhookURL, workers, logger, defaultRetryInterval)
}

// NewRouterWithRetryInterval 创建通知路由器并指定重投扫描间隔
func NewRouterWithRetryInterval(repo repository.NotificationRepository, broadcaster Broadcaster, webhookURL string, workers int, logger *logrus.Logger, retryInterval time.Duration) Router {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}

	r := &dbRouter{
		repo:          repo,
		broadcaster:   broadcaster,
		webhookURL:    webhookURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
		queue:         make(chan *queuedEvent, 1000),
		stop:          make(chan struct{}),
		retryInterval: retryInterval,
	}

	for i := 0; i < workers; i++ {
		go r.worker()
	}
	go r.retryLoop()

	return r
}

// Publish 发布工作流事件
// 1. 持久化通知记录 2. 入队异步投递,队列满时丢弃并记录日志,不阻塞调用方
func (r *dbRouter) Publish(evt *Event) error {
	if !evt.Type.IsValid() {
		return fmt.Errorf("invalid event type: %q", evt.Type)
	}

	recipients, err := json.Marshal(evt.Recipients)
	if err != nil {
		return fmt.Errorf("failed to marshal recipients: %w", err)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	n := &model.Notification{
		ID:         uuid.New().String(),
		RequestID:  evt.RequestID,
		Type:       evt.Type,
		Recipients: recipients,
		Payload:    payload,
		Status:     "pending",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := r.repo.Save(n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	select {
	case r.queue <- &queuedEvent{notificationID: n.ID, evt: evt}:
	default:
		r.logger.WithFields(logrus.Fields{
			"type":       evt.Type,
			"request_id": evt.RequestID,
		}).Warn("notification queue full, dropping event")
	}

	return nil
}

// Close 停止所有投递 worker
func (r *dbRouter) Close() {
	close(r.stop)
}

// worker 通知投递 worker
func (r *dbRouter) worker() {
	for {
		select {
		case qe := <-r.queue:
			r.deliver(qe)
		case <-r.stop:
			return
		}
	}
}

// retryLoop 定期把投递失败的通知重新入队
func (r *dbRouter) retryLoop() {
	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.requeueFailed()
		case <-r.stop:
			return
		}
	}
}

// requeueFailed 扫描一批失败记录,从持久化的载荷恢复事件后重新入队
// 入队成功才改回 pending,避免重复扫描;队列满时留给下一轮
func (r *dbRouter) requeueFailed() {
	rows, err := r.repo.FindRetryable(maxDeliveryAttempts, retryBatchSize)
	if err != nil {
		r.logger.WithError(err).Warn("failed to load retryable notifications")
		return
	}

	for _, n := range rows {
		var evt Event
		if err := json.Unmarshal(n.Payload, &evt); err != nil {
			r.logger.WithError(err).WithField("notification_id", n.ID).Error("failed to decode stored notification payload")
			continue
		}

		select {
		case r.queue <- &queuedEvent{notificationID: n.ID, evt: &evt, attempt: n.RetryCount}:
			_ = r.repo.UpdateStatus(n.ID, "pending", n.RetryCount)
		default:
			return
		}
	}
}

// deliver 投递单条通知
func (r *dbRouter) deliver(qe *queuedEvent) {
	payload, err := json.Marshal(qe.evt)
	if err != nil {
		r.logger.WithError(err).Error("failed to marshal event for delivery")
		return
	}

	// 实时推送给在线的收件人
	if r.broadcaster != nil {
		r.broadcaster.SendToUsers(qe.evt.Recipients, payload)
	}

	// 可选的 Webhook 推送
	if r.webhookURL != "" {
		resp, err := r.httpClient.Post(r.webhookURL, "application/json", bytes.NewReader(payload))
		if err != nil {
			r.logger.WithError(err).WithField("request_id", qe.evt.RequestID).Warn("webhook delivery failed")
			_ = r.repo.UpdateStatus(qe.notificationID, "failed", qe.attempt+1)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			r.logger.WithFields(logrus.Fields{
				"request_id": qe.evt.RequestID,
				"status":     resp.StatusCode,
			}).Warn("webhook delivery rejected")
			_ = r.repo.UpdateStatus(qe.notificationID, "failed", qe.attempt+1)
			return
		}
	}

	_ = r.repo.UpdateStatus(qe.notificationID, "sent", qe.attempt)
}
