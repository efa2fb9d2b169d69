package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-workspace/internal/repository"
	"collaborative-workspace/internal/service"
	"collaborative-workspace/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑。
type WorkerServer struct {
	server              *asynq.Server
	log                 *logrus.Entry
	authService         *service.AuthService
	notificationService *service.NotificationService
	inviteRepo          repository.InviteRepository
}

// NewWorkerServer 创建一个新的 WorkerServer 实例。
func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	authService *service.AuthService,
	notificationService *service.NotificationService,
	inviteRepo repository.InviteRepository,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:              server,
		log:                 logEntry,
		authService:         authService,
		notificationService: notificationService,
		inviteRepo:          inviteRepo,
	}
}

// Start 运行 Worker Server，应该在单独的 goroutine 中调用。
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeInviteNotify, NewInviteNotifyHandler(ws.authService, ws.notificationService))
	mux.Handle(tasks.TypeInvitePrune, NewInvitePruneHandler(ws.inviteRepo))

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped.")
	}
}

// Shutdown 优雅地关闭 Worker Server。
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
