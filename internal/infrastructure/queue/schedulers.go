package queue

import (
	"time"

	"catalog-backend/internal/shared"
	"catalog-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisAddress string) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddress},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{scheduler: scheduler}
}

// RegisterCatalogJobs wires the periodic jobs.
func (s *Scheduler) RegisterCatalogJobs() error {
	return s.registerMetadataRefreshJob()
}

// Metadata refresh, hourly. Attribute sets and store views change rarely
// but edits made outside the import API must eventually reach the cache.
func (s *Scheduler) registerMetadataRefreshJob() error {
	task := asynq.NewTask(shared.TypeRefreshMetadata, nil)

	_, err := s.scheduler.Register(
		"0 * * * *",
		task,
		asynq.Queue("default"),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register metadata refresh job", err)
		return err
	}

	logger.Info("Registered metadata refresh: hourly", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
