package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/audit"
	"github.com/issuetracker/tracker-bot-go/internal/service"
)

const taskTimeout = 2 * time.Minute

// Task is one periodic unit of work. Run returns how many items it touched.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int64, error)
}

type SessionEvictor interface {
	EvictExpired(ctx context.Context) (int64, error)
}

type ContextSyncer interface {
	Sync(ctx context.Context) (*service.SyncResult, error)
}

func SessionEvictionTask(sessions SessionEvictor, interval time.Duration) Task {
	return Task{Name: "expired sessions", Interval: interval, Run: sessions.EvictExpired}
}

func ContextSyncTask(syncer ContextSyncer, interval time.Duration) Task {
	return Task{
		Name:     "context sync",
		Interval: interval,
		Run: func(ctx context.Context) (int64, error) {
			result, err := syncer.Sync(ctx)
			audit.Log(ctx, audit.Event{
				Type:    audit.EventContextSync,
				Source:  audit.SourceJob,
				Details: map[string]interface{}{"success": err == nil},
			})
			if err != nil {
				return 0, err
			}
			return int64(result.Devices + result.Messages), nil
		},
	}
}

// MaintenanceJob runs every task on its own ticker until Stop.
type MaintenanceJob struct {
	tasks []Task
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewMaintenanceJob drops tasks without a positive interval.
func NewMaintenanceJob(tasks ...Task) *MaintenanceJob {
	j := &MaintenanceJob{done: make(chan struct{})}
	for _, t := range tasks {
		if t.Interval > 0 {
			j.tasks = append(j.tasks, t)
		}
	}
	return j
}

func (j *MaintenanceJob) Start() {
	for _, t := range j.tasks {
		j.wg.Add(1)
		go j.run(t)
		log.Info().Str("task", t.Name).Dur("interval", t.Interval).Msg("maintenance task started")
	}
}

func (j *MaintenanceJob) Stop() {
	close(j.done)
	j.wg.Wait()
	log.Info().Msg("maintenance job stopped")
}

func (j *MaintenanceJob) run(t Task) {
	defer j.wg.Done()

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.runTask(t)
		}
	}
}

func (j *MaintenanceJob) runTask(t Task) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	count, err := t.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("maintenance task %s failed", t.Name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("maintenance task %s done", t.Name)
	}
}
