package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/database"
	"github.com/issuetracker/tracker-bot-go/internal/model"
	"github.com/issuetracker/tracker-bot-go/internal/repository"
)

// ContextSnapshot is the taxonomy as published in the context spreadsheet.
type ContextSnapshot struct {
	Devices  []model.UpsertDeviceParams
	Messages []model.UpsertPredefinedMessageParams
}

type ContextSource interface {
	FetchContext(ctx context.Context) (*ContextSnapshot, error)
}

type Transactor interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type TaxonomyRefresher interface {
	Refresh(ctx context.Context) error
}

type SyncResult struct {
	Devices         int   `json:"devices"`
	Messages        int   `json:"messages"`
	DeletedMessages int64 `json:"deletedMessages"`
	Skipped         int   `json:"skipped"`
	// CacheStale is set when the database was updated but the taxonomy cache
	// still serves the previous data until its next refresh.
	CacheStale bool `json:"cacheStale,omitempty"`
}

// ContextSyncService copies devices and predefined messages from the context
// spreadsheet into the database and refreshes the taxonomy cache.
type ContextSyncService struct {
	source      ContextSource
	tx          Transactor
	deviceRepo  repository.DeviceRepository
	messageRepo repository.PredefinedMessageRepository
	cache       TaxonomyRefresher

	mu sync.Mutex
}

func NewContextSyncService(
	source ContextSource,
	tx Transactor,
	deviceRepo repository.DeviceRepository,
	messageRepo repository.PredefinedMessageRepository,
	cache TaxonomyRefresher,
) *ContextSyncService {
	return &ContextSyncService{
		source:      source,
		tx:          tx,
		deviceRepo:  deviceRepo,
		messageRepo: messageRepo,
		cache:       cache,
	}
}

// Sync runs one synchronization. Concurrent calls are serialized.
//
// Devices are only upserted: deleting one would cascade to its records.
// Predefined messages missing from the sheet are deleted, except when a kind
// has no rows at all, which is treated as a broken sheet rather than an
// intentional wipe.
func (s *ContextSyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.source.FetchContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch context: %w", err)
	}

	plan := planSync(snapshot)
	result := &SyncResult{
		Devices:  len(plan.devices),
		Messages: len(plan.messages),
		Skipped:  plan.skipped,
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		devices := s.deviceRepo.WithTx(tx)
		messages := s.messageRepo.WithTx(tx)

		for _, d := range plan.devices {
			if err := devices.Upsert(ctx, d); err != nil {
				return fmt.Errorf("upsert device %d: %w", d.ID, err)
			}
		}
		for _, m := range plan.messages {
			if err := messages.Upsert(ctx, m); err != nil {
				return fmt.Errorf("upsert %s message %q: %w", m.Kind, m.Ref, err)
			}
		}
		for _, kind := range []model.ReportKind{model.ReportKindProblem, model.ReportKindSolution} {
			refs := plan.refs[kind]
			if len(refs) == 0 {
				log.Warn().Str("kind", string(kind)).Msg("context sheet has no messages of kind, keeping existing ones")
				continue
			}
			n, err := messages.DeleteMissing(ctx, kind, refs)
			if err != nil {
				return fmt.Errorf("delete stale %s messages: %w", kind, err)
			}
			result.DeletedMessages += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("context committed but taxonomy refresh failed")
		result.CacheStale = true
	}

	log.Info().
		Int("devices", result.Devices).
		Int("messages", result.Messages).
		Int64("deleted", result.DeletedMessages).
		Int("skipped", result.Skipped).
		Bool("cacheStale", result.CacheStale).
		Msg("context synchronized")

	return result, nil
}

type syncPlan struct {
	devices  []model.UpsertDeviceParams
	messages []model.UpsertPredefinedMessageParams
	refs     map[model.ReportKind][]string
	skipped  int
}

// planSync drops invalid rows and collapses duplicates, the last row winning.
func planSync(snapshot *ContextSnapshot) syncPlan {
	plan := syncPlan{refs: make(map[model.ReportKind][]string)}
	if snapshot == nil {
		return plan
	}

	deviceIndex := make(map[int64]int)
	for _, d := range snapshot.Devices {
		d.Name = strings.TrimSpace(d.Name)
		d.Group = strings.TrimSpace(d.Group)
		if d.ID <= 0 || d.Name == "" {
			plan.skipped++
			continue
		}
		if i, ok := deviceIndex[d.ID]; ok {
			plan.devices[i] = d
			continue
		}
		deviceIndex[d.ID] = len(plan.devices)
		plan.devices = append(plan.devices, d)
	}

	type key struct {
		kind model.ReportKind
		ref  string
	}
	messageIndex := make(map[key]int)
	for _, m := range snapshot.Messages {
		m.Ref = strings.TrimSpace(m.Ref)
		m.Text = strings.TrimSpace(m.Text)
		if !m.Kind.Valid() || m.Ref == "" || m.Text == "" {
			plan.skipped++
			continue
		}
		k := key{m.Kind, m.Ref}
		if i, ok := messageIndex[k]; ok {
			plan.messages[i] = m
			continue
		}
		messageIndex[k] = len(plan.messages)
		plan.messages = append(plan.messages, m)
		plan.refs[m.Kind] = append(plan.refs[m.Kind], m.Ref)
	}

	return plan
}
