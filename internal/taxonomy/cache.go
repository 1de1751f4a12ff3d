package taxonomy

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/conversation"
	"github.com/issuetracker/tracker-bot-go/internal/model"
)

type DeviceReader interface {
	FindAll(ctx context.Context) ([]model.Device, error)
	FindWithOpenProblem(ctx context.Context) ([]model.Device, error)
	FindWithRecords(ctx context.Context) ([]model.Device, error)
}

type MessageReader interface {
	FindAll(ctx context.Context) ([]model.PredefinedMessage, error)
}

var _ conversation.TaxonomyProvider = (*Cache)(nil)

// Cache holds devices and predefined messages in memory. Refresh replaces both
// wholesale; views that depend on records are read through on every call and
// restricted to the cached devices.
type Cache struct {
	devices  DeviceReader
	messages MessageReader

	mu            sync.RWMutex
	loaded        bool
	deviceList    []model.Device
	deviceByID    map[int64]model.Device
	messageByKind map[model.ReportKind][]model.PredefinedMessage
	messageByID   map[int64]model.PredefinedMessage
	refreshedAt   time.Time
}

func NewCache(devices DeviceReader, messages MessageReader) *Cache {
	return &Cache{
		devices:  devices,
		messages: messages,
	}
}

// Refresh reloads devices and predefined messages. The previous snapshot is
// kept when loading fails.
func (c *Cache) Refresh(ctx context.Context) error {
	devices, err := c.devices.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load devices: %w", err)
	}
	messages, err := c.messages.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load predefined messages: %w", err)
	}

	deviceByID := make(map[int64]model.Device, len(devices))
	for _, d := range devices {
		deviceByID[d.ID] = d
	}
	messageByKind := make(map[model.ReportKind][]model.PredefinedMessage)
	messageByID := make(map[int64]model.PredefinedMessage, len(messages))
	for _, m := range messages {
		messageByKind[m.Kind] = append(messageByKind[m.Kind], m)
		messageByID[m.ID] = m
	}

	c.mu.Lock()
	c.loaded = true
	c.deviceList = devices
	c.deviceByID = deviceByID
	c.messageByKind = messageByKind
	c.messageByID = messageByID
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	log.Info().
		Int("devices", len(devices)).
		Int("messages", len(messages)).
		Msg("Taxonomy cache refreshed")

	return nil
}

func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

func (c *Cache) ensureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Refresh(ctx)
}

func (c *Cache) ListDevices(ctx context.Context) ([]model.Device, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.deviceList), nil
}

func (c *Cache) ListDevicesWithOpenProblem(ctx context.Context) ([]model.Device, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	devices, err := c.devices.FindWithOpenProblem(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find devices with open problem: %w", err)
	}
	return c.known(devices), nil
}

func (c *Cache) ListDevicesWithReports(ctx context.Context) ([]model.Device, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	devices, err := c.devices.FindWithRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find devices with records: %w", err)
	}
	return c.known(devices), nil
}

func (c *Cache) ListPredefinedMessages(ctx context.Context, kind model.ReportKind) ([]model.PredefinedMessage, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.messageByKind[kind]), nil
}

func (c *Cache) GetDevice(ctx context.Context, id int64) (*model.Device, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.deviceByID[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (c *Cache) GetPredefinedMessage(ctx context.Context, id int64) (*model.PredefinedMessage, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.messageByID[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// known keeps the devices present in the cached snapshot, in snapshot order.
func (c *Cache) known(devices []model.Device) []model.Device {
	ids := make(map[int64]struct{}, len(devices))
	for _, d := range devices {
		ids[d.ID] = struct{}{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Device, 0, len(devices))
	for _, d := range c.deviceList {
		if _, ok := ids[d.ID]; ok {
			out = append(out, d)
		}
	}
	return out
}
