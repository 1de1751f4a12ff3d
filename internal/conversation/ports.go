package conversation

import (
	"context"
	"strconv"

	"github.com/issuetracker/tracker-bot-go/internal/model"
)

// TaxonomyProvider serves devices and predefined messages. Lookups by id
// return nil without error when the entity does not exist.
type TaxonomyProvider interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
	ListDevicesWithOpenProblem(ctx context.Context) ([]model.Device, error)
	ListDevicesWithReports(ctx context.Context) ([]model.Device, error)
	ListPredefinedMessages(ctx context.Context, kind model.ReportKind) ([]model.PredefinedMessage, error)
	GetDevice(ctx context.Context, id int64) (*model.Device, error)
	GetPredefinedMessage(ctx context.Context, id int64) (*model.PredefinedMessage, error)
}

// RecordStore persists reports and reads report derived views.
type RecordStore interface {
	CreateRecord(ctx context.Context, params model.CreateRecordParams) (*model.Record, error)
	GetOrCreateReporter(ctx context.Context, telegramID int64, name string) (*model.User, error)
	// DeviceHistory returns at most limit records of the device, newest first.
	DeviceHistory(ctx context.Context, deviceID int64, limit int) ([]model.RecordView, error)
	ListOpenProblems(ctx context.Context) ([]model.OpenProblem, error)
}

// UserContext identifies the chat user behind an inbound event.
type UserContext struct {
	UserID      int64
	Username    string
	DisplayName string
}

// Name is the reporter name stored with records: the username when the user
// has one, otherwise the display name.
func (u UserContext) Name() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.DisplayName != "":
		return u.DisplayName
	default:
		return strconv.FormatInt(u.UserID, 10)
	}
}

// Response is what the transport renders back to the user.
type Response struct {
	Text     string
	Keyboard *Keyboard
	// Record is set when the event completed a report.
	Record *model.Record
	// Err is the failure already rendered into Text, kept for logging and tests.
	Err error
}
