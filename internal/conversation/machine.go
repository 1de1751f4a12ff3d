package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/config"
	apperrors "github.com/issuetracker/tracker-bot-go/internal/errors"
	"github.com/issuetracker/tracker-bot-go/internal/model"
)

// Machine drives the report conversation of every user. All work for one user
// runs under that user's session lock, including calls to the collaborators.
type Machine struct {
	taxonomy TaxonomyProvider
	records  RecordStore
	sessions *Store
	layout   Layout
	now      func() time.Time
}

func NewMachine(taxonomy TaxonomyProvider, records RecordStore, sessions *Store, layout Layout) *Machine {
	return &Machine{
		taxonomy: taxonomy,
		records:  records,
		sessions: sessions,
		layout:   layout,
		now:      time.Now,
	}
}

// Start renders the action menu.
func (m *Machine) Start() Response {
	return Response{Text: textStart, Keyboard: m.layout.ActionKeyboard()}
}

func (m *Machine) Help() Response {
	return Response{Text: textHelp}
}

// OnInitialCommand handles an action chosen by slash command.
func (m *Machine) OnInitialCommand(ctx context.Context, action Action, user UserContext) Response {
	unlock := m.sessions.Lock(user.UserID)
	defer unlock()

	resp, err := m.initialAction(ctx, action, user)
	if err != nil {
		return m.fail(user, action, err)
	}
	return resp
}

// OnButtonPress decodes a button payload and applies the transition it names.
func (m *Machine) OnButtonPress(ctx context.Context, payload string, user UserContext) Response {
	unlock := m.sessions.Lock(user.UserID)
	defer unlock()

	cmd, err := Decode(payload)
	if err != nil {
		return m.fail(user, "", err)
	}

	var resp Response
	switch cmd.Kind {
	case CommandInitialAction:
		resp, err = m.initialAction(ctx, cmd.Action, user)
	case CommandGroupSelected:
		resp, err = m.selectGroup(ctx, cmd)
	case CommandDeviceSelected:
		resp, err = m.selectDevice(ctx, cmd, user)
	case CommandOptionSelected:
		resp, err = m.selectOption(ctx, cmd, user)
	default:
		err = apperrors.MalformedCommand(fmt.Sprintf("unhandled command %s", cmd.Kind))
	}
	if err != nil {
		return m.fail(user, cmd.Action, err)
	}
	return resp
}

// OnFreeText submits text for the user's report in progress. Without one the
// help text is returned.
func (m *Machine) OnFreeText(ctx context.Context, text string, user UserContext) Response {
	unlock := m.sessions.Lock(user.UserID)
	defer unlock()

	sess, ok := m.sessions.Get(user.UserID)
	if !ok {
		return m.Help()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Response{Text: customPromptText(sess.Action, sess.DeviceName)}
	}

	resp, err := m.complete(ctx, sess, text, user)
	if err != nil {
		return m.fail(user, sess.Action, err)
	}
	return resp
}

func (m *Machine) initialAction(ctx context.Context, action Action, user UserContext) (Response, error) {
	if action == ActionOpenProblems {
		problems, err := m.records.ListOpenProblems(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("failed to list open problems: %w", err)
		}
		return Response{Text: openProblemsText(problems)}, nil
	}

	devices, err := m.devicesFor(ctx, action)
	if err != nil {
		return Response{}, err
	}

	// A new device flow abandons whatever report was in progress.
	m.sessions.Delete(user.UserID)

	if len(devices) == 0 {
		switch action {
		case ActionSolution:
			return Response{Text: textNoOpenProblems}, nil
		case ActionStatus:
			return Response{Text: textNoReports}, nil
		default:
			return Response{Text: textNoDevices}, nil
		}
	}

	if len(devices) > m.layout.MaxUngroupedDevices {
		return Response{
			Text:     chooseGroupText(action),
			Keyboard: m.layout.GroupKeyboard(action, GroupDevices(devices)),
		}, nil
	}
	return Response{
		Text:     chooseDeviceText(action),
		Keyboard: m.layout.DeviceKeyboard(action, devices),
	}, nil
}

func (m *Machine) devicesFor(ctx context.Context, action Action) ([]model.Device, error) {
	var (
		devices []model.Device
		err     error
	)
	switch action {
	case ActionProblem:
		devices, err = m.taxonomy.ListDevices(ctx)
	case ActionSolution:
		devices, err = m.taxonomy.ListDevicesWithOpenProblem(ctx)
	case ActionStatus:
		devices, err = m.taxonomy.ListDevicesWithReports(ctx)
	default:
		return nil, apperrors.MalformedCommand(fmt.Sprintf("%s does not select a device", action))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list devices for %s: %w", action, err)
	}
	return devices, nil
}

func (m *Machine) selectGroup(ctx context.Context, cmd Command) (Response, error) {
	devices, err := m.devicesFor(ctx, cmd.Action)
	if err != nil {
		return Response{}, err
	}

	groups := GroupDevices(devices)
	if cmd.GroupIndex >= len(groups) {
		return Response{}, apperrors.NotFound("device group")
	}
	group := groups[cmd.GroupIndex]
	if GroupHash(group.Name) != cmd.GroupHash {
		return Response{}, apperrors.NotFound("device group")
	}

	return Response{
		Text:     chooseDeviceInGroupText(cmd.Action, group.Name),
		Keyboard: m.layout.DeviceKeyboard(cmd.Action, group.Devices),
	}, nil
}

func (m *Machine) selectDevice(ctx context.Context, cmd Command, user UserContext) (Response, error) {
	device, err := m.taxonomy.GetDevice(ctx, cmd.DeviceID)
	if err != nil {
		return Response{}, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return Response{}, apperrors.NotFound("device")
	}

	if cmd.Action == ActionStatus {
		history, err := m.records.DeviceHistory(ctx, device.ID, config.DeviceHistoryLimit)
		if err != nil {
			return Response{}, fmt.Errorf("failed to get device history: %w", err)
		}
		return Response{Text: statusText(device.Name, history)}, nil
	}

	kind, ok := cmd.Action.ReportKind()
	if !ok {
		return Response{}, apperrors.MalformedCommand(fmt.Sprintf("%s does not take options", cmd.Action))
	}
	options, err := m.taxonomy.ListPredefinedMessages(ctx, kind)
	if err != nil {
		return Response{}, fmt.Errorf("failed to list predefined messages: %w", err)
	}

	sess := Session{
		Action:     cmd.Action,
		DeviceID:   device.ID,
		DeviceName: device.Name,
		StartedAt:  m.now(),
	}
	m.sessions.Put(user.UserID, sess)

	log.Debug().
		Int64("userId", user.UserID).
		Int64("deviceId", device.ID).
		Str("action", string(cmd.Action)).
		Msg("report started")

	return m.optionsResponse(sess, options, ""), nil
}

func (m *Machine) selectOption(ctx context.Context, cmd Command, user UserContext) (Response, error) {
	sess, ok := m.sessions.Get(user.UserID)
	if !ok || sess.Action != cmd.Action || sess.DeviceID != cmd.DeviceID {
		return Response{}, apperrors.SessionExpired()
	}
	kind, _ := sess.Action.ReportKind()

	switch cmd.OptionID {
	case OptionCustom:
		sess.AwaitingText = true
		m.sessions.Put(user.UserID, sess)
		return Response{Text: customPromptText(sess.Action, sess.DeviceName)}, nil

	case OptionDone:
		if len(sess.Selected) == 0 {
			options, err := m.taxonomy.ListPredefinedMessages(ctx, kind)
			if err != nil {
				return Response{}, fmt.Errorf("failed to list predefined messages: %w", err)
			}
			return m.optionsResponse(sess, options, textNothingSelected), nil
		}

		texts := make([]string, 0, len(sess.Selected))
		for _, id := range sess.Selected {
			msg, err := m.taxonomy.GetPredefinedMessage(ctx, id)
			if err != nil {
				return Response{}, fmt.Errorf("failed to get predefined message: %w", err)
			}
			if msg == nil {
				return Response{}, apperrors.NotFound("predefined message")
			}
			texts = append(texts, msg.Text)
		}
		return m.complete(ctx, sess, strings.Join(texts, JoinSeparator), user)

	default:
		msg, err := m.taxonomy.GetPredefinedMessage(ctx, cmd.OptionID)
		if err != nil {
			return Response{}, fmt.Errorf("failed to get predefined message: %w", err)
		}
		if msg == nil || msg.Kind != kind {
			return Response{}, apperrors.NotFound("predefined message")
		}
		options, err := m.taxonomy.ListPredefinedMessages(ctx, kind)
		if err != nil {
			return Response{}, fmt.Errorf("failed to list predefined messages: %w", err)
		}

		sess.Toggle(msg.ID)
		m.sessions.Put(user.UserID, sess)
		return m.optionsResponse(sess, options, ""), nil
	}
}

// complete stores the record and ends the session. The session is left as is
// when the write fails so the user can retry.
func (m *Machine) complete(ctx context.Context, sess Session, text string, user UserContext) (Response, error) {
	kind, ok := sess.Action.ReportKind()
	if !ok {
		return Response{}, apperrors.MalformedCommand(fmt.Sprintf("%s does not produce a record", sess.Action))
	}

	reporter, err := m.records.GetOrCreateReporter(ctx, user.UserID, user.Name())
	if err != nil {
		return Response{}, apperrors.StoreWrite(err)
	}

	record, err := m.records.CreateRecord(ctx, model.CreateRecordParams{
		ReporterID: reporter.ID,
		DeviceID:   sess.DeviceID,
		Kind:       kind,
		Text:       text,
	})
	if err != nil {
		return Response{}, apperrors.StoreWrite(err)
	}

	m.sessions.Delete(user.UserID)

	log.Info().
		Int64("userId", user.UserID).
		Int64("deviceId", sess.DeviceID).
		Int64("recordId", record.ID).
		Str("kind", string(kind)).
		Msg("record created")

	return Response{
		Text:   confirmationText(sess.StartedAt, reporter.Name, sess.DeviceName, sess.Action, text),
		Record: record,
	}, nil
}

func (m *Machine) optionsResponse(sess Session, options []model.PredefinedMessage, notice string) Response {
	byID := make(map[int64]string, len(options))
	for _, o := range options {
		byID[o.ID] = o.Text
	}
	selected := make([]string, 0, len(sess.Selected))
	for _, id := range sess.Selected {
		if text, ok := byID[id]; ok {
			selected = append(selected, text)
		}
	}

	text := optionsText(sess.Action, sess.DeviceName, selected)
	if notice != "" {
		text = notice + "\n\n" + text
	}
	return Response{
		Text:     text,
		Keyboard: m.layout.OptionsKeyboard(sess.Action, sess.DeviceID, options, sess.Selected),
	}
}

// fail renders err as a plain-text response. Session state is never touched
// here.
func (m *Machine) fail(user UserContext, action Action, err error) Response {
	logEvent := log.Error()
	text := textInternal

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound:
		logEvent = log.Info()
		text = textNotFound
	case apperrors.ErrCodeMalformedCommand:
		logEvent = log.Warn()
		text = textMalformed
	case apperrors.ErrCodeSessionExpired:
		logEvent = log.Debug()
		text = textHelp
	case apperrors.ErrCodeStoreWrite:
		text = textStoreWrite
	}

	logEvent.
		Err(err).
		Int64("userId", user.UserID).
		Str("action", string(action)).
		Msg("conversation transition failed")

	return Response{Text: text, Err: err}
}
