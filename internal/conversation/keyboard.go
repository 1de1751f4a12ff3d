package conversation

import (
	"slices"

	"github.com/issuetracker/tracker-bot-go/internal/model"
)

const (
	SelectedMark = "✅ "
	CustomLabel  = "✏️ Свій варіант"
	DoneLabel    = "☑️ Готово"
)

// Layout controls how menus are partitioned into rows.
type Layout struct {
	DevicesPerRow int
	GroupsPerRow  int
	OptionsPerRow int
	ActionsPerRow int
	// MaxUngroupedDevices is the largest device count shown as one flat menu.
	// Larger lists are split by group first.
	MaxUngroupedDevices int
}

var DefaultLayout = Layout{
	DevicesPerRow:       8,
	GroupsPerRow:        3,
	OptionsPerRow:       3,
	ActionsPerRow:       2,
	MaxUngroupedDevices: 16,
}

type Button struct {
	Text string
	Data string
}

// Keyboard is a transport independent inline keyboard.
type Keyboard struct {
	Rows [][]Button
}

func (k *Keyboard) Buttons() []Button {
	if k == nil {
		return nil
	}
	var out []Button
	for _, row := range k.Rows {
		out = append(out, row...)
	}
	return out
}

// DeviceGroup is a group label and its devices in menu order.
type DeviceGroup struct {
	Name    string
	Devices []model.Device
}

// Grid splits buttons into rows of at most width, keeping input order.
func Grid(buttons []Button, width int) [][]Button {
	if width <= 0 {
		width = 1
	}
	rows := make([][]Button, 0, (len(buttons)+width-1)/width)
	for len(buttons) > 0 {
		n := min(width, len(buttons))
		rows = append(rows, slices.Clone(buttons[:n]))
		buttons = buttons[n:]
	}
	return rows
}

// GroupDevices buckets devices by group in order of first appearance.
func GroupDevices(devices []model.Device) []DeviceGroup {
	var groups []DeviceGroup
	index := make(map[string]int)
	for _, d := range devices {
		i, ok := index[d.Group]
		if !ok {
			i = len(groups)
			index[d.Group] = i
			groups = append(groups, DeviceGroup{Name: d.Group})
		}
		groups[i].Devices = append(groups[i].Devices, d)
	}
	return groups
}

func (l Layout) ActionKeyboard() *Keyboard {
	buttons := make([]Button, 0, len(Actions))
	for _, a := range Actions {
		buttons = append(buttons, Button{Text: a.Label(), Data: InitialActionCommand(a).Encode()})
	}
	return &Keyboard{Rows: Grid(buttons, l.ActionsPerRow)}
}

func (l Layout) GroupKeyboard(action Action, groups []DeviceGroup) *Keyboard {
	buttons := make([]Button, 0, len(groups))
	for i, g := range groups {
		buttons = append(buttons, Button{Text: g.Name, Data: GroupSelectedCommand(action, i, g.Name).Encode()})
	}
	return &Keyboard{Rows: Grid(buttons, l.GroupsPerRow)}
}

func (l Layout) DeviceKeyboard(action Action, devices []model.Device) *Keyboard {
	buttons := make([]Button, 0, len(devices))
	for _, d := range devices {
		buttons = append(buttons, Button{Text: d.Name, Data: DeviceSelectedCommand(action, d.ID).Encode()})
	}
	return &Keyboard{Rows: Grid(buttons, l.DevicesPerRow)}
}

// OptionsKeyboard renders the predefined messages with a mark on the selected
// ones, followed by a trailer row with the custom text and done entries. The
// payload of a message button does not depend on its selection state.
func (l Layout) OptionsKeyboard(action Action, deviceID int64, options []model.PredefinedMessage, selected []int64) *Keyboard {
	buttons := make([]Button, 0, len(options))
	for _, opt := range options {
		text := opt.Text
		if slices.Contains(selected, opt.ID) {
			text = SelectedMark + text
		}
		buttons = append(buttons, Button{
			Text: text,
			Data: OptionSelectedCommand(action, deviceID, opt.ID).Encode(),
		})
	}

	rows := Grid(buttons, l.OptionsPerRow)
	rows = append(rows, []Button{
		{Text: CustomLabel, Data: OptionSelectedCommand(action, deviceID, OptionCustom).Encode()},
		{Text: DoneLabel, Data: OptionSelectedCommand(action, deviceID, OptionDone).Encode()},
	})
	return &Keyboard{Rows: rows}
}
