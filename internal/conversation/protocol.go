package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	apperrors "github.com/issuetracker/tracker-bot-go/internal/errors"
)

// Separator splits the fields of a button payload. Every field is either a tag,
// an action name or a decimal number, none of which can contain it.
const Separator = "|"

// MaxPayloadBytes is the Telegram limit for callback data.
const MaxPayloadBytes = 64

// Reserved option ids. Predefined message ids are positive database keys.
const (
	OptionCustom int64 = 0
	OptionDone   int64 = -1
)

type CommandKind int

const (
	CommandInitialAction CommandKind = iota + 1
	CommandGroupSelected
	CommandDeviceSelected
	CommandOptionSelected
)

var commandTags = map[CommandKind]string{
	CommandInitialAction:  "ias",
	CommandGroupSelected:  "gsfa",
	CommandDeviceSelected: "dsfa",
	CommandOptionSelected: "osfa",
}

var tagCommands = func() map[string]CommandKind {
	m := make(map[string]CommandKind, len(commandTags))
	for kind, tag := range commandTags {
		m[tag] = kind
	}
	return m
}()

// commandArity is the field count including the tag.
var commandArity = map[CommandKind]int{
	CommandInitialAction:  2,
	CommandGroupSelected:  4,
	CommandDeviceSelected: 3,
	CommandOptionSelected: 4,
}

func (k CommandKind) String() string {
	if tag, ok := commandTags[k]; ok {
		return tag
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is a decoded state transition request carried by a button.
type Command struct {
	Kind       CommandKind
	Action     Action
	GroupIndex int
	GroupHash  uint32
	DeviceID   int64
	OptionID   int64
}

func InitialActionCommand(action Action) Command {
	return Command{Kind: CommandInitialAction, Action: action}
}

// GroupSelectedCommand addresses a group by its position in the menu. The name
// hash lets a tap on a menu rendered before a taxonomy refresh be told apart
// from a tap on the group now at that position.
func GroupSelectedCommand(action Action, groupIndex int, groupName string) Command {
	return Command{
		Kind:       CommandGroupSelected,
		Action:     action,
		GroupIndex: groupIndex,
		GroupHash:  GroupHash(groupName),
	}
}

// GroupHash is the low 32 bits of the xxhash of a group name.
func GroupHash(name string) uint32 {
	return uint32(xxhash.Sum64String(name))
}

func DeviceSelectedCommand(action Action, deviceID int64) Command {
	return Command{Kind: CommandDeviceSelected, Action: action, DeviceID: deviceID}
}

func OptionSelectedCommand(action Action, deviceID, optionID int64) Command {
	return Command{Kind: CommandOptionSelected, Action: action, DeviceID: deviceID, OptionID: optionID}
}

// Encode renders the command as a button payload. Only numeric ids and known
// action names are embedded, so the result always fits in MaxPayloadBytes.
func (c Command) Encode() string {
	fields := []string{commandTags[c.Kind], string(c.Action)}
	switch c.Kind {
	case CommandGroupSelected:
		fields = append(fields, strconv.Itoa(c.GroupIndex), fmt.Sprintf("%08x", c.GroupHash))
	case CommandDeviceSelected:
		fields = append(fields, strconv.FormatInt(c.DeviceID, 10))
	case CommandOptionSelected:
		fields = append(fields,
			strconv.FormatInt(c.DeviceID, 10),
			strconv.FormatInt(c.OptionID, 10),
		)
	}
	return strings.Join(fields, Separator)
}

// Decode parses a button payload. Every failure is a MALFORMED_COMMAND AppError.
func Decode(payload string) (Command, error) {
	if payload == "" {
		return Command{}, apperrors.MalformedCommand("empty payload")
	}
	if len(payload) > MaxPayloadBytes {
		return Command{}, apperrors.MalformedCommand("payload too long")
	}

	fields := strings.Split(payload, Separator)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	kind, ok := tagCommands[fields[0]]
	if !ok {
		return Command{}, apperrors.MalformedCommand(fmt.Sprintf("unknown tag %q", fields[0]))
	}
	if len(fields) != commandArity[kind] {
		return Command{}, apperrors.MalformedCommand(
			fmt.Sprintf("%s expects %d fields, got %d", kind, commandArity[kind], len(fields)),
		)
	}

	action, ok := ParseAction(fields[1])
	if !ok {
		return Command{}, apperrors.MalformedCommand(fmt.Sprintf("unknown action %q", fields[1]))
	}

	cmd := Command{Kind: kind, Action: action}

	switch kind {
	case CommandInitialAction:
		return cmd, nil

	case CommandGroupSelected:
		if !action.SelectsDevice() {
			return Command{}, apperrors.MalformedCommand(fmt.Sprintf("%s does not select a group", action))
		}
		idx, err := strconv.Atoi(fields[2])
		if err != nil || idx < 0 {
			return Command{}, apperrors.MalformedCommand(fmt.Sprintf("invalid group index %q", fields[2]))
		}
		hash, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil {
			return Command{}, apperrors.MalformedCommand(fmt.Sprintf("invalid group hash %q", fields[3]))
		}
		cmd.GroupIndex = idx
		cmd.GroupHash = uint32(hash)
		return cmd, nil

	case CommandDeviceSelected:
		if !action.SelectsDevice() {
			return Command{}, apperrors.MalformedCommand(fmt.Sprintf("%s does not select a device", action))
		}
		id, err := parseDeviceID(fields[2])
		if err != nil {
			return Command{}, err
		}
		cmd.DeviceID = id
		return cmd, nil

	case CommandOptionSelected:
		if _, ok := action.ReportKind(); !ok {
			return Command{}, apperrors.MalformedCommand(fmt.Sprintf("%s does not take options", action))
		}
		id, err := parseDeviceID(fields[2])
		if err != nil {
			return Command{}, err
		}
		opt, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil || opt < OptionDone {
			return Command{}, apperrors.MalformedCommand(fmt.Sprintf("invalid option id %q", fields[3]))
		}
		cmd.DeviceID = id
		cmd.OptionID = opt
		return cmd, nil
	}

	return Command{}, apperrors.MalformedCommand(fmt.Sprintf("unhandled command %s", kind))
}

func parseDeviceID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.MalformedCommand(fmt.Sprintf("invalid device id %q", s))
	}
	return id, nil
}
