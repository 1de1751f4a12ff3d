package conversation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/issuetracker/tracker-bot-go/internal/errors"
)

func TestCommandRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		payload string
	}{
		{"initial action", InitialActionCommand(ActionOpenProblems), "ias|open_problems"},
		{"group selected", GroupSelectedCommand(ActionProblem, 3, "Kyiv"), fmt.Sprintf("gsfa|problem|3|%08x", GroupHash("Kyiv"))},
		{"device selected", DeviceSelectedCommand(ActionStatus, 42), "dsfa|status|42"},
		{"option selected", OptionSelectedCommand(ActionSolution, 7, 12), "osfa|solution|7|12"},
		{"custom option", OptionSelectedCommand(ActionProblem, 7, OptionCustom), "osfa|problem|7|0"},
		{"done option", OptionSelectedCommand(ActionProblem, 7, OptionDone), "osfa|problem|7|-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := tt.cmd.Encode()
			assert.Equal(t, tt.payload, payload)

			decoded, err := Decode(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, decoded)
		})
	}
}

func TestEncode_FitsPayloadLimit(t *testing.T) {
	const maxID = int64(1<<63 - 1)
	for _, a := range Actions {
		if _, ok := a.ReportKind(); !ok {
			continue
		}
		payload := OptionSelectedCommand(a, maxID, maxID).Encode()
		assert.LessOrEqual(t, len(payload), MaxPayloadBytes, payload)
	}
}

func TestGroupHash(t *testing.T) {
	assert.Equal(t, GroupHash("Kyiv"), GroupHash("Kyiv"))
	assert.NotEqual(t, GroupHash("Kyiv"), GroupHash("Lviv"))

	payload := GroupSelectedCommand(ActionSolution, 12, strings.Repeat("Група", 20)).Encode()
	assert.LessOrEqual(t, len(payload), MaxPayloadBytes, payload)
}

func TestDecode_TrimsFields(t *testing.T) {
	cmd, err := Decode("dsfa| problem | 5 ")
	require.NoError(t, err)
	assert.Equal(t, DeviceSelectedCommand(ActionProblem, 5), cmd)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"unknown tag", "UNKNOWN_STATE|x|y"},
		{"too few fields", "dsfa|problem"},
		{"too many fields", "ias|problem|1"},
		{"unknown action", "ias|reboot"},
		{"group for open problems", "gsfa|open_problems|0|00000000"},
		{"negative group", "gsfa|problem|-1|00000000"},
		{"non numeric group", "gsfa|problem|A|00000000"},
		{"group without hash", "gsfa|problem|0"},
		{"non hex group hash", "gsfa|problem|0|kyiv"},
		{"group hash overflow", "gsfa|problem|0|1ffffffff"},
		{"device for open problems", "dsfa|open_problems|1"},
		{"zero device", "dsfa|problem|0"},
		{"non numeric device", "dsfa|problem|D7"},
		{"option for status", "osfa|status|1|1"},
		{"option below done", "osfa|problem|1|-2"},
		{"non numeric option", "osfa|problem|1|fan"},
		{"too long", "ias|" + strings.Repeat("p", MaxPayloadBytes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeMalformedCommand, apperrors.GetCode(err))
		})
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction(" Problem ")
	assert.True(t, ok)
	assert.Equal(t, ActionProblem, a)

	_, ok = ParseAction("reboot")
	assert.False(t, ok)
}

func TestActionReportKind(t *testing.T) {
	_, ok := ActionStatus.ReportKind()
	assert.False(t, ok)
	_, ok = ActionOpenProblems.ReportKind()
	assert.False(t, ok)
	assert.False(t, ActionOpenProblems.SelectsDevice())
	assert.True(t, ActionStatus.SelectsDevice())
}
