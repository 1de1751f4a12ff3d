package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/issuetracker/tracker-bot-go/internal/model"
)

// TimeFormat is used for every timestamp shown in chat.
const TimeFormat = "01-02-2006 15:04:05"

// JoinSeparator joins the texts of multiple selected predefined messages.
const JoinSeparator = " + "

const (
	textStart = "Оберіть дію:"
	textHelp  = "Use /start to test this bot.\n\n" +
		"/start - меню дій\n" +
		"/problem - повідомити про проблему\n" +
		"/solution - повідомити про рішення\n" +
		"/status - історія записів пристрою\n" +
		"/open_problems - пристрої з відкритою проблемою\n" +
		"/help - ця довідка"

	textNoDevices        = "Список пристроїв порожній"
	textNoOpenProblems   = "Не знайдено жодного пристрою із відкритою проблемою"
	textNoReports        = "Не знайдено жодного пристрою із записами"
	textNoHistory        = "Нема записів для пристрою"
	textOpenProblemsNone = "Відкритих проблем немає"
	textNothingSelected  = "Нічого не обрано. Оберіть варіант або введіть свій."

	textNotFound   = "Пристрій або варіант більше не існує. Почніть спочатку: /start"
	textMalformed  = "Невідома команда. Почніть спочатку: /start"
	textStoreWrite = "Не вдалося зберегти запис. Спробуйте ще раз."
	textInternal   = "Сталася помилка. Спробуйте пізніше."
)

func formatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

func chooseDeviceText(action Action) string {
	return fmt.Sprintf("Дія: %q. Оберіть пристрій:", action.Label())
}

func chooseGroupText(action Action) string {
	return fmt.Sprintf("Дія: %q. Оберіть групу пристроїв:", action.Label())
}

func chooseDeviceInGroupText(action Action, group string) string {
	return fmt.Sprintf("Дія: %q. Група: %q. Оберіть пристрій:", action.Label(), group)
}

// optionsText lists the current selection under the prompt, in selection order.
func optionsText(action Action, device string, selected []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Дія: %q. Пристрій: %q.\n", action.Label(), device)
	b.WriteString("Оберіть один або кілька варіантів і натисніть \"Готово\", або введіть свій опис.")
	if len(selected) > 0 {
		b.WriteString("\n\nОбрано:")
		for _, s := range selected {
			b.WriteString("\n• ")
			b.WriteString(s)
		}
	}
	return b.String()
}

func customPromptText(action Action, device string) string {
	return fmt.Sprintf("Дія: %q. Пристрій: %q. Введіть опис:", action.Label(), device)
}

func confirmationText(startedAt time.Time, author, device string, action Action, text string) string {
	return fmt.Sprintf("%s\nПрийнято запис від '%s'\nдля пристроя \"%s\":\n\n\"%s :: %s\"",
		formatTime(startedAt), author, device, action.Label(), text)
}

func statusText(device string, history []model.RecordView) string {
	if len(history) == 0 {
		return textNoHistory
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Статус для пристрою %q:\n", device)
	for _, r := range history {
		fmt.Fprintf(&b, "\n<%s> %s: %s", formatTime(r.CreatedAt), kindLabel(r.Kind), r.Text)
	}
	return b.String()
}

func openProblemsText(problems []model.OpenProblem) string {
	if len(problems) == 0 {
		return textOpenProblemsNone
	}
	var b strings.Builder
	b.WriteString("Відкриті проблеми:\n")
	for _, p := range problems {
		fmt.Fprintf(&b, "\n%q <%s>: %s", p.DeviceGroup+"-"+p.DeviceName, formatTime(p.ReportedAt), p.Text)
	}
	return b.String()
}

func kindLabel(kind model.ReportKind) string {
	switch kind {
	case model.ReportKindProblem:
		return ActionProblem.Label()
	case model.ReportKindSolution:
		return ActionSolution.Label()
	default:
		return string(kind)
	}
}
