package bot

import (
	"strconv"

	"github.com/m3rciful/requestbot/core/telegram/callbacks"
	"github.com/m3rciful/requestbot/core/telegram/keyboard"
	"github.com/m3rciful/requestbot/internal/intake"
	"github.com/m3rciful/requestbot/internal/posts"
	"github.com/m3rciful/requestbot/internal/requests"

	tele "gopkg.in/telebot.v4"
)

// Callback keys.
const (
	CbStatus   = "app_status"
	CbPostPage = "posts_page"
)

var statusButtonText = map[requests.Status]string{
	requests.StatusNew:        "🆕 New",
	requests.StatusInProgress: "⚙️ In progress",
	requests.StatusCompleted:  "✅ Completed",
}

func mainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{LabelNewRequest, LabelPosts},
		[]string{LabelStats, LabelHelp},
	)
}

func cancelMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{LabelCancel})
}

func markupFor(k intake.Keyboard) *tele.ReplyMarkup {
	switch k {
	case intake.KeyboardCancel:
		return cancelMenu()
	case intake.KeyboardMain:
		return mainMenu()
	}
	return nil
}

// statusMarkup holds one button per status for request id.
func statusMarkup(id int64) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(requests.Statuses))
	for _, s := range requests.Statuses {
		btns = append(btns, keyboard.InlineBtn{
			Text:   statusButtonText[s],
			Unique: CbStatus,
			Data:   callbacks.Join(strconv.FormatInt(id, 10), string(s)),
		})
	}
	return keyboard.InlineButtons(btns)
}

// postsMarkup holds prev/next navigation and a refresh button.
func postsMarkup(p posts.Page) *tele.ReplyMarkup {
	var nav []keyboard.InlineBtn
	if p.Pages > 1 {
		if p.HasPrev() {
			nav = append(nav, keyboard.InlineBtn{Text: "◀️ Back", Unique: CbPostPage, Data: strconv.Itoa(p.Number - 1)})
		}
		if p.HasNext() {
			nav = append(nav, keyboard.InlineBtn{Text: "Next ▶️", Unique: CbPostPage, Data: strconv.Itoa(p.Number + 1)})
		}
	}
	refresh := []keyboard.InlineBtn{{Text: "🔄 Refresh", Unique: CbPostPage, Data: "0"}}
	if len(nav) == 0 {
		return keyboard.InlineButtonsRows(refresh)
	}
	return keyboard.InlineButtonsRows(nav, refresh)
}
