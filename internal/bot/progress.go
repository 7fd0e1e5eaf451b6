package bot

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"dab-tg-bot/internal/dab"
	"dab-tg-bot/internal/gofile"
	"dab-tg-bot/internal/pipeline"
	"dab-tg-bot/internal/tagger"
)

// progressReporter edits one Telegram message in place as the job moves
// through its stages. The message identity never changes; only its text.
type progressReporter struct {
	api       api
	chatID    int64
	messageID int
	logger    *zap.Logger
}

func newProgressReporter(a api, chatID int64, messageID int, logger *zap.Logger) *progressReporter {
	return &progressReporter{api: a, chatID: chatID, messageID: messageID, logger: logger}
}

func (r *progressReporter) Stage(ctx context.Context, stage pipeline.Stage) {
	r.edit(ctx, stageText(stage))
}

func (r *progressReporter) Done(ctx context.Context, link string, size int64) {
	r.edit(ctx, fmt.Sprintf(
		"✅ <b>All done!</b>\n\nHere is your download link (%s):\n%s",
		humanize.Bytes(uint64(size)), html.EscapeString(link)))
}

func (r *progressReporter) Fail(ctx context.Context, err error) {
	r.edit(ctx, "❌ "+html.EscapeString(friendlyError(err)))
}

func (r *progressReporter) edit(ctx context.Context, text string) {
	_, err := r.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    r.chatID,
		MessageID: r.messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		r.logger.Warn("progress message edit failed", zap.Error(err))
	}
}

func stageText(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageResolving:
		return "📥 <b>Download started...</b>\n1/5: Fetching track info..."
	case pipeline.StageFetching:
		return "2/5: Downloading audio file... (this can take a while)"
	case pipeline.StageTagging:
		return "3/5: Writing tags and cover art..."
	case pipeline.StagePublishing:
		return "4/5: Uploading to GoFile.io... (slow)"
	default:
		return "Working..."
	}
}

// friendlyError maps job errors onto the user-facing taxonomy: data gaps
// and service-reported failures get specific text, raw transport detail
// stays in the logs.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, dab.ErrNoStreamURL):
		return "The service responded but supplied no playable URL."
	case errors.Is(err, tagger.ErrUnsupportedFormat):
		return "The downloaded file is not a supported audio container, so it could not be tagged."
	case errors.Is(err, gofile.ErrUpload):
		return "Publishing the file failed: " + err.Error()
	default:
		return "A communication problem occurred with the music service. Please try again."
	}
}
