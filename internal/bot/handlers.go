// Package bot exposes the Telegram command surface: search, stream,
// lyrics and the staged download pipeline.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"dab-tg-bot/internal/dab"
	"dab-tg-bot/internal/pipeline"
	"dab-tg-bot/internal/session"
)

// Catalog is the subset of the DAB client the handlers consume.
type Catalog interface {
	Search(ctx context.Context, query string) ([]dab.Track, error)
	StreamURL(ctx context.Context, trackID string) (string, error)
	Lyrics(ctx context.Context, trackID string) (string, error)
}

// Runner is one acquisition pipeline invocation.
type Runner interface {
	Run(ctx context.Context, track dab.Track, rep pipeline.Reporter) (*pipeline.Result, error)
}

// api is the slice of the Telegram client the handlers need; *bot.Bot
// satisfies it, tests substitute a recorder.
type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
}

type Handlers struct {
	catalog Catalog
	store   *session.Store
	pipe    Runner
	logger  *zap.Logger
}

func NewHandlers(catalog Catalog, store *session.Store, pipe Runner, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{catalog: catalog, store: store, pipe: pipe, logger: logger}
}

// Register attaches every command to the bot.
func (h *Handlers) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.wrap(h.handleStart))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.wrap(h.handleStart))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/search", bot.MatchTypePrefix, h.wrap(h.handleSearch))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stream", bot.MatchTypePrefix, h.wrap(h.handleStream))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/lyrics", bot.MatchTypePrefix, h.wrap(h.handleLyrics))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/download", bot.MatchTypePrefix, h.wrap(h.handleDownload))
}

func (h *Handlers) wrap(fn func(ctx context.Context, a api, update *models.Update)) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		fn(ctx, b, update)
	}
}

// commandArgs strips the leading "/cmd" (or "/cmd@BotName") token.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:]
}

func (h *Handlers) reply(ctx context.Context, a api, chatID int64, text string) {
	if _, err := a.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}); err != nil {
		h.logger.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handlers) handleStart(ctx context.Context, a api, update *models.Update) {
	h.reply(ctx, a, update.Message.Chat.ID, helpText)
}

func (h *Handlers) handleSearch(ctx context.Context, a api, update *models.Update) {
	chatID := update.Message.Chat.ID
	query := strings.Join(commandArgs(update.Message.Text), " ")
	if query == "" {
		h.reply(ctx, a, chatID, "Usage: /search &lt;song name&gt;")
		return
	}

	h.reply(ctx, a, chatID, fmt.Sprintf("🔎 Searching for '%s'...", html.EscapeString(query)))

	tracks, err := h.catalog.Search(ctx, query)
	if err != nil {
		h.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		h.reply(ctx, a, chatID, "A communication problem occurred with the music service.")
		return
	}
	if len(tracks) == 0 {
		h.reply(ctx, a, chatID, "No results found.")
		return
	}

	// A new search always replaces the previous result set.
	if err := h.store.SaveSearch(update.Message.From.ID, tracks); err != nil {
		h.logger.Error("saving search results failed", zap.Error(err))
		h.reply(ctx, a, chatID, "A communication problem occurred. Please try again.")
		return
	}

	h.reply(ctx, a, chatID, renderSearchResults(tracks))
}

func (h *Handlers) handleStream(ctx context.Context, a api, update *models.Update) {
	chatID := update.Message.Chat.ID
	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.reply(ctx, a, chatID, "Usage: /stream &lt;song ID&gt;")
		return
	}

	h.reply(ctx, a, chatID, "🔗 Fetching the stream URL...")

	streamURL, err := h.catalog.StreamURL(ctx, args[0])
	if err != nil {
		if errors.Is(err, dab.ErrNoStreamURL) {
			h.reply(ctx, a, chatID, "The service responded, but no stream URL was found.")
			return
		}
		h.logger.Error("stream lookup failed", zap.String("track_id", args[0]), zap.Error(err))
		h.reply(ctx, a, chatID, "Could not get the link. Is the ID correct?")
		return
	}

	h.reply(ctx, a, chatID, fmt.Sprintf("▶️ <b>Streaming link:</b>\n\n<code>%s</code>", html.EscapeString(streamURL)))
}

func (h *Handlers) handleLyrics(ctx context.Context, a api, update *models.Update) {
	chatID := update.Message.Chat.ID
	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.reply(ctx, a, chatID, "Usage: /lyrics &lt;song ID&gt;")
		return
	}

	h.reply(ctx, a, chatID, "📝 Looking for the lyrics...")

	lyrics, err := h.catalog.Lyrics(ctx, args[0])
	if err != nil {
		h.logger.Error("lyrics lookup failed", zap.String("track_id", args[0]), zap.Error(err))
		h.reply(ctx, a, chatID, "Lyrics unavailable or invalid ID.")
		return
	}
	if lyrics == "" {
		h.reply(ctx, a, chatID, "No lyrics found for this song.")
		return
	}

	for _, chunk := range chunkRunes(lyrics, lyricsChunkRunes) {
		if _, err := a.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: chunk}); err != nil {
			h.logger.Warn("lyrics chunk send failed", zap.Error(err))
			return
		}
	}
}

func (h *Handlers) handleDownload(ctx context.Context, a api, update *models.Update) {
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	// Preconditions run before any network I/O or file creation.
	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.reply(ctx, a, chatID, "Usage: /download &lt;song ID&gt;")
		return
	}
	trackID := args[0]

	last, err := h.store.LastSearch(userID)
	if err != nil {
		h.logger.Error("session lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		h.reply(ctx, a, chatID, "A communication problem occurred. Please try again.")
		return
	}
	if len(last) == 0 {
		h.reply(ctx, a, chatID, "Please run a /search first so you can download a song.")
		return
	}

	track, found, err := h.store.Find(userID, trackID)
	if err != nil {
		h.logger.Error("session lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		h.reply(ctx, a, chatID, "A communication problem occurred. Please try again.")
		return
	}
	if !found {
		msg := "ID not found in your last search results. Run a new search."
		if s, ok := suggest(trackID, last); ok {
			msg += fmt.Sprintf("\n\nDid you mean <b>%s</b> - %s (ID: <code>%s</code>)?",
				html.EscapeString(s.Title), html.EscapeString(s.Artist), html.EscapeString(s.ID.String()))
		}
		h.reply(ctx, a, chatID, msg)
		return
	}

	progress, err := a.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      "📥 <b>Download started...</b>",
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.logger.Error("progress message send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	rep := newProgressReporter(a, chatID, progress.ID, h.logger)
	if _, err := h.pipe.Run(ctx, track, rep); err != nil {
		// The reporter already showed the failure; this is for operators.
		h.logger.Error("download job failed", zap.String("track_id", trackID), zap.Error(err))
	}
}
