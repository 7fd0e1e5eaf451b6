package bot

import (
	"fmt"
	"html"
	"strings"

	"dab-tg-bot/internal/dab"
)

// maxSearchResults caps how many tracks a search reply lists.
const maxSearchResults = 15

// lyricsChunkRunes is Telegram's message length ceiling.
const lyricsChunkRunes = 4096

const helpText = `👋 <b>Welcome to the Music Bot!</b>

Use these commands to find and manage music:

🔹 <code>/search &lt;song name&gt;</code>
   Search for a song.

🔹 <code>/stream &lt;ID&gt;</code>
   Get a direct listening link.

🔹 <code>/download &lt;ID&gt;</code>
   Download a fully tagged audio file.

🔹 <code>/lyrics &lt;ID&gt;</code>
   Show the song lyrics, when available.

<i>Song IDs come from /search results.</i>`

func renderSearchResults(tracks []dab.Track) string {
	var b strings.Builder
	b.WriteString("<b>✅ Here are the results:</b>\n\n")

	shown := tracks
	if len(shown) > maxSearchResults {
		shown = shown[:maxSearchResults]
	}
	for _, t := range shown {
		fmt.Fprintf(&b, "🎵 <b>%s</b> - %s\n   - ID: <code>%s</code>\n\n",
			html.EscapeString(t.Title), html.EscapeString(t.Artist), html.EscapeString(t.ID.String()))
	}

	b.WriteString("\nUse /stream, /download or /lyrics with the ID you want.")
	return b.String()
}

// chunkRunes splits text into pieces of at most n runes, preserving order.
func chunkRunes(text string, n int) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > 0 {
		end := n
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[:end]))
		runes = runes[end:]
	}
	return chunks
}
