package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatarr/chatarr/internal/services/arr"
	"github.com/chatarr/chatarr/internal/utils"
)

// sendLibrary replies with the full library of the media type's first
// instance, paginated at the message size limit.
func (b *Bot) sendLibrary(ctx context.Context, ev Event, mediaType arr.MediaType) error {
	if !b.registry.Has(mediaType) {
		return b.say(ev.ChatID, "NotConfigured")
	}
	client, err := b.registry.Client(mediaType, "")
	if err != nil {
		return err
	}

	items, err := client.Library(ctx)
	if err != nil {
		b.logger.WithError(err).WithField("service", mediaType).Error("Failed to fetch library")
	}
	if len(items) == 0 {
		return b.sayf(ev.ChatID, "searchresults", map[string]string{"count": "0"})
	}

	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(formatLibraryItem(item))
	}

	for _, chunk := range utils.SplitMessage(sb.String()) {
		if _, err := b.gw.SendText(ev.ChatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func formatLibraryItem(item arr.LibraryItem) string {
	line := "• " + item.Title
	if item.Year > 0 {
		line = fmt.Sprintf("%s (%d)", line, item.Year)
	}
	if item.Status != "" {
		line += "\n  " + item.Status
		if item.Monitored {
			line += ", monitored"
		} else {
			line += ", unmonitored"
		}
	}
	return line
}
