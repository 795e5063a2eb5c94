package slack

import (
	"unicode/utf8"

	slackapi "github.com/slack-go/slack"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// sectionTextLimit is Slack's maximum text length for a section block.
const sectionTextLimit = 3000

// toSlackBlocks maps domain message blocks onto Slack Block Kit sections.
// Preformatted blocks are fenced; text blocks pass through as mrkdwn.
func toSlackBlocks(blocks []model.MessageBlock) []slackapi.Block {
	out := make([]slackapi.Block, 0, len(blocks))

	for _, b := range blocks {
		text := b.Text
		limit := sectionTextLimit
		if b.Type == model.BlockPreformatted {
			// Keep room for the fences so truncation never unbalances them.
			limit -= 2 * len("```")
		}
		if len(text) > limit {
			cut := limit - len("…")
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "…"
		}
		if b.Type == model.BlockPreformatted {
			text = "```" + text + "```"
		}

		out = append(out, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false),
			nil, nil,
		))
	}

	return out
}
