package slack

import (
	"strings"
	"testing"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

func sectionText(t *testing.T, b slackapi.Block) string {
	t.Helper()

	section, ok := b.(*slackapi.SectionBlock)
	require.True(t, ok)
	return section.Text.Text
}

func TestToSlackBlocks_MapsTextAndPreformatted(t *testing.T) {
	out := toSlackBlocks([]model.MessageBlock{
		model.TextBlock("plain *mrkdwn*"),
		model.PreBlock("func main() {}\n"),
	})
	require.Len(t, out, 2)

	assert.Equal(t, "plain *mrkdwn*", sectionText(t, out[0]))
	assert.Equal(t, "```func main() {}\n```", sectionText(t, out[1]))
}

func TestToSlackBlocks_TruncatesOversizedText(t *testing.T) {
	out := toSlackBlocks([]model.MessageBlock{model.TextBlock(strings.Repeat("a", 5000))})
	require.Len(t, out, 1)

	text := sectionText(t, out[0])
	assert.LessOrEqual(t, len(text), sectionTextLimit)
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestToSlackBlocks_TruncatedPreformattedKeepsFencesBalanced(t *testing.T) {
	out := toSlackBlocks([]model.MessageBlock{model.PreBlock(strings.Repeat("x", 5000))})
	require.Len(t, out, 1)

	text := sectionText(t, out[0])
	assert.LessOrEqual(t, len(text), sectionTextLimit)
	assert.True(t, strings.HasPrefix(text, "```"))
	assert.True(t, strings.HasSuffix(text, "```"), "truncation must not cut the closing fence")
	assert.Contains(t, text, "…")
}
