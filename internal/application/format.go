package application

import (
	"strings"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// inlinePromoteLen is the inline code span length at which a span is
// promoted to its own preformatted block instead of staying inline.
const inlinePromoteLen = 40

// FormatBlocks renders GitHub markdown into a sequence of message blocks.
// Fenced code blocks are split out first, preserving surrounding text as
// separate blocks; remaining text segments are then split on long inline
// code spans and converted to mrkdwn. Pure: deterministic, no I/O.
func FormatBlocks(src string) []model.MessageBlock {
	var blocks []model.MessageBlock

	for _, seg := range splitFences(src) {
		if seg.code {
			if seg.text != "" {
				blocks = append(blocks, model.PreBlock(seg.text))
			}
			continue
		}

		for _, part := range splitInlineSpans(seg.text) {
			if part.code {
				blocks = append(blocks, model.PreBlock(part.text))
				continue
			}
			if text := strings.TrimSpace(toMrkdwn(part.text)); text != "" {
				blocks = append(blocks, model.TextBlock(text))
			}
		}
	}

	return blocks
}

// segment is an intermediate split result; code segments carry raw content
// with fences or backticks already removed.
type segment struct {
	text string
	code bool
}

// splitFences splits markdown on fenced code blocks (``` or ~~~, three or
// more). An unclosed fence runs to the end of input.
func splitFences(src string) []segment {
	lines := strings.Split(src, "\n")

	var segs []segment
	var buf []string
	var fenceChar byte
	var fenceLen int
	inFence := false

	flush := func(code bool) {
		text := strings.Join(buf, "\n")
		if strings.TrimSpace(text) != "" {
			segs = append(segs, segment{text: text, code: code})
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inFence {
			if c, n, ok := fenceMarker(trimmed); ok {
				flush(false)
				fenceChar, fenceLen = c, n
				inFence = true
				continue
			}
			buf = append(buf, line)
			continue
		}

		if c, n, ok := fenceMarker(trimmed); ok && c == fenceChar && n >= fenceLen && strings.Trim(trimmed, string(c)) == "" {
			flush(true)
			inFence = false
			continue
		}
		buf = append(buf, line)
	}

	flush(inFence)

	return segs
}

// fenceMarker reports whether a trimmed line opens or closes a fence, and
// with which character and run length. The info string after an opening
// fence is ignored.
func fenceMarker(trimmed string) (byte, int, bool) {
	if trimmed == "" {
		return 0, 0, false
	}

	c := trimmed[0]
	if c != '`' && c != '~' {
		return 0, 0, false
	}

	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return 0, 0, false
	}

	return c, n, true
}

// splitInlineSpans splits a text segment on inline code spans of
// inlinePromoteLen characters or more. Shorter spans stay in the text and
// render inline.
func splitInlineSpans(src string) []segment {
	var segs []segment
	start := 0 // Start of the pending text run.
	i := 0

	for i < len(src) {
		if src[i] != '`' {
			i++
			continue
		}

		// Opening backtick run.
		n := 0
		for i+n < len(src) && src[i+n] == '`' {
			n++
		}

		content, end, ok := findSpanClose(src, i+n, n)
		if !ok {
			i += n
			continue
		}

		if len(content) >= inlinePromoteLen {
			if text := src[start:i]; strings.TrimSpace(text) != "" {
				segs = append(segs, segment{text: text})
			}
			segs = append(segs, segment{text: content, code: true})
			start = end
		}
		i = end
	}

	if text := src[start:]; strings.TrimSpace(text) != "" {
		segs = append(segs, segment{text: text})
	}

	return segs
}

// findSpanClose finds the closing run of exactly n backticks starting the
// search at from. Returns the span content and the index just past the close.
func findSpanClose(src string, from, n int) (string, int, bool) {
	i := from
	for i < len(src) {
		if src[i] != '`' {
			i++
			continue
		}

		m := 0
		for i+m < len(src) && src[i+m] == '`' {
			m++
		}
		if m == n {
			return src[from:i], i + m, true
		}
		i += m
	}

	return "", 0, false
}
