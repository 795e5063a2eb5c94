package model

// BlockType distinguishes the two kinds of outbound message blocks.
type BlockType string

const (
	BlockText         BlockType = "text"
	BlockPreformatted BlockType = "preformatted"
)

// MessageBlock is one structured segment of an outbound chat message. The
// formatter emits a sequence of these; the chat adapter maps them onto the
// platform's native block types.
type MessageBlock struct {
	Type BlockType
	Text string
}

// TextBlock builds a text block.
func TextBlock(text string) MessageBlock {
	return MessageBlock{Type: BlockText, Text: text}
}

// PreBlock builds a preformatted block.
func PreBlock(text string) MessageBlock {
	return MessageBlock{Type: BlockPreformatted, Text: text}
}
