package chat

// BlockType classifies a content block. Only text blocks carry transcript
// content; every other block type is tracked so its deltas can be skipped.
type BlockType int

const (
	BlockText BlockType = iota
	BlockOther
)

func (b BlockType) String() string {
	if b == BlockText {
		return "text"
	}
	return "other"
}

// ParseBlockType classifies a raw content_block.type value.
func ParseBlockType(raw string) BlockType {
	if raw == "text" {
		return BlockText
	}
	return BlockOther
}

// BlockCursor tracks the content block currently open within the message
// being assembled. It exists only while a message is open.
type BlockCursor struct {
	Type    BlockType
	RawType string // wire value, kept for diagnostics
	Open    bool
}

// acceptsText reports whether a delta may be appended.
func (c *BlockCursor) acceptsText() bool {
	return c != nil && c.Open && c.Type == BlockText
}
