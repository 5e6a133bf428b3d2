package chat

// defaultTitle is the title of a conversation before its first user message.
const defaultTitle = "Nuevo chat"

// titleMaxLen is the number of leading characters taken from the first user
// message.
const titleMaxLen = 30

// deriveTitle builds a conversation title from the first user message:
// its leading characters, with an ellipsis marker when truncated.
func deriveTitle(text string) string {
	if text == "" {
		return defaultTitle
	}

	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "..."
}
