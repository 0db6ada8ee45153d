package tui

import "time"

// stage identifies which top-level screen is active.
type stage int

const (
	stagePicker stage = iota
	stageChat
)

// pickerMode tracks what the picker's text field is collecting, if anything.
type pickerMode int

const (
	pickerBrowsing pickerMode = iota
	pickerNaming
	pickerTyping
)

const (
	composerCharLimit = 2000
	fieldCharLimit    = 200

	indexListLimit = 100
	previewRunes   = 1200

	minViewportWidth  = 20
	minViewportHeight = 4

	lookupTimeout = 30 * time.Second
	ingestTimeout = 30 * time.Minute
)

const (
	heroTagline         = "Chat with your documents. Answers cite the files they came from."
	composerPlaceholder = "Ask about your documents, or /help for commands"
	namePlaceholder     = "name for the new index"
	idPlaceholder       = "index id, e.g. vs_abc123"
)
