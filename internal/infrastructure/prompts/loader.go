package prompts

import (
	_ "embed"
)

// Greeting is shown once, before the first operator prompt.
const Greeting = "How can I assist you today?"

//go:embed system.txt
var SystemPromptTemplate string

//go:embed caption.txt
var ScreenshotCaption string
