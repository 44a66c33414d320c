package prompts

import (
	_ "embed"
)

//go:embed advisor.txt
var AdvisorPrompt string

//go:embed email.txt
var EmailBodyTemplate string

// NoCandidatesPrompt is sent when a page has no removal candidates.
const NoCandidatesPrompt = "No removal-related elements found on this page."
