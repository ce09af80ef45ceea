package ai

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed system_prompt.md
var systemPrompt string

// GreetingTemplate is the coach's fixed opening message. Its first word is a generic salutation that Greeting replaces
// with a personalized one
const GreetingTemplate = "Greetings! I'm your smart coach, here to guide you on the road to success in network " +
	"marketing. Tell me where you are in your business right now and what you'd like to work on today, whether " +
	"that's finding prospects, following up, building a team, or staying motivated."

// SystemPrompt returns the instructions that define the coach persona
func SystemPrompt() string {
	return systemPrompt
}

// Greeting returns the opening message personalized for the given first name
func Greeting(firstName string) string {
	_, rest, found := strings.Cut(GreetingTemplate, " ")
	if !found {
		rest = GreetingTemplate
	}
	return fmt.Sprintf("Hello, %s! %s", firstName, rest)
}
