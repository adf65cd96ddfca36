package cache

import "regexp"

// templatePatterns are common prompt openings that tend to repeat
// verbatim across requests and therefore hit provider prompt caches.
// Matching is anchored at the start of the message.
var templatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^You are a helpful assistant`),
	regexp.MustCompile(`(?i)^Please (analyze|review|explain|summarize)`),
	regexp.MustCompile(`(?i)^Based on the following (context|information|data)`),
	regexp.MustCompile(`(?i)^Act as a (professional|expert|senior)`),
	regexp.MustCompile(`(?i)^Given the (following|above) (code|text|document)`),
	regexp.MustCompile(`(?i)^Here is (the|a) (code|function|class|file)`),
	regexp.MustCompile(`(?i)^Can you help me (with|to)`),
	regexp.MustCompile(`(?i)^I need (help|assistance) (with|for)`),
	regexp.MustCompile(`(?i)^What (is|are|would be) the`),
	regexp.MustCompile(`(?i)^How (do|can|should) (I|you|we)`),
}
