// Package assistant answers chat widget messages from a fixed rule list.
package assistant

import "strings"

// Rule maps any of its keywords to a canned reply.
type Rule struct {
	Keywords []string
	Reply    string
}

const (
	replyGreeting     = "Thank you for your message! How can I help you with your technology needs today?"
	replyDefault      = "Blackbox Logic specializes in custom software development, AI solutions, and IT consulting for small businesses in the Treasure Coast area."
	replyServices     = "Our team can help with website development, custom software, AI chatbots, and IT infrastructure. What specific services are you interested in?"
	replyTiming       = "We typically respond to inquiries within 24 hours, but I'm here to answer basic questions immediately."
	replyConsultation = "Would you like to schedule a consultation with one of our technology experts?"
	replyPricing      = "Our pricing varies based on project scope and requirements. We'd be happy to provide a custom quote after understanding your needs better."
	replyPortfolio    = "We've helped many local businesses improve their operations through technology. You can check out our case studies on our website."
	replyHandoff      = "I'll pass your information to our team, and someone will contact you shortly to discuss your project in more detail."
)

// DefaultRules are evaluated top to bottom; order matters.
var DefaultRules = []Rule{
	{Keywords: []string{"pricing", "cost", "quote"}, Reply: replyPricing},
	{Keywords: []string{"contact", "talk to someone", "representative"}, Reply: replyHandoff},
	{Keywords: []string{"services", "offer", "provide"}, Reply: replyServices},
	{Keywords: []string{"time", "how long", "when"}, Reply: replyTiming},
	{Keywords: []string{"examples", "portfolio", "case studies"}, Reply: replyPortfolio},
	{Keywords: []string{"consultation", "meeting", "appointment"}, Reply: replyConsultation},
	{Keywords: []string{"hello", "hi", "hey"}, Reply: replyGreeting},
}

type Assistant struct {
	rules    []Rule
	fallback string
}

func New(rules []Rule, fallback string) *Assistant {
	if rules == nil {
		rules = DefaultRules
	}
	if fallback == "" {
		fallback = replyDefault
	}
	return &Assistant{rules: rules, fallback: fallback}
}

// Reply returns the first rule whose keyword occurs in message, ignoring case.
func (a *Assistant) Reply(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range a.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Reply
			}
		}
	}
	return a.fallback
}
