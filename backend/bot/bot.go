package bot

import "strings"

// Identity used on bot-authored chat frames.
const (
	SenderID = "bot"
	Name     = "Assistant Bot"
)

type rule struct {
	keywords []string
	reply    string
}

// Canned sales answers, first match wins. Matching is plain substring
// search on the lowercased message.
var rules = []rule{
	{
		keywords: []string{"price", "cost", "money", "how much"},
		reply:    "Asking price is $500,000. Bank financing covers up to 70%.",
	},
	{
		keywords: []string{"area", "size", "big", "sqm"},
		reply:    "The lot is 200 sqm (10x20), one ground floor plus two upper floors.",
	},
	{
		keywords: []string{"location", "address", "where"},
		reply:    "Southeast-facing villa in a gated riverside neighborhood.",
	},
	{
		keywords: []string{"papers", "deed", "title", "contact"},
		reply:    "Full private title deed, notarized the same day. Call the admin for paperwork.",
	},
	{
		keywords: []string{"hello", "hi "},
		reply:    "Hello! I am the showroom assistant. Ask me about price, size or papers.",
	},
}

// Reply returns the canned answer for text, or false when no keyword
// matches. The caller decides whether the sender qualifies for a reply at
// all; this table never triggers on broker or bot-authored messages
// because the service does not call it for those.
func Reply(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply, true
			}
		}
	}
	return "", false
}
