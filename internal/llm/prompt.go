package llm

import (
	"strings"
)

// maxQuestionChars caps what we forward from a single customer message.
const maxQuestionChars = 2000

// BuildSystemPrompt tells the model who it speaks for and how to answer.
func BuildSystemPrompt(organization string) string {
	org := strings.TrimSpace(organization)
	if org == "" {
		org = "the business"
	}
	parts := []string{
		"You are the customer service assistant for " + org + ".",
		"Answer questions about orders, invoices, deliveries and payments politely and briefly.",
		"Reply in the language the customer wrote in; Indonesian and English are both common.",
		"If you do not know an order-specific detail, say so and suggest contacting the office.",
		"Never invent prices, invoice numbers or delivery dates.",
	}
	return strings.Join(parts, " ")
}

// BuildMessages returns the chat transcript sent for a single question.
func BuildMessages(req ReplyRequest) []Message {
	q := strings.TrimSpace(req.Message)
	if r := []rune(q); len(r) > maxQuestionChars {
		q = string(r[:maxQuestionChars])
	}
	return []Message{
		{Role: "system", Content: BuildSystemPrompt(req.Organization)},
		{Role: "user", Content: q},
	}
}
