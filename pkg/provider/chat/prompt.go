package chat

import (
	"fmt"
	"strings"
)

// SystemPrompt is the fixed instruction prepended to every conversation.
// The assistant always answers in Turkish with a natural, friendly tone.
const SystemPrompt = "Sen Türkçe konuşan bir sesli asistansın. Tüm yanıtlarını Türkçe olarak ver ve doğal, arkadaşça bir ton kullan."

// ClassifyPrompt builds the single-shot classification prompt used by
// Provider.Classify. The model is instructed to answer with exactly one
// candidate or the literal word "unknown".
func ClassifyPrompt(utterance string, candidates []string) string {
	return fmt.Sprintf(
		"Kullanıcının isteği: %q\n"+
			"Bu istek aşağıdaki adaylardan hangisiyle eşleşiyor?\n"+
			"%s\n"+
			"Yanıt olarak yalnızca listeden bir aday yaz. Hiçbiri uygun değilse yalnızca \"unknown\" yaz.",
		utterance, strings.Join(candidates, ", "))
}

// PickCandidate normalises a model's free-text answer against the candidate
// list. It returns the matching candidate verbatim, preferring an exact
// (case-insensitive) match and falling back to the first candidate contained
// in the answer. Returns "" when nothing matches, including when the model
// answered "unknown".
func PickCandidate(answer string, candidates []string) string {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(answer), `"'.!`))
	if cleaned == "" || cleaned == Unknown {
		return ""
	}
	for _, c := range candidates {
		if cleaned == strings.ToLower(c) {
			return c
		}
	}
	// Models often wrap the choice in a sentence; take the first candidate
	// mentioned anywhere in the answer.
	for _, c := range candidates {
		if strings.Contains(cleaned, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}
