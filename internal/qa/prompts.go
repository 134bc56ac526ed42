package qa

import (
	"fmt"
	"strings"
)

const noRelevantText = "NONE"

func mapPrompt(question, passage string) string {
	return fmt.Sprintf(`Read the passage below and copy out, word for word, any text that helps answer the question.
If nothing in the passage is relevant, reply with %s.

Passage:
%s

Question: %s
Relevant text:`, noRelevantText, passage, question)
}

func collapsePrompt(question string, partials []partial) string {
	return fmt.Sprintf(`The excerpts below were taken from web pages to answer a question.
Merge them into a shorter set of notes that keeps every fact useful for the question and keeps each fact's source.

%s

Question: %s
Merged notes (end each note with "Source: <url>"):`, formatPartials(partials), question)
}

func reducePrompt(question string, partials []partial) string {
	return fmt.Sprintf(`Answer the question using only the excerpts below. If they do not contain the answer, say that you don't know.
Finish with a line "SOURCES:" followed by the comma-separated URLs of the excerpts you used.

%s

QUESTION: %s
FINAL ANSWER:`, formatPartials(partials), question)
}

func formatPartials(partials []partial) string {
	var b strings.Builder
	for i, p := range partials {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Content: ")
		b.WriteString(p.text)
		if p.source != "" {
			b.WriteString("\nSource: ")
			b.WriteString(p.source)
		}
	}
	return b.String()
}
