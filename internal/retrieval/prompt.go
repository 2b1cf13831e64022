package retrieval

import (
	"fmt"
	"strings"

	"virtualrag/internal/index"
)

const systemInstruction = "You are a helpful AI record keeper. " +
	"Use the provided context from documents to answer questions accurately. " +
	"If the context doesn't contain relevant information, say so and do not make up answers."

// buildPrompt assembles the full generation prompt: system instruction,
// recent conversation, retrieved chunks labelled by source, and the query.
func buildPrompt(turns []Turn, results []index.SearchResult, query string) string {
	var parts []string
	parts = append(parts, "System: "+systemInstruction+"\n")

	var context strings.Builder
	if len(turns) > 0 {
		context.WriteString("Recent conversation:\n")
		for _, t := range turns {
			fmt.Fprintf(&context, "User: %s\nAssistant: %s\n", t.Query, t.Answer)
		}
		context.WriteString("\n")
	}
	if len(results) > 0 {
		var sources []string
		for i, r := range results {
			sources = append(sources, fmt.Sprintf("[Source %d: %s]\n%s", i+1, r.Chunk.Source, r.Chunk.Content))
		}
		context.WriteString(strings.Join(sources, "\n\n"))
	}
	if context.Len() > 0 {
		parts = append(parts, "Context from documents:\n"+context.String()+"\n")
	}

	parts = append(parts, "User question: "+query+"\n")
	parts = append(parts, "Assistant response:")
	return strings.Join(parts, "\n")
}
