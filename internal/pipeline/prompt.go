package pipeline

import "fmt"

// DefaultSystemPrompt keeps answers grounded in the retrieved context.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"If the context does not contain enough information to answer the question, say so. " +
	"Do not make up information."

const userPromptFormat = `Context:
%s

User Question: %s

Instructions: Answer the question using only the information in the context above. Cite the source of the passages you rely on.

Answer:`

func buildUserPrompt(contextText, question string) string {
	return fmt.Sprintf(userPromptFormat, contextText, question)
}
