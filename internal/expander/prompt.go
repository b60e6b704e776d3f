package expander

import "fmt"

const promptTemplate = `Generate %d different versions of the following search query. Each version should keep the meaning of the original but use different words or phrasing, to help retrieve relevant documents.

Original query: %s

Write each version on its own line. Do not number the lines, do not use bullet points and do not add any other text.`

func buildPrompt(query string, n int) string {
	return fmt.Sprintf(promptTemplate, n, query)
}
