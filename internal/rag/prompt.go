package rag

import "strings"

// FallbackAnswer is returned verbatim when no chunk clears the
// similarity threshold. The model is never called in that case.
const FallbackAnswer = "Je n'ai pas trouvé d'information pertinente dans ma base de connaissances. " +
	"Je vous invite à contacter le service client au 0770 12 34 56."

// contextSeparator joins retrieved chunks inside the prompt context.
const contextSeparator = "\n\n---\n\n"

// systemPrompt is the assistant persona. The two slots are filled by
// buildPrompt.
const systemPrompt = `Tu es Aimé, l'assistant virtuel intelligent de la CNSS.

CONTEXTE:
Tu assistes les assurés de la CNSS pour leurs questions sur les prestations sociales, l'application mobile, les virements, les cartes, et autres produits.

RÈGLES STRICTES:
1. Réponds UNIQUEMENT en français
2. Base-toi UNIQUEMENT sur le contexte fourni ci-dessous
3. Si l'information n'est pas dans le contexte, dis "Je n'ai pas trouvé cette information dans ma base de connaissances. Je vous invite à contacter le service client au 0770 12 34 56."
4. Sois professionnel, chaleureux et concis
5. Ne partage JAMAIS d'informations sensibles (mots de passe, codes PIN, numéros de compte complets)
6. Pour les problèmes techniques urgents, oriente vers le service client
7. Cite toujours tes sources à la fin de ta réponse

CONTEXTE DOCUMENTAIRE:
{context}

QUESTION DU CLIENT:
{question}

RÉPONSE:`

// buildContext assembles the documentary context from retrieved
// chunks, each tagged with its source document name.
func buildContext(matches []matchForPrompt) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = "[Source: " + m.DocumentName + "]\n" + m.Content
	}
	return strings.Join(parts, contextSeparator)
}

// matchForPrompt is the slice of a search match the prompt needs.
type matchForPrompt struct {
	DocumentName string
	Content      string
}

// buildPrompt fills the context and question slots of the system
// prompt. The question slot is filled first so retrieved content that
// happens to contain the literal placeholder cannot capture it.
func buildPrompt(contextText, question string) string {
	prompt := strings.Replace(systemPrompt, "{question}", question, 1)
	return strings.Replace(prompt, "{context}", contextText, 1)
}
