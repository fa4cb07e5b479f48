package models

const (
	// MinChunkLength is the trimmed length a chunk must exceed to be kept.
	MinChunkLength = 30
	// MinExtractedLength is the trimmed length below which extraction is considered failed.
	MinExtractedLength = 30

	ParagraphSeparator = "\n\n"
	ContextSeparator   = "\n\n---\n\n"
	ThinkTag           = `(?s)<think>.*?</think>`
	DataURLPrefixPDF   = "data:application/pdf;base64,"
	DefaultUploadName  = "upload.pdf"

	NoRelevantInformation = "I could not find any relevant information in your documents."
)

var (
	SystemPrompt = `You are an assistant that answers questions using ONLY the provided context.
Do not invent any information.
If the context does not contain the answer, say so clearly.
Answer in the language of the question.`

	UserPromptTemplate = `Context:
%s

---

Question: %s`
)
