package models

const (
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultDimension        = 1024
	DefaultTopK             = 5
	DefaultMaxContextLength = 3000
	DefaultMinContextLength = 50
	DefaultHistoryTurns     = 6
	DefaultEmbedDelayMs     = 2000
	DefaultMaxTokens        = 1024
	DefaultTemperature      = 0.1

	// SourcePreviewLength caps the excerpt attached to each citation.
	SourcePreviewLength = 200

	// ScrollPageLimit bounds the enumerate-then-delete fallback.
	ScrollPageLimit = 10000
)

var (
	SystemPromptTemplate = `You are a document assistant. Answer the question using only the provided document context. If the context does not contain the information needed to answer, say that the document does not cover it. Do not invent facts that are not in the context.`

	UserPromptTemplate = `Document context:
%s

%sQuestion: %s`
)
