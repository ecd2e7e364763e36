package gemini

// Wire types for the generateContent REST endpoint. Only the fields this
// client sends or reads are modelled.

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type googleSearch struct{}

type tool struct {
	GoogleSearch *googleSearch `json:"googleSearch,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	Tools             []tool           `json:"tools,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// WebSource is a web page the service consulted.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// RetrievedContext is a non-web grounding reference.
type RetrievedContext struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Source is one grounding chunk attached to a search-augmented response.
type Source struct {
	Web              *WebSource        `json:"web,omitempty"`
	RetrievedContext *RetrievedContext `json:"retrievedContext,omitempty"`
}

// URI returns whichever reference the chunk carries.
func (s Source) URI() string {
	switch {
	case s.Web != nil:
		return s.Web.URI
	case s.RetrievedContext != nil:
		return s.RetrievedContext.URI
	}
	return ""
}

// Title returns whichever title the chunk carries.
func (s Source) Title() string {
	switch {
	case s.Web != nil:
		return s.Web.Title
	case s.RetrievedContext != nil:
		return s.RetrievedContext.Title
	}
	return ""
}

type groundingMetadata struct {
	GroundingChunks  []Source `json:"groundingChunks"`
	WebSearchQueries []string `json:"webSearchQueries,omitempty"`
}

type candidate struct {
	Content           content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

// text concatenates the text parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var s string
	for _, p := range r.Candidates[0].Content.Parts {
		s += p.Text
	}
	return s
}

func (r generateResponse) sources() []Source {
	if len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return []Source{}
	}
	chunks := r.Candidates[0].GroundingMetadata.GroundingChunks
	out := make([]Source, len(chunks))
	copy(out, chunks)
	return out
}
