package domain

// ExtractionMethod identifies the strategy that produced a scraped job.
type ExtractionMethod string

const (
	MethodAPI      ExtractionMethod = "api"
	MethodMarkup   ExtractionMethod = "markup"
	MethodEmbedded ExtractionMethod = "embedded"
	MethodLLM      ExtractionMethod = "llm"
	MethodDOM      ExtractionMethod = "dom"
	MethodBrowser  ExtractionMethod = "browser"
)

// methodAuthority ranks extraction methods by how trustworthy their output
// is. Higher is more authoritative. Used by dedup tie-breaks.
var methodAuthority = map[ExtractionMethod]int{
	MethodAPI:      6,
	MethodMarkup:   5,
	MethodEmbedded: 4,
	MethodDOM:      3,
	MethodBrowser:  2,
	MethodLLM:      1,
}

// Authority returns the relative trust rank of the method.
func (m ExtractionMethod) Authority() int {
	return methodAuthority[m]
}

// Valid reports whether the method is a known extraction method.
func (m ExtractionMethod) Valid() bool {
	_, ok := methodAuthority[m]
	return ok
}
