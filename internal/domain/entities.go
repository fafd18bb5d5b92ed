package domain

// Document is a single ingested PDF.
type Document struct {
	ID        string
	Path      string
	PageCount int
}

// Page holds the extracted content of one PDF page. Numbers are 1-based
// and follow the order of the source document.
type Page struct {
	Number int
	Text   string
	// Height is the page height in the extractor's coordinate space,
	// zero when the extractor does not report it.
	Height float64
	Images []ImageAsset
}

// Chunk is a bounded span of a page's text, the unit of embedding and
// retrieval. Start and End are character offsets into the cleaned page
// text. Chunks are immutable once created.
type Chunk struct {
	ID    string
	DocID string
	Page  int
	Start int
	End   int
	Text  string
}

// Region is an image's declared position on its page, in the page
// coordinate space reported by the extractor.
type Region struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageAsset is an image extracted from one page.
type ImageAsset struct {
	ID     string
	DocID  string
	Page   int
	Region Region
	Data   []byte
}

// ChunkImageLink associates an image with a chunk sharing its page or
// region. ChunkID is empty when the image is recorded unlinked (a page
// with zero chunks).
type ChunkImageLink struct {
	ChunkID string `json:"chunk_id,omitempty"`
	ImageID string `json:"image_id"`
}

// Unlinked reports whether the link records an image with no chunk.
func (l ChunkImageLink) Unlinked() bool {
	return l.ChunkID == ""
}

// ScoredChunk is one retrieval hit: a chunk, its similarity score and
// the images linked to it.
type ScoredChunk struct {
	Chunk  Chunk
	Score  float64
	Images []ImageAsset
}

// RetrievalResult is an ordered retrieval outcome, strictly descending
// by score.
type RetrievalResult struct {
	Query  string
	Chunks []ScoredChunk
}

// VerdictStatus is the outcome of a single guardrail stage.
type VerdictStatus string

const (
	VerdictPass   VerdictStatus = "pass"
	VerdictReject VerdictStatus = "reject"
	VerdictModify VerdictStatus = "modify"
)

// Verdict records one guardrail stage's decision. Warning is set when a
// runtime stage failure degraded to Pass.
type Verdict struct {
	Stage    string        `json:"stage"`
	Status   VerdictStatus `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	NewValue string        `json:"-"`
	Warning  string        `json:"warning,omitempty"`
}

// Answer is the final response for one query. Not persisted.
type Answer struct {
	ID                 string    `json:"id"`
	Text               string    `json:"text"`
	SupportingChunkIDs []string  `json:"supporting_chunk_ids"`
	ImageAssetIDs      []string  `json:"image_asset_ids"`
	Verdicts           []Verdict `json:"guardrail_flags"`
	Refused            bool      `json:"refused,omitempty"`
}

// IngestionReport summarises one ingestion run.
type IngestionReport struct {
	DocID           string
	Pages           int
	ChunksCreated   int
	ImagesExtracted int
	ImagesLinked    int
	Errors          []string
}

// Stats describes the current index contents.
type Stats struct {
	TotalDocs    int
	TotalChunks  int
	TotalImages  int
	TotalVectors int
}
