package content

// PostType is the CMS custom type that holds blog posts.
const PostType = "posts"

// Document is a single CMS document as returned by the content API.
type Document struct {
	ID                   string   `json:"id"`
	UID                  string   `json:"uid"`
	Type                 string   `json:"type"`
	Lang                 string   `json:"lang"`
	Tags                 []string `json:"tags,omitempty"`
	FirstPublicationDate *string  `json:"first_publication_date"`
	LastPublicationDate  *string  `json:"last_publication_date"`
	Data                 PostData `json:"data"`
}

// PostData holds the fields of a post document.
type PostData struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Banner   Image     `json:"banner"`
	Author   string    `json:"author"`
	Content  []Section `json:"content"`
}

// Image is a CMS image field.
type Image struct {
	URL        string     `json:"url"`
	Alt        string     `json:"alt,omitempty"`
	Dimensions Dimensions `json:"dimensions,omitempty"`
}

// Dimensions of an image field, in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Section is one entry of the content group: a heading followed by rich text.
type Section struct {
	Heading string  `json:"heading"`
	Body    []Block `json:"body"`
}

// Block is a rich text block. Text is always present; Type is one of
// paragraph, heading1..heading6, list-item, o-list-item, preformatted, image.
type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`
	URL   string `json:"url,omitempty"`
	Alt   string `json:"alt,omitempty"`
}

// Span marks a styled range of a block's text, in rune offsets.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  string   `json:"type"`
	Data  SpanData `json:"data,omitempty"`
}

// SpanData carries hyperlink targets.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
}

// SearchResult is one page of a document search.
type SearchResult struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// HasNext reports whether another page follows this one.
func (r *SearchResult) HasNext() bool {
	return (r.NextPage != nil && *r.NextPage != "") || r.Page < r.TotalPages
}

// QueryOptions are shared by every lookup.
type QueryOptions struct {
	Lang string // "" uses the source default; "*" means every language
	Ref  string // "" uses the master ref; set for previews
}

// Query selects a page of documents of one type.
type Query struct {
	QueryOptions
	Type     string
	Page     int // 1-based
	PageSize int
}
