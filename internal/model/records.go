package model

// Image format tags produced by the image classifier.
const (
	ImagePNG  = "png"
	ImageJPG  = "jpg"
	ImageWEBP = "webp"
	ImageAVIF = "avif"
	ImageSVG  = "svg"
	ImageGIF  = "gif"
	ImageICO  = "ico"
	ImageBMP  = "bmp"
	ImageData = "data"
	ImageNone = "none"
	ImageErr  = "err"
	ImageImg  = "img"
)

// ImageRecord describes one <img> element. Size is patched in by the probe
// enrichment pass and is nil until then.
type ImageRecord struct {
	Src    string `json:"src" yaml:"src"`
	Alt    string `json:"alt" yaml:"alt"`
	Title  string `json:"title" yaml:"title"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Type   string `json:"type" yaml:"type"`
	Size   *int64 `json:"size,omitempty" yaml:"size,omitempty"`
}

// TechSignature is one detected technology with its heuristic confidence (1-100).
type TechSignature struct {
	Name       string `json:"name" yaml:"name"`
	Category   string `json:"category" yaml:"category"`
	Icon       string `json:"icon" yaml:"icon"`
	Confidence int    `json:"confidence" yaml:"confidence"`
}

type FontSource string

const (
	FontGoogle  FontSource = "google"
	FontTypekit FontSource = "typekit"
	FontCustom  FontSource = "custom"
	FontSystem  FontSource = "system"
)

// FontRecord is the merged view of one font family. Weights and Styles are
// ordered sets.
type FontRecord struct {
	Family  string     `json:"family" yaml:"family"`
	Source  FontSource `json:"source" yaml:"source"`
	Weights []string   `json:"weights" yaml:"weights"`
	Styles  []string   `json:"styles" yaml:"styles"`
	URL     *string    `json:"url" yaml:"url"`
	CSSURL  *string    `json:"css_url" yaml:"css_url"`
}

// SchemaRecord is one validated JSON-LD item. IsValid is true exactly when
// Errors is empty.
type SchemaRecord struct {
	Type     string   `json:"type" yaml:"type"`
	Data     any      `json:"data" yaml:"data"`
	IsValid  bool     `json:"is_valid" yaml:"is_valid"`
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

type HeaderStatus string

const (
	StatusPass HeaderStatus = "pass"
	StatusWarn HeaderStatus = "warn"
	StatusFail HeaderStatus = "fail"
)

type SecurityHeader struct {
	Header         string       `json:"header" yaml:"header"`
	Value          *string      `json:"value" yaml:"value"`
	Status         HeaderStatus `json:"status" yaml:"status"`
	Recommendation string       `json:"recommendation" yaml:"recommendation"`
}
