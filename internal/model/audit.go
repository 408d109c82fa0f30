package model

// Audit is the combined report for one analyzed page.
type Audit struct {
	ID                string           `json:"id" yaml:"id"`
	URL               string           `json:"url" yaml:"url"`
	Mode              string           `json:"mode" yaml:"mode"`
	Source            string           `json:"source,omitempty" yaml:"source,omitempty"`
	Title             string           `json:"title" yaml:"title"`
	TitleLength       int              `json:"title_length" yaml:"title_length"`
	Description       string           `json:"description" yaml:"description"`
	DescriptionLength int              `json:"description_length" yaml:"description_length"`
	Canonical         string           `json:"canonical" yaml:"canonical"`
	Robots            string           `json:"robots" yaml:"robots"`
	Author            string           `json:"author" yaml:"author"`
	Language          string           `json:"language" yaml:"language"`
	Charset           string           `json:"charset" yaml:"charset"`
	Viewport          string           `json:"viewport" yaml:"viewport"`
	Headers           []Heading        `json:"headers" yaml:"headers"`
	Images            []ImageRecord    `json:"images" yaml:"images"`
	Links             []Link           `json:"links" yaml:"links"`
	Social            Social           `json:"social" yaml:"social"`
	Tech              []TechSignature  `json:"tech" yaml:"tech"`
	Security          []SecurityHeader `json:"security" yaml:"security"`
	Fonts             []FontRecord     `json:"fonts" yaml:"fonts"`
	Videos            []Video          `json:"videos" yaml:"videos"`
	Schemas           []SchemaRecord   `json:"schemas" yaml:"schemas"`
}

// PageInfo holds the plain SEO fields scraped from <head>.
type PageInfo struct {
	URL               string
	Title             string
	TitleLength       int
	Description       string
	DescriptionLength int
	Canonical         string
	Robots            string
	Author            string
	Language          string
	Charset           string
	Viewport          string
}

type Heading struct {
	Tag   string `json:"tag" yaml:"tag"`
	Text  string `json:"text" yaml:"text"`
	Order int    `json:"order" yaml:"order"`
}

type Link struct {
	Href       string `json:"href" yaml:"href"`
	Text       string `json:"text" yaml:"text"`
	Rel        string `json:"rel" yaml:"rel"`
	IsExternal bool   `json:"is_external" yaml:"is_external"`
	Status     int    `json:"status,omitempty" yaml:"status,omitempty"`
	StatusText string `json:"status_text,omitempty" yaml:"status_text,omitempty"`
	IsBroken   *bool  `json:"is_broken,omitempty" yaml:"is_broken,omitempty"`
}

type Social struct {
	OGTitle            string `json:"og_title" yaml:"og_title"`
	OGDescription      string `json:"og_description" yaml:"og_description"`
	OGImage            string `json:"og_image" yaml:"og_image"`
	OGURL              string `json:"og_url" yaml:"og_url"`
	OGType             string `json:"og_type" yaml:"og_type"`
	TwitterCard        string `json:"twitter_card" yaml:"twitter_card"`
	TwitterTitle       string `json:"twitter_title" yaml:"twitter_title"`
	TwitterDescription string `json:"twitter_description" yaml:"twitter_description"`
	TwitterImage       string `json:"twitter_image" yaml:"twitter_image"`
	TwitterSite        string `json:"twitter_site" yaml:"twitter_site"`
}

type Video struct {
	Type      string `json:"type" yaml:"type"`
	ID        string `json:"id" yaml:"id"`
	URL       string `json:"url" yaml:"url"`
	HasSchema bool   `json:"has_schema" yaml:"has_schema"`
}
