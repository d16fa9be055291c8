package mdconvert

// Representation

type ConversionResult struct {
	markdownContent []byte
	linkRefs        []LinkRef
}

func NewConversionResult(
	markdownContent []byte,
	linkRefs []LinkRef,
) ConversionResult {
	return ConversionResult{
		markdownContent: markdownContent,
		linkRefs:        linkRefs,
	}
}

func (c *ConversionResult) GetMarkdownContent() []byte {
	return c.markdownContent
}

// GetLinkRefs lists every link, image and video URL of the story in
// document order.
func (c *ConversionResult) GetLinkRefs() []LinkRef {
	return c.linkRefs
}

type LinkKind string

const (
	KindNavigation LinkKind = "navigation"
	KindImage      LinkKind = "image"
	KindMedia      LinkKind = "media"
	KindAnchor     LinkKind = "anchor"
)

type LinkRef struct {
	raw    string
	kind   LinkKind
	pageID string
}

func NewLinkRef(
	raw string,
	kind LinkKind,
	pageID string,
) LinkRef {
	return LinkRef{
		raw:    raw,
		kind:   kind,
		pageID: pageID,
	}
}

func (l *LinkRef) GetRaw() string {
	return l.raw
}

func (l *LinkRef) GetKind() LinkKind {
	return l.kind
}

// GetPageID is the story page the reference appears on.
func (l *LinkRef) GetPageID() string {
	return l.pageID
}
