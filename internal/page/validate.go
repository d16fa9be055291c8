package page

// Validate checks the fields a story page cannot be saved without. Each
// image may be satisfied by a stored asset or by its original URL.
func (p *StoryPage) Validate() error {
	fields := make(map[string]string)
	if p.PublisherLogo.IsZero() {
		fields[FieldPublisherLogo] = "A publisher logo must be provided."
	}
	if p.PosterPortrait.IsZero() {
		fields[FieldPosterImage] = "A poster image must be provided."
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
