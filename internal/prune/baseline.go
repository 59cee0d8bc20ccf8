package prune

// BaselineCache maps a normalized tag to the computed style of a bare element
// of that tag. One cache belongs to one serialization run.
type BaselineCache map[string]StyleSnapshot

// BaselineProvider measures and memoizes default styles per tag.
type BaselineProvider struct {
	host   Host
	cache  BaselineCache
	misses int
}

// NewBaselineProvider returns a provider with an empty cache.
func NewBaselineProvider(host Host) *BaselineProvider {
	return &BaselineProvider{host: host, cache: make(BaselineCache)}
}

// Baseline returns the computed style of a freshly created, unstyled element
// of tag. Custom elements resolve to FallbackTag. The first request per
// normalized tag measures through the host; later requests hit the cache.
func (p *BaselineProvider) Baseline(tag string) StyleSnapshot {
	tag = NormalizeTag(tag)
	if s, ok := p.cache[tag]; ok {
		return s
	}
	s := p.measure(tag)
	p.cache[tag] = s
	p.misses++
	return s
}

// measure attaches a transient element, captures its style and always
// detaches it, even if the host panics mid-measurement.
func (p *BaselineProvider) measure(tag string) StyleSnapshot {
	el := p.host.CreateElement(tag)
	p.host.Attach(el)
	defer p.host.Detach(el)
	return el.ComputedStyle()
}

// Misses is the number of baselines measured so far.
func (p *BaselineProvider) Misses() int { return p.misses }

// Cached reports whether tag already has a baseline in this run.
func (p *BaselineProvider) Cached(tag string) bool {
	_, ok := p.cache[NormalizeTag(tag)]
	return ok
}
