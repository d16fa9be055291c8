package rewriter

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/markup"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/htmlutil"
	"github.com/rohmanhakim/webstory-importer/pkg/urlutil"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

/*
Responsibilities

- Find raw asset URLs in stored page markup
- Resolve them to local assets
- Replace each URL attribute with a symbolic asset reference

Rewrite Policies
- An element whose asset cannot be fetched is left exactly as it was
- Elements without a raw URL are skipped, so a second pass changes nothing
- Unchanged pages are returned byte-identical
- Non-page blocks pass through untouched
- Any failure other than a fetch failure aborts the pass
*/
type Rewriter struct {
	metadataSink metadata.MetadataSink
	resolver     assets.Resolver
	concurrency  int
}

// NewRewriter returns a rewriter resolving at most concurrency distinct
// URLs at once. Values below one mean sequential resolution.
func NewRewriter(metadataSink metadata.MetadataSink, resolver assets.Resolver, concurrency int) *Rewriter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Rewriter{
		metadataSink: metadataSink,
		resolver:     resolver,
		concurrency:  concurrency,
	}
}

// RewriteImages replaces amp-img src attributes with data-wagtail-image-id.
func (r *Rewriter) RewriteImages(ctx context.Context, blocks []page.Block, param RewriteParam) ([]page.Block, bool, failure.ClassifiedError) {
	return r.rewrite(ctx, blocks, param, collectImages, markup.ImageIDAttr)
}

// RewriteVideos replaces the src of amp-video elements and of their source
// children with data-wagtail-media-id. Each URL is resolved independently.
func (r *Rewriter) RewriteVideos(ctx context.Context, blocks []page.Block, param RewriteParam) ([]page.Block, bool, failure.ClassifiedError) {
	return r.rewrite(ctx, blocks, param, collectVideos, markup.MediaIDAttr)
}

type collector func(doc *goquery.Document, blockIndex int, param RewriteParam) []target

func (r *Rewriter) rewrite(
	ctx context.Context,
	blocks []page.Block,
	param RewriteParam,
	collect collector,
	refAttr string,
) ([]page.Block, bool, failure.ClassifiedError) {
	containers := make(map[int]*html.Node)
	var targets []target

	for i, block := range blocks {
		value, ok := block.Page()
		if !ok || value.HTML.IsEmpty() {
			continue
		}
		source := value.HTML.Source()
		// cheap precheck keeps untouched pages byte-identical without a parse
		if !strings.Contains(source, "src") {
			continue
		}
		doc, container, err := htmlutil.ParseFragment(source)
		if err != nil {
			continue
		}
		found := collect(doc, i, param)
		if len(found) == 0 {
			continue
		}
		containers[i] = container
		targets = append(targets, found...)
	}
	if len(targets) == 0 {
		return blocks, false, nil
	}

	resolved, err := r.resolveAll(ctx, targets, param)
	if err != nil {
		return blocks, false, err
	}

	changedBlocks := make(map[int]bool)
	for _, t := range targets {
		res := resolved[t.url]
		if !res.ok {
			continue
		}
		htmlutil.ReplaceAttr(t.node, "src", refAttr, strconv.FormatInt(res.asset.ID, 10))
		htmlutil.RemoveAttr(t.node, "srcset")
		changedBlocks[t.blockIndex] = true
	}
	if len(changedBlocks) == 0 {
		return blocks, false, nil
	}

	out := make([]page.Block, len(blocks))
	copy(out, blocks)
	for i := range changedBlocks {
		rendered, renderErr := htmlutil.RenderChildren(containers[i])
		if renderErr != nil {
			rewriteErr := &RewriteError{Message: renderErr.Error(), Cause: ErrCauseRenderFailure}
			r.metadataSink.RecordError(
				time.Now(),
				"rewriter",
				"Rewriter.rewrite",
				mapRewriteErrorToMetadataCause(rewriteErr),
				rewriteErr.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrURL, param.BaseURL),
				},
			)
			return blocks, false, rewriteErr
		}
		out[i] = blocks[i].WithPageHTML(rendered)
	}
	return out, true, nil
}

// resolveAll resolves each distinct URL once. Fetch failures become
// unresolved entries; any other failure cancels the remaining work.
func (r *Rewriter) resolveAll(ctx context.Context, targets []target, param RewriteParam) (map[string]resolution, failure.ClassifiedError) {
	var (
		mu       sync.Mutex
		resolved = make(map[string]resolution)
		firstErr failure.ClassifiedError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	seen := make(map[string]bool)
	for _, t := range targets {
		if seen[t.url] {
			continue
		}
		seen[t.url] = true

		g.Go(func() error {
			asset, err := r.resolveTarget(gctx, t, param)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				resolved[t.url] = resolution{asset: asset, ok: true}
				return nil
			}
			var fetchErr *fetcher.FetchError
			if errors.As(err, &fetchErr) {
				resolved[t.url] = resolution{}
				return nil
			}
			if firstErr == nil {
				firstErr = err
			}
			return err
		})
	}
	_ = g.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return resolved, nil
}

func (r *Rewriter) resolveTarget(ctx context.Context, t target, param RewriteParam) (assets.Asset, failure.ClassifiedError) {
	if t.video != nil {
		return r.resolver.ResolveVideo(ctx, *t.video)
	}
	return r.resolver.ResolveImage(ctx, assets.ImageRequest{
		URL:        t.url,
		Title:      nodeTitle(t.node),
		StoryTitle: param.StoryTitle,
	})
}

func collectImages(doc *goquery.Document, blockIndex int, param RewriteParam) []target {
	var out []target
	doc.Find("amp-img[src]").Each(func(_ int, s *goquery.Selection) {
		if t, ok := newTarget(s.Get(0), blockIndex, param); ok {
			out = append(out, t)
		}
	})
	return out
}

func collectVideos(doc *goquery.Document, blockIndex int, param RewriteParam) []target {
	var out []target
	doc.Find("amp-video").Each(func(_ int, video *goquery.Selection) {
		videoNode := video.Get(0)
		width, _ := strconv.Atoi(video.AttrOr("width", ""))
		height, _ := strconv.Atoi(video.AttrOr("height", ""))
		poster := ""
		if raw, ok := video.Attr("poster"); ok {
			poster = fetchableURL(param.BaseURL, raw)
		}

		addSource := func(n *html.Node) {
			t, ok := newTarget(n, blockIndex, param)
			if !ok {
				return
			}
			t.video = &assets.VideoRequest{
				URL:        t.url,
				Title:      nodeTitle(videoNode),
				StoryTitle: param.StoryTitle,
				Width:      width,
				Height:     height,
				PosterURL:  poster,
			}
			out = append(out, t)
		}

		if _, ok := video.Attr("src"); ok {
			addSource(videoNode)
		}
		video.Find("source[src]").Each(func(_ int, source *goquery.Selection) {
			addSource(source.Get(0))
		})
	})
	return out
}

func newTarget(n *html.Node, blockIndex int, param RewriteParam) (target, bool) {
	raw, ok := htmlutil.Attr(n, "src")
	if !ok {
		return target{}, false
	}
	u := fetchableURL(param.BaseURL, raw)
	if u == "" {
		return target{}, false
	}
	return target{blockIndex: blockIndex, node: n, url: u}, true
}

// fetchableURL normalizes raw against base and returns "" unless the result
// is an http(s) URL.
func fetchableURL(base, raw string) string {
	u := urlutil.Normalize(base, raw)
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return ""
}

func nodeTitle(n *html.Node) string {
	if title, ok := htmlutil.Attr(n, "title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if alt, ok := htmlutil.Attr(n, "alt"); ok {
		return strings.TrimSpace(alt)
	}
	return ""
}
