package crawl

import (
	"context"
	"log/slog"

	"github.com/nao1215/courtgrid/internal/fetch"
	"github.com/nao1215/courtgrid/internal/model"
)

// Depth constants for the four-level hierarchy. The depth of a node is
// the depth of the page its children come from.
const (
	depthStates         = 0
	depthDistricts      = 1
	depthEstablishments = 2
	depthJudges         = 3
)

// TableFetcher retrieves one report page. fetch.Fetcher satisfies it;
// tests substitute scripted implementations.
type TableFetcher interface {
	FetchTable(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Checkpoint is called every time a node settles so the driver can
// persist the tree and counter. A checkpoint failure aborts the pass:
// losing the ability to persist makes further fetching pointless.
type Checkpoint func(tree *model.Tree, counter int) error

// Crawler performs one resumable pass over the report hierarchy.
type Crawler struct {
	fetcher    TableFetcher
	leafSuffix string
	checkpoint Checkpoint
	logger     *slog.Logger

	// counter is the running count of judge records in the tree.
	counter int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLeafSuffix sets the query suffix appended to establishment URLs
// so the judge page skips its own challenge check.
func WithLeafSuffix(suffix string) Option {
	return func(c *Crawler) {
		c.leafSuffix = suffix
	}
}

// WithCheckpoint sets the persistence callback fired on node settle.
func WithCheckpoint(fn Checkpoint) Option {
	return func(c *Crawler) {
		if fn != nil {
			c.checkpoint = fn
		}
	}
}

// WithLogger sets the structured logger for crawl progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCrawler creates a crawler that fetches pages through fetcher.
func NewCrawler(fetcher TableFetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:    fetcher,
		checkpoint: func(*model.Tree, int) error { return nil },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl runs one pass over tree, resuming from whatever the tree
// already records. counter is the judge record count carried over from
// the previous snapshot; the updated count is returned alongside any
// pass-aborting error.
//
// Transient fetch failures never abort a pass: the failed node gets a
// sentinel child and its siblings continue. Structural errors,
// checkpoint failures, and context cancellation abort immediately.
func (c *Crawler) Crawl(ctx context.Context, tree *model.Tree, counter int) (int, error) {
	c.counter = counter

	if err := c.crawlStates(ctx, tree); err != nil {
		return c.counter, err
	}

	for _, state := range tree.States {
		if err := ctx.Err(); err != nil {
			return c.counter, err
		}
		if err := c.visit(ctx, tree, state, depthDistricts); err != nil {
			return c.counter, err
		}
	}
	return c.counter, nil
}

// crawlStates populates the tree's top level from the entry page.
// An already-populated, sentinel-free state list is reused as is.
func (c *Crawler) crawlStates(ctx context.Context, tree *model.Tree) error {
	hasSentinel := false
	for _, s := range tree.States {
		if s.ErrorFlag {
			hasSentinel = true
			break
		}
	}
	if len(tree.States) > 0 && !hasSentinel {
		return nil
	}

	result, err := c.fetcher.FetchTable(ctx, tree.RootURL)
	if err != nil {
		return err
	}
	if result.ErrorSentinel {
		c.logger.WarnContext(ctx, "entry page fetch failed, pass yields nothing",
			"url", tree.RootURL)
		tree.States = []*model.Node{model.NewSentinelNode(tree.RootURL)}
		return c.checkpoint(tree, c.counter)
	}

	tree.States = mergeRows(tree.States, result.Rows)
	c.logger.InfoContext(ctx, "state list captured", "states", len(tree.States))
	return c.checkpoint(tree, c.counter)
}

// visit fetches the children of node at the given depth and recurses
// until the judge level.
func (c *Crawler) visit(ctx context.Context, tree *model.Tree, node *model.Node, depth int) error {
	if node.Status == model.StatusDone || node.URL == "" || node.ErrorFlag {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	node.Status = model.StatusFetching

	target := node.URL
	if depth == depthJudges {
		target += c.leafSuffix
	}

	result, err := c.fetcher.FetchTable(ctx, target)
	if err != nil {
		node.Status = model.StatusPending
		return err
	}

	if result.ErrorSentinel {
		// Record the failure and stop this subtree; siblings continue.
		// The sentinel stands in only when nothing real was harvested
		// yet; an error row never overwrites recorded children.
		if onlySentinels(node.Children) {
			node.Children = []*model.Node{model.NewSentinelNode(target)}
		}
		node.Status = model.StatusError
		c.logger.WarnContext(ctx, "fetch failed, sentinel recorded",
			"url", node.URL, "depth", depth)
		return c.checkpoint(tree, c.counter)
	}

	if depth == depthJudges {
		return c.settleJudges(ctx, tree, node, result.Rows)
	}

	node.Children = mergeRows(node.Children, result.Rows)
	node.Status = model.StatusPending

	for _, child := range node.Children {
		if err := c.visit(ctx, tree, child, depth+1); err != nil {
			return err
		}
	}

	if node.Complete() {
		node.Status = model.StatusDone
	} else {
		node.Status = model.StatusPending
	}
	return c.checkpoint(tree, c.counter)
}

// settleJudges adopts the terminal judge rows beneath an establishment
// and marks the whole establishment done.
func (c *Crawler) settleJudges(ctx context.Context, tree *model.Tree, node *model.Node, rows []*model.Node) error {
	before := realChildCount(node.Children)

	node.Children = mergeRows(node.Children, rows)

	// Judge rows are terminal even when they carry links.
	for _, judge := range node.Children {
		judge.Status = model.StatusDone
	}
	node.Status = model.StatusDone

	c.counter += realChildCount(node.Children) - before
	c.logger.DebugContext(ctx, "establishment settled",
		"url", node.URL, "judges", len(node.Children), "counter", c.counter)
	return c.checkpoint(tree, c.counter)
}

// mergeRows merges freshly fetched rows into previously recorded ones.
//
// The merge never shrinks a recorded row set: the portal sometimes
// serves partially rendered tables with rows missing, and adopting a
// shorter list would silently discard harvested subtrees. When the
// fresh rows win, recorded subtree progress is carried over by URL so
// done descendants are not refetched.
func mergeRows(existing, fresh []*model.Node) []*model.Node {
	if onlySentinels(existing) {
		return fresh
	}
	if len(fresh) < len(existing) {
		return existing
	}

	byURL := make(map[string]*model.Node, len(existing))
	for _, old := range existing {
		if old.URL != "" {
			byURL[old.URL] = old
		}
	}
	for _, row := range fresh {
		if old, ok := byURL[row.URL]; ok && row.URL != "" {
			row.Children = old.Children
			row.Status = old.Status
		}
	}
	return fresh
}

// onlySentinels reports whether nodes is empty or holds nothing but
// error sentinels.
func onlySentinels(nodes []*model.Node) bool {
	for _, n := range nodes {
		if !n.ErrorFlag {
			return false
		}
	}
	return true
}

// realChildCount counts non-sentinel children.
func realChildCount(nodes []*model.Node) int {
	count := 0
	for _, n := range nodes {
		if !n.ErrorFlag {
			count++
		}
	}
	return count
}
