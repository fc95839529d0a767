package pipeline

import (
	"context"
	"errors"

	"github.com/nao1215/courtgrid/internal/auth"
	"github.com/nao1215/courtgrid/internal/crawl"
)

// ErrNoSession is returned by the crawl step when no authenticated
// session is available, which means the steps were wired in the wrong
// order.
var ErrNoSession = errors.New("crawl step requires an authenticated session")

// AuthenticateStep acquires the portal session for a pass. It is a
// no-op when the run already carries a live session.
type AuthenticateStep struct {
	authenticator *auth.Authenticator
}

// NewAuthenticateStep creates the session acquisition step.
func NewAuthenticateStep(authenticator *auth.Authenticator) *AuthenticateStep {
	return &AuthenticateStep{authenticator: authenticator}
}

// Name returns the step's name.
func (s *AuthenticateStep) Name() string {
	return "authenticate"
}

// Do acquires a session unless the run already has one.
func (s *AuthenticateStep) Do(ctx context.Context, run *Run) error {
	if run.Session != nil {
		return nil
	}
	session, err := s.authenticator.Acquire(ctx)
	if err != nil {
		return err
	}
	run.Session = session
	return nil
}

// CrawlStep runs one crawl pass over the run's tree.
//
// The fetcher is built per pass from the run's session rather than once
// at wiring time, because the runner may replace the session between
// passes.
type CrawlStep struct {
	fetcherFor func(*auth.Session) crawl.TableFetcher
	opts       []crawl.Option
}

// NewCrawlStep creates the crawl step. fetcherFor builds the page
// fetcher riding on the pass's session; opts configure the crawler.
func NewCrawlStep(fetcherFor func(*auth.Session) crawl.TableFetcher, opts ...crawl.Option) *CrawlStep {
	return &CrawlStep{
		fetcherFor: fetcherFor,
		opts:       opts,
	}
}

// Name returns the step's name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs one crawl pass and carries the updated counter back into the
// run.
func (s *CrawlStep) Do(ctx context.Context, run *Run) error {
	if run.Session == nil {
		return ErrNoSession
	}

	crawler := crawl.NewCrawler(s.fetcherFor(run.Session), s.opts...)
	counter, err := crawler.Crawl(ctx, run.Tree, run.Counter)
	run.Counter = counter
	return err
}
