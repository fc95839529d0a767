// Package crawl walks the four-level report hierarchy and accumulates
// results into a resumable tree.
//
// The descent is state, district, court establishment, judge. Each
// level is one page fetch; the judge level is terminal and its page is
// requested with the pre-validated challenge suffix. The crawler is
// strictly sequential: the portal session is single-threaded on the
// server side, so concurrent fetches would corrupt each other's
// responses.
//
// The tree is the unit of resumption. A pass skips every subtree that
// is already done, refetches pages beneath unfinished nodes, and merges
// fresh rows into recorded ones without ever shrinking a recorded row
// set. A checkpoint callback fires every time a node settles so the
// driver can persist mid-pass progress.
package crawl
