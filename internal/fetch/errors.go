package fetch

import "errors"

// ErrUnexpectedShape is returned when a page downloads cleanly but its
// structure does not match the expected report layout, for example a
// missing report table or a missing header row. This usually means the
// portal changed its markup and the parser needs updating, so it is not
// retried as a transient failure.
var ErrUnexpectedShape = errors.New("page does not match expected report layout")
