package replicate

import "time"

// HTTPRequestTimeout is the default timeout for all HTTP requests to the
// management API. The original tooling had no per-call timeout at all;
// this bound closes that gap.
const HTTPRequestTimeout = 60 * time.Second
