package report

import "errors"

// ErrMalformedResult indicates a result file line that is not
// "<ids> #UTIL: <utility> #SUP: <support>".
var ErrMalformedResult = errors.New("malformed result line")
