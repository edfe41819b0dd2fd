package sqlite

import "errors"

var errBoom = errors.New("boom")
