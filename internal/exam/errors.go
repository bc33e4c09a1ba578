package exam

import "errors"

// ErrNotFound is matched by errors.Is when a test, its questions or its
// review data do not exist on the portal.
var ErrNotFound = errors.New("not found")
