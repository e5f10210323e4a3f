package memory

import "errors"

var (
	ErrCatalogNotLoaded = errors.New("catalog has not been loaded yet")
	ErrNilSnapshot      = errors.New("nil snapshot")
)
