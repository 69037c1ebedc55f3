package jshost

import "errors"

var (
	ErrInvalidNamespace  = errors.New("invalid cookies namespace")
	ErrNamespaceNotFound = errors.New("cookies namespace not defined by host script")
	ErrMethodNotDefined  = errors.New("cookies method not defined")
	ErrHostException     = errors.New("host script threw")
	ErrPromiseRejected   = errors.New("host promise rejected")
	ErrUnserializable    = errors.New("host result is not JSON serializable")
	ErrRuntimeClosed     = errors.New("js runtime closed")
)
