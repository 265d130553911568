package util

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPoolExhausted
	KindPageNotFound
	KindNotPinned
	KindPagePinned
	KindStoreIO
	KindFileFull
)

var kindNames = map[ErrorKind]string{
	KindUnknown:       "unknown",
	KindPoolExhausted: "pool exhausted",
	KindPageNotFound:  "page not found",
	KindNotPinned:     "page not pinned",
	KindPagePinned:    "page pinned",
	KindStoreIO:       "store io",
	KindFileFull:      "file full",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. Matching is by kind, so any CacheError of the
// same kind matches regardless of its op or message.
var (
	ErrPoolExhausted = &CacheError{Kind: KindPoolExhausted, Message: "buffer pool full and all pages pinned"}
	ErrPageNotFound  = &CacheError{Kind: KindPageNotFound, Message: "page not resident in buffer pool"}
	ErrNotPinned     = &CacheError{Kind: KindNotPinned, Message: "page is not pinned"}
	ErrPagePinned    = &CacheError{Kind: KindPagePinned, Message: "page is pinned"}
	ErrStoreIO       = &CacheError{Kind: KindStoreIO, Message: "page store failure"}
	ErrFileFull      = &CacheError{Kind: KindFileFull, Message: "not enough free pages in file"}
)

func NewError(kind ErrorKind, op, message string, err error) *CacheError {
	return &CacheError{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

func (e *CacheError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func (e *CacheError) Is(target error) bool {
	t, ok := target.(*CacheError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first CacheError in err's chain.
func KindOf(err error) ErrorKind {
	var ce *CacheError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

type CacheError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}
