package education

import "errors"

var (
	ErrContentNotFound = errors.New("educational content not found")
	ErrInvalidCategory = errors.New("invalid content category")
	ErrTitleRequired   = errors.New("english title is required")
	ErrBodyRequired    = errors.New("english body is required")
)
