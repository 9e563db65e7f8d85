package services

import "errors"

// ErrUnauthenticated means the context carries no verified owner.
var ErrUnauthenticated = errors.New("unauthenticated")
