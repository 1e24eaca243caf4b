package repos

import "errors"

var ErrUnknownCounter = errors.New("repos: unknown counter column")
