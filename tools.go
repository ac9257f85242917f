//go:build tools
// +build tools

// Package tools pins mockgen so `go generate` works on a fresh checkout.
package chat_session

import (
	_ "go.uber.org/mock/mockgen"
)
