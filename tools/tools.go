//go:build tools

// Package tools pins code generators in go.mod so 'go install' and
// 'go generate' use consistent versions.
package tools

import (
	_ "github.com/dmarkham/enumer"
	_ "go.uber.org/mock/mockgen"
)
