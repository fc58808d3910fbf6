// Package cmd is a transport-agnostic command core: a command has a name, a
// description and Run(ctx, invocation). Chat adapters parse input, look the
// command up in a Registry and put their own context into Invocation.Data.
package cmd

import "context"

// Invocation carries the arguments of one command call and an opaque payload
// set by the adapter.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
