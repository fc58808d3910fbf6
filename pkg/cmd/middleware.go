package cmd

// Middleware wraps a command, e.g. for logging or precondition checks.
type Middleware func(Command) Command

// Apply wraps c with mws in order, so the last middleware is the outermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
