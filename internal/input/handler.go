package input

// Handler applies viewer commands.
type Handler interface {
	Handle(cmd Command) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(cmd Command) error

func (f HandlerFunc) Handle(cmd Command) error {
	return f(cmd)
}
