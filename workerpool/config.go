package workerpool

import (
	"log"
	"os"
	"runtime"
)

// Config contains all configuration options for the worker pool
type Config struct {
	// NumWorkers is the number of worker goroutines launched by Start.
	// If 0, defaults to runtime.NumCPU()
	NumWorkers int

	// StopOnError makes the first handler error (or panic) stop the pool.
	// Remaining workers are cancelled and Wait returns that error.
	// By default handler errors are counted and reported, and work continues.
	StopOnError bool

	// PanicHandler is called when a handler panics.
	// If nil, the panic and its stack are written to Logger.
	PanicHandler func(interface{})

	// ErrorHandler is called with every error returned by the handler.
	// If nil, errors are written to Logger.
	ErrorHandler func(error)

	// OnWorkerStart is called when a worker starts
	// Useful for initialization, logging, or tracing
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops
	// Useful for cleanup, logging, or tracing
	OnWorkerStop func(workerID int)

	// Logger receives pool lifecycle messages, recovered panics and handler
	// errors that have no handler. Defaults to stderr.
	Logger *log.Logger
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		NumWorkers: 0, // will be set to runtime.NumCPU()
		Logger:     log.New(os.Stderr, "workerpool: ", log.LstdFlags),
	}
}

// validate checks the configuration and fills in derived defaults
func (c *Config) validate() error {
	if c.NumWorkers < 0 {
		return errInvalidConfig("NumWorkers must be >= 0")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = runtime.NumCPU()
	}
	if c.Logger == nil {
		return errInvalidConfig("Logger must not be nil")
	}
	return nil
}

// Option configures a Pool.
type Option func(*Config)

// WithNumWorkers sets the number of workers launched by Start.
func WithNumWorkers(n int) Option {
	return func(c *Config) {
		c.NumWorkers = n
	}
}

// WithStopOnError stops the pool on the first handler error.
func WithStopOnError(stop bool) Option {
	return func(c *Config) {
		c.StopOnError = stop
	}
}

// WithPanicHandler sets the function called with recovered handler panics.
func WithPanicHandler(handler func(interface{})) Option {
	return func(c *Config) {
		c.PanicHandler = handler
	}
}

// WithErrorHandler sets the function called with handler errors.
func WithErrorHandler(handler func(error)) Option {
	return func(c *Config) {
		c.ErrorHandler = handler
	}
}

// WithWorkerHooks sets the worker start and stop hooks. Either may be nil.
func WithWorkerHooks(onStart, onStop func(workerID int)) Option {
	return func(c *Config) {
		c.OnWorkerStart = onStart
		c.OnWorkerStop = onStop
	}
}

// WithLogger replaces the pool logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
