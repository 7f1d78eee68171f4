package device

import (
	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardsession/pkg/iso7816"
	"github.com/gregLibert/cardsession/pkg/reader"
)

// Options control how devices react to reader status changes.
type Options struct {
	ShareMode      reader.ShareMode
	Disposition    reader.Disposition
	Protocols      reader.Protocol
	AutoConnect    bool
	AutoDisconnect bool
	Predicates     reader.Predicates
	MaxChainLength int
	Logger         logrus.FieldLogger
}

// DefaultOptions connects in shared mode with any protocol, leaves the card
// in place on disconnect and follows insertions and removals automatically.
func DefaultOptions() Options {
	return Options{
		ShareMode:      reader.ShareShared,
		Disposition:    reader.LeaveCard,
		Protocols:      reader.ProtocolAny,
		AutoConnect:    true,
		AutoDisconnect: true,
		Predicates:     reader.DefaultPredicates{},
		MaxChainLength: iso7816.DefaultMaxChainLength,
		Logger:         logrus.StandardLogger(),
	}
}

// Option adjusts Options.
type Option func(*Options)

// WithShareMode sets the share mode used by Connect.
func WithShareMode(m reader.ShareMode) Option {
	return func(o *Options) { o.ShareMode = m }
}

// WithDisposition sets what happens to the card on Disconnect.
func WithDisposition(d reader.Disposition) Option {
	return func(o *Options) { o.Disposition = d }
}

// WithProtocols restricts the protocols offered on Connect.
func WithProtocols(p reader.Protocol) Option {
	return func(o *Options) { o.Protocols = p }
}

// WithAutoConnect toggles connecting when a card is detected.
func WithAutoConnect(on bool) Option {
	return func(o *Options) { o.AutoConnect = on }
}

// WithAutoDisconnect toggles disconnecting when a card leaves.
func WithAutoDisconnect(on bool) Option {
	return func(o *Options) { o.AutoDisconnect = on }
}

// WithPredicates replaces the insertion/removal rules.
func WithPredicates(p reader.Predicates) Option {
	return func(o *Options) { o.Predicates = p }
}

// WithMaxChainLength caps the continuation exchanges of one command.
func WithMaxChainLength(n int) Option {
	return func(o *Options) { o.MaxChainLength = n }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) { o.Logger = l }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Predicates == nil {
		o.Predicates = reader.DefaultPredicates{}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}
