package codeobj

import (
	"log/slog"

	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Option configures OpenFile and OpenBuffer.
type Option func(*settings)

type settings struct {
	kind    types.DataKind
	name    string
	opener  comgr.Opener
	actor   comgr.Actor
	log     *slog.Logger
	opts    types.OpenOptions
	workDir string
	maxSize int64
}

func newSettings(options []Option) settings {
	s := settings{kind: types.DataKindRelocatable}
	for _, o := range options {
		o(&s)
	}
	s.opts = s.opts.WithDefaults()
	if s.opener == nil {
		s.opener = NewOpener(s.opts)
	}
	return s
}

// WithDataKind sets the kind of the input. The default is
// types.DataKindRelocatable.
func WithDataKind(kind types.DataKind) Option {
	return func(s *settings) { s.kind = kind }
}

// WithName names the input object for tools and logs. OpenFile defaults to
// the file's base name.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithOpener replaces the default opener.
func WithOpener(opener comgr.Opener) Option {
	return func(s *settings) { s.opener = opener }
}

// WithActor sets the actor used by the assembly and compile methods.
func WithActor(actor comgr.Actor) Option {
	return func(s *settings) { s.actor = actor }
}

// WithLogger sets the base logger. The default is logger.L at open time.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithOptions sets the decode options.
func WithOptions(opts types.OpenOptions) Option {
	return func(s *settings) { s.opts = opts }
}

// WithWorkDir sets ActionInfo.WorkingDirectory for actor calls.
func WithWorkDir(dir string) Option {
	return func(s *settings) { s.workDir = dir }
}

// WithMaxFileSize makes OpenFile reject larger files.
func WithMaxFileSize(n int64) Option {
	return func(s *settings) { s.maxSize = n }
}
