package codeobj

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/joshuapare/codeobjkit/internal/lasterr"
	"github.com/joshuapare/codeobjkit/internal/logger"
	"github.com/joshuapare/codeobjkit/internal/mdtree"
	"github.com/joshuapare/codeobjkit/internal/mmfile"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Node is a view of one metadata node, valid while its CodeObj is open.
type Node = mdtree.Node

// CodeObj is an opened code object.
type CodeObj struct {
	mu sync.Mutex

	id   string
	name string
	kind types.DataKind
	data []byte
	file *mmfile.File // nil for OpenBuffer

	opts    types.OpenOptions
	opener  comgr.Opener
	actor   comgr.Actor
	workDir string
	log     *slog.Logger

	errs lasterr.Slot
	sess *mdtree.Session

	artifact comgr.Artifact
	openErr  error
	closed   bool
}

// OpenFile maps the file at path read-only. The caller must call Close.
func OpenFile(path string, options ...Option) (*CodeObj, error) {
	s := newSettings(options)
	f, err := mmfile.Open(path, s.maxSize)
	if err != nil {
		return nil, types.Errorf(types.ErrProvider, "open %s: %w", path, err)
	}
	if f.Len() == 0 {
		_ = f.Close()
		return nil, types.Errorf(types.ErrEmptyBuffer, "%s", path)
	}
	if s.name == "" {
		s.name = filepath.Base(path)
	}
	return newCodeObj(f.Bytes(), f, s), nil
}

// OpenBuffer wraps a copy of buf.
func OpenBuffer(buf []byte, options ...Option) (*CodeObj, error) {
	if len(buf) == 0 {
		return nil, types.ErrEmptyBuffer
	}
	s := newSettings(options)
	if s.name == "" {
		s.name = "buffer"
	}
	return newCodeObj(bytes.Clone(buf), nil, s), nil
}

func newCodeObj(data []byte, f *mmfile.File, s settings) *CodeObj {
	base := s.log
	if base == nil {
		base = logger.L
	}
	c := &CodeObj{
		id:      uuid.NewString(),
		name:    s.name,
		kind:    s.kind,
		data:    data,
		file:    f,
		opts:    s.opts,
		opener:  s.opener,
		actor:   s.actor,
		workDir: s.workDir,
	}
	c.log = base.With("artifact", c.id, "name", c.name)
	c.sess = &mdtree.Session{Errs: &c.errs, Opts: c.opts}
	c.log.Debug("code object opened", "kind", c.kind.String(), "size", len(data))
	return c
}

// ID is the session identifier attached to every log record of this object.
func (c *CodeObj) ID() string { return c.id }

// Name is the input object's name.
func (c *CodeObj) Name() string { return c.name }

// Kind is the data kind the object was opened with.
func (c *CodeObj) Kind() types.DataKind { return c.kind }

// Size is the length of the input in bytes.
func (c *CodeObj) Size() int { return len(c.data) }

// GetLastError drains the last-error slot. After a success, or a second call,
// it reports types.StatusSuccess.
func (c *CodeObj) GetLastError() (types.Status, string) {
	return c.errs.Drain()
}

// Close releases the input. Node views obtained from Metadata must not be
// used afterwards. Close is idempotent.
func (c *CodeObj) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.artifact = nil
	c.data = nil
	c.log.Debug("code object closed")
	if c.file != nil {
		return c.file.Close()
	}
	return nil
}

func (c *CodeObj) record(err error) error {
	c.errs.Record(err)
	return err
}

func (c *CodeObj) ensureOpen() error {
	if c.closed {
		return c.record(types.ErrClosed)
	}
	return nil
}

// open runs the opener once and caches its result.
func (c *CodeObj) open() (comgr.Artifact, error) {
	if c.artifact != nil || c.openErr != nil {
		return c.artifact, c.openErr
	}
	a, err := c.opener(c.data, c.kind)
	if err != nil {
		c.openErr = fmt.Errorf("open %s: %w", c.name, err)
		c.log.Warn("opener failed", "err", err)
		return nil, c.openErr
	}
	c.artifact = a
	return a, nil
}

// Metadata returns the root of the metadata tree. The root must be a map;
// any other root yields an invalid node and an error.
func (c *CodeObj) Metadata() (Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata()
}

func (c *CodeObj) metadata() (Node, error) {
	if err := c.ensureOpen(); err != nil {
		return Node{}, err
	}
	a, err := c.open()
	if err != nil {
		return Node{}, c.record(err)
	}
	raw, err := a.Metadata()
	if err != nil {
		return Node{}, c.record(types.Provider("get metadata", err))
	}
	root := mdtree.NewRoot(raw, c.sess)
	if k := root.Kind(); k != comgr.KindMap {
		return Node{}, c.record(types.Errorf(types.ErrWrongKind, "metadata root is %s, want map", k))
	}
	return root, nil
}
