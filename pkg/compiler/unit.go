package compiler

import (
	"io"
	"log/slog"
)

// EntryPoint is the function the driver runs after a successful compile.
const EntryPoint = "bleurgh_main"

// ItemKind tells declarations and definitions apart.
type ItemKind int

const (
	KindDeclaration ItemKind = iota
	KindDefinition
)

func (k ItemKind) String() string {
	if k == KindDefinition {
		return "definition"
	}
	return "declaration"
}

// Item is one top-level production accepted by the parser.
type Item struct {
	Name     string
	Params   []string
	Kind     ItemKind
	Pos      Position
	Function Function
}

// Unit is a compilation unit: the global scope and the backend that owns the
// functions bound in it. One Unit may parse several sources in sequence, as
// the console does; symbols persist between calls.
type Unit struct {
	scope    *Scope
	backend  Backend
	log      *slog.Logger
	items    []Item
	warnings []*Diagnostic
}

// Option configures a Unit.
type Option func(*Unit)

// WithLogger routes parser tracing to l.
func WithLogger(l *slog.Logger) Option {
	return func(u *Unit) {
		if l != nil {
			u.log = l
		}
	}
}

// NewUnit returns an empty unit that builds code with backend.
func NewUnit(backend Backend, opts ...Option) *Unit {
	u := &Unit{
		scope:   NewScope(),
		backend: backend,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Unit) Scope() *Scope { return u.scope }

func (u *Unit) Backend() Backend { return u.backend }

// Items returns every item accepted so far, across all Parse calls.
func (u *Unit) Items() []Item { return u.items }

// Warnings returns the verification warnings collected so far.
func (u *Unit) Warnings() []*Diagnostic { return u.warnings }

// Parse consumes the whole input as a sequence of items. It returns the
// items accepted before the first fatal diagnostic along with that
// diagnostic. Input holding no item at all is an error.
func (u *Unit) Parse(cur *Cursor) ([]Item, error) {
	p := newParser(u, cur)
	var items []Item
	for {
		cur.SkipWhitespace()
		if cur.AtEOF() {
			break
		}
		item, err := p.parseItem()
		if err != nil {
			return items, err
		}
		items = append(items, item)
		u.items = append(u.items, item)
	}
	if len(items) == 0 {
		return nil, p.expectedItem()
	}
	return items, nil
}

// ParseSource is Parse over a fresh cursor.
func (u *Unit) ParseSource(file, src string) ([]Item, error) {
	return u.Parse(NewCursor(file, src))
}

// ParseExpression parses a single expression into b. It is the entry point
// used by tests and tooling that evaluate bare expressions.
func (u *Unit) ParseExpression(cur *Cursor, b Builder) (Value, error) {
	return newParser(u, cur).parseExpression(b)
}

func (p *parser) parseItem() (Item, error) {
	decl, err := p.parseDefinition()
	if err == nil {
		p.log.Info("extracted function definition", slog.String("name", decl.name))
		return decl.item(KindDefinition), nil
	}
	if isFatal(err) {
		return Item{}, err
	}

	decl, err = p.extractDeclaration()
	if err == nil {
		p.log.Info("extracted function declaration", slog.String("name", decl.name))
		return decl.item(KindDeclaration), nil
	}
	if isFatal(err) {
		return Item{}, err
	}
	return Item{}, p.expectedItem()
}

func (p *parser) expectedItem() *Diagnostic {
	d := p.fatal(ErrExpectedItem, "Expecting function declaration or definition!")
	if p.furthest != nil && p.furthest.Offset >= d.Offset {
		d.Cause = p.furthest
	}
	return d
}

func (d *declaration) item(kind ItemKind) Item {
	return Item{Name: d.name, Params: d.params, Kind: kind, Pos: d.pos, Function: d.fn}
}
