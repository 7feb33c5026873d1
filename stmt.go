package oci

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// maxParameters limits the number of binds on one statement
const maxParameters = 65535

// Statement owns a prepared statement handle together with every Bind,
// Define and RowCursor created from it. It is not safe for concurrent
// use. After Close, all objects obtained from the statement fail with a
// StateError.
type Statement struct {
	lib    CallInterface
	handle Handle
	query  string
	opts   Options
	logger hclog.Logger

	placeholders *Placeholders
	stmtType     StatementType
	typeKnown    bool

	binds  []*Bind
	cursor *RowCursor

	descriptors map[Handle]DescriptorKind
	tempLobs    map[Handle]bool

	executions int
	closed     bool
}

// NewStatement wraps a prepared statement handle. query must be the text
// the handle was prepared from; it is scanned for placeholders so binds
// can be validated before any library call.
func NewStatement(lib CallInterface, handle Handle, query string, opts ...Option) (*Statement, error) {
	if lib == nil {
		return nil, argumentError("NewStatement", "lib", "nil call interface")
	}
	if handle == NullHandle {
		return nil, argumentError("NewStatement", "handle", "null statement handle")
	}
	o, err := buildOptions(DefaultOptions(), opts)
	if err != nil {
		return nil, err
	}
	s := &Statement{
		lib:          lib,
		handle:       handle,
		query:        query,
		opts:         o,
		logger:       o.Logger.Named("stmt"),
		placeholders: ParsePlaceholders(query),
		descriptors:  make(map[Handle]DescriptorKind),
		tempLobs:     make(map[Handle]bool),
	}
	s.logger.Trace("statement created", "placeholders", s.placeholders.Count)
	return s, nil
}

// Handle returns the underlying statement handle
func (s *Statement) Handle() Handle { return s.handle }

// Query returns the statement text
func (s *Statement) Query() string { return s.query }

// Placeholders returns the placeholders found in the statement text
func (s *Statement) Placeholders() *Placeholders { return s.placeholders }

// Options returns the statement's effective options
func (s *Statement) Options() Options { return s.opts }

func (s *Statement) checkOpen(op string) error {
	if s.closed {
		return &StateError{Op: op, State: "statement closed"}
	}
	return nil
}

// StatementType returns the library's classification of the statement.
// The value is read once and cached.
func (s *Statement) StatementType() (StatementType, error) {
	if err := s.checkOpen("StatementType"); err != nil {
		return StmtUnknown, err
	}
	if s.typeKnown {
		return s.stmtType, nil
	}
	t, st := s.lib.StatementType(s.handle)
	if err := checkStatus(s.lib, "OCIAttrGet(STMT_TYPE)", st); err != nil {
		return StmtUnknown, err
	}
	s.stmtType, s.typeKnown = t, true
	s.logger.Trace("statement type", "type", t)
	return t, nil
}

// Execute runs the statement iterations times. With iterations <= 0 the
// count is derived from the binds: the longest array bind for DML, one
// otherwise. Queries should use ExecuteReader.
func (s *Statement) Execute(iterations int) (*Result, error) {
	if err := s.checkOpen("Execute"); err != nil {
		return nil, err
	}
	typ, err := s.StatementType()
	if err != nil {
		return nil, err
	}
	n, err := s.iterations(typ, iterations)
	if err != nil {
		return nil, err
	}
	if err := s.detachCursor(); err != nil {
		return nil, err
	}
	if err := s.execute(uint32(n), ExecDefault); err != nil {
		return nil, err
	}
	count, st := s.lib.RowCount(s.handle)
	if err := checkStatus(s.lib, "OCIAttrGet(ROW_COUNT)", st); err != nil {
		return nil, err
	}
	return &Result{rowsAffected: int64(count), iterations: n, stmtType: typ}, nil
}

// ExecuteReader executes a query and returns a cursor over its rows.
// Defines may be added to the cursor until the first Read; columns left
// undefined are defined from the described select list.
func (s *Statement) ExecuteReader() (*RowCursor, error) {
	if err := s.checkOpen("ExecuteReader"); err != nil {
		return nil, err
	}
	typ, err := s.StatementType()
	if err != nil {
		return nil, err
	}
	if typ != StmtSelect {
		return nil, &StateError{Op: "ExecuteReader", State: fmt.Sprintf("statement type %d is not a query", typ)}
	}
	if s.opts.PrefetchRows > 0 {
		st := s.lib.SetPrefetchRows(s.handle, uint32(s.opts.PrefetchRows))
		if err := checkStatus(s.lib, "OCIAttrSet(PREFETCH_ROWS)", st); err != nil {
			return nil, err
		}
	}
	if err := s.detachCursor(); err != nil {
		return nil, err
	}
	if err := s.execute(0, ExecDefault); err != nil {
		return nil, err
	}
	c, err := newRowCursor(s)
	if err != nil {
		return nil, err
	}
	s.cursor = c
	return c, nil
}

// detachCursor invalidates the open cursor before the handle is executed
// again
func (s *Statement) detachCursor() error {
	if s.cursor == nil {
		return nil
	}
	err := s.cursor.detach()
	s.cursor = nil
	return err
}

// iterations validates the iteration count against the binds. The
// library reads one element of every non-PL/SQL bind per iteration, so
// each of them must hold at least that many elements.
func (s *Statement) iterations(typ StatementType, requested int) (int, error) {
	if typ == StmtSelect {
		return 0, nil
	}
	n := requested
	if n <= 0 {
		n = 1
		if !typ.IsPLSQL() {
			for _, b := range s.binds {
				if b.array && b.Len() > n {
					n = b.Len()
				}
			}
		}
	}
	if n == 1 {
		return n, nil
	}
	for _, b := range s.binds {
		if b.plsql || b.Len() >= n {
			continue
		}
		return 0, argumentError("Execute", b.label, "%s bind of %d elements is shorter than %d iterations", b.kind, b.Len(), n)
	}
	return n, nil
}

// execute re-registers stale binds, runs the statement and completes any
// piecewise transfers made during the call.
func (s *Statement) execute(iterations uint32, mode ExecMode) error {
	for _, b := range s.binds {
		if err := b.register(); err != nil {
			return err
		}
		b.beforeExecute()
	}
	s.logger.Trace("execute", "iterations", iterations, "mode", mode)
	st := s.lib.Execute(s.handle, iterations, 0, mode)

	var result *multierror.Error
	for _, b := range s.binds {
		if err := b.afterExecute(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	switch {
	case st == StatusSuccessWithInfo:
		s.logger.Warn("execute succeeded with info", "diagnostics", s.lib.Diagnostics())
	case st == StatusNoData && iterations == 0:
		// a query with no rows; the cursor observes it on first fetch
	case st == StatusNeedData:
		result = multierror.Append(result, &StateError{Op: "Execute", State: "library requested data outside a piecewise bind"})
	case !st.IsSuccess() && st != StatusNoData:
		cerr := newCollaboratorError(s.lib, "OCIStmtExecute", st)
		if result == nil {
			return cerr
		}
		return multierror.Append(result, cerr)
	}
	s.executions++
	return result.ErrorOrNil()
}

// RowCount returns the number of rows processed so far
func (s *Statement) RowCount() (int64, error) {
	if err := s.checkOpen("RowCount"); err != nil {
		return 0, err
	}
	n, st := s.lib.RowCount(s.handle)
	if err := checkStatus(s.lib, "OCIAttrGet(ROW_COUNT)", st); err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (s *Statement) allocDescriptor(kind DescriptorKind) (Handle, error) {
	h, st := s.lib.DescriptorAlloc(kind)
	if err := checkStatus(s.lib, "OCIDescriptorAlloc", st); err != nil {
		return NullHandle, err
	}
	s.descriptors[h] = kind
	return h, nil
}

func (s *Statement) freeDescriptor(h Handle, kind DescriptorKind) error {
	if _, ok := s.descriptors[h]; !ok {
		return nil
	}
	var result *multierror.Error
	if s.tempLobs[h] {
		if err := checkStatus(s.lib, "OCILobFreeTemporary", s.lib.LobFreeTemporary(h)); err != nil {
			result = multierror.Append(result, err)
		}
		delete(s.tempLobs, h)
	}
	delete(s.descriptors, h)
	if err := checkStatus(s.lib, "OCIDescriptorFree", s.lib.DescriptorFree(h, kind)); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// writeTempLob replaces the content of the locator h with data, creating
// a temporary LOB on first use.
func (s *Statement) writeTempLob(h Handle, kind LobKind, data []byte) error {
	if s.tempLobs[h] {
		if err := checkStatus(s.lib, "OCILobTrim2", s.lib.LobTrim(h, 0)); err != nil {
			return err
		}
	} else {
		if err := checkStatus(s.lib, "OCILobCreateTemporary", s.lib.LobCreateTemporary(h, kind)); err != nil {
			return err
		}
		s.tempLobs[h] = true
	}
	if len(data) == 0 {
		return nil
	}
	_, st := s.lib.LobWrite(h, 1, data)
	return checkStatus(s.lib, "OCILobWrite2", st)
}

// Close frees every descriptor and temporary LOB the statement allocated
// and invalidates its binds, defines and cursor. The statement handle
// itself belongs to the caller. Close is idempotent.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	var result *multierror.Error
	if err := s.detachCursor(); err != nil {
		result = multierror.Append(result, err)
	}
	for h := range s.tempLobs {
		if err := checkStatus(s.lib, "OCILobFreeTemporary", s.lib.LobFreeTemporary(h)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for h, kind := range s.descriptors {
		if err := checkStatus(s.lib, "OCIDescriptorFree", s.lib.DescriptorFree(h, kind)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.logger.Trace("statement closed", "descriptors", len(s.descriptors), "temporary_lobs", len(s.tempLobs))
	s.tempLobs = nil
	s.descriptors = nil
	s.binds = nil
	s.closed = true
	return result.ErrorOrNil()
}
