package loopback

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/mxbridge"
	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

// Conn is one loopback engine connection.
type Conn struct {
	owner     *Connector
	workspace map[string]*mxarray.Array
	out       output
	mu        sync.Mutex
	visible   bool
	closed    bool
}

var _ mxbridge.Conn = (*Conn)(nil)

func newConn(owner *Connector) *Conn {
	return &Conn{
		owner:     owner,
		workspace: make(map[string]*mxarray.Array),
	}
}

// Eval runs the statements in expr. Statement errors are reported in the
// output as the command window would show them and stop the remaining
// statements; Eval itself only fails when the connection is closed.
func (c *Conn) Eval(expr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.NotOpen(errors.PhaseEngine, "eval")
	}
	c.owner.evals.Add(1)
	c.out.reset()

	for _, st := range splitStatements(expr) {
		if err := c.run(st); err != nil {
			c.out.WriteString("Error: " + err.Error() + "\n")
			c.owner.logger.Debug("loopback statement failed", zap.String("expr", st.expr), zap.Error(err))
			break
		}
	}
	return nil
}

func (c *Conn) run(st statement) error {
	v, err := c.evaluate(st)
	if err != nil {
		return err
	}
	if v.IsNull() && st.target == "" {
		return nil
	}
	a, err := toArray(v)
	if err != nil {
		return err
	}

	name := st.target
	if name == "" {
		name = "ans"
	}
	c.store(name, a)
	if !st.quiet {
		c.out.WriteString(display(name, a))
	}
	return nil
}

func (c *Conn) store(name string, a *mxarray.Array) {
	if old, ok := c.workspace[name]; ok {
		old.Destroy()
	}
	c.workspace[name] = a
}

// GetVariable returns a copy of a workspace variable.
func (c *Conn) GetVariable(name string) (*mxarray.Array, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.NotOpen(errors.PhaseEngine, "get variable")
	}
	a, ok := c.workspace[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseEngine, "variable", name)
	}
	return a.Duplicate()
}

// PutVariable stores a copy of value. Values the evaluator cannot use are
// kept and only fail when an expression references them.
func (c *Conn) PutVariable(name string, value *mxarray.Array) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.NotOpen(errors.PhaseEngine, "put variable")
	}
	dup, err := value.Duplicate()
	if err != nil {
		return err
	}
	c.store(name, dup)
	return nil
}

// Variables lists the workspace variable names in sorted order.
func (c *Conn) Variables() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workspaceNames()
}

func (c *Conn) Visible() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, errors.NotOpen(errors.PhaseEngine, "visible")
	}
	return c.visible, nil
}

func (c *Conn) SetVisible(visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.NotOpen(errors.PhaseEngine, "set visible")
	}
	c.visible = visible
	return nil
}

// SetOutputBuffer binds buf for output of later Eval calls.
func (c *Conn) SetOutputBuffer(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.NotOpen(errors.PhaseEngine, "set output buffer")
	}
	c.out.bind(buf)
	return nil
}

// Close discards the workspace. Closing twice is an error.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.NotOpen(errors.PhaseEngine, "close")
	}
	c.closed = true
	for name, a := range c.workspace {
		a.Destroy()
		delete(c.workspace, name)
	}
	c.out.bind(nil)
	n := c.owner.closes.Add(1)
	c.owner.logger.Debug("loopback engine stopped", zap.Int64("closes", n))
	return nil
}
