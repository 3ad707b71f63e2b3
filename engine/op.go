package engine

import (
	"github.com/milk9111/onelevel/host"
	"github.com/milk9111/onelevel/levels"
)

// Op is an asynchronous scene load. Its level is fetched off the game loop;
// activation always happens in Engine.Update.
type Op struct {
	engine *Engine
	scene  string
	mode   host.LoadMode

	progress float64
	allow    bool
	fetched  bool
	done     bool
	level    *levels.Level
	err      error

	callbacks []func(host.AsyncOp)
}

func (o *Op) Scene() string       { return o.scene }
func (o *Op) Mode() host.LoadMode { return o.mode }
func (o *Op) Done() bool          { return o.done }
func (o *Op) Err() error          { return o.err }

func (o *Op) Progress() float64 {
	if o.engine == nil {
		return o.progress
	}
	return o.engine.hooks.Progress(rawProgress, o)
}

func (o *Op) AllowActivation() bool { return o.allow }

func (o *Op) SetAllowActivation(allow bool) {
	if o.engine == nil {
		o.allow = allow
		return
	}
	o.engine.hooks.SetAllowActivation(setAllow, o, allow)
}

func (o *Op) OnCompleted(fn func(host.AsyncOp)) {
	if fn == nil {
		return
	}
	if o.done {
		fn(o)
		return
	}
	o.callbacks = append(o.callbacks, fn)
}

func (o *Op) ready() bool { return o.fetched && o.allow && !o.done }

func (o *Op) finish() {
	o.progress = 1
	o.done = true
	cbs := o.callbacks
	o.callbacks = nil
	for _, fn := range cbs {
		fn(o)
	}
}

func rawProgress(op host.AsyncOp) float64 {
	if o, ok := op.(*Op); ok {
		return o.progress
	}
	return op.Progress()
}

func setAllow(op host.AsyncOp, allow bool) {
	if o, ok := op.(*Op); ok {
		o.allow = allow
	}
}

// doneOp is an already finished operation.
func doneOp(scene string) *Op {
	return &Op{scene: scene, progress: 1, allow: true, fetched: true, done: true}
}
