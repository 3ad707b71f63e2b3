package host

import "sync"

type (
	LoadFunc            func(name string, mode LoadMode) AsyncOp
	UnloadFunc          func(name string) bool
	ProgressFunc        func(op AsyncOp) float64
	AllowActivationFunc func(op AsyncOp, allow bool)
	TransitionFunc      func(tp TransitionPoint, obj Object)
)

// Hooks is a table of interception points. Wrapping hooks receive the next
// implementation in the chain and decide whether to call it. Notification
// hooks only observe. Nil fields are skipped.
type Hooks struct {
	// LoadBegin fires when the host's transition orchestration begins loading
	// target, before the load primitive is called.
	LoadBegin func(target string)
	// ActivationComplete fires once the host finished activating target and
	// before it unloads the room it left.
	ActivationComplete func(target string)
	ActiveSceneChanged func(prev, next Scene)
	// SubSceneLoaded fires when a scene loaded additively from inside parent
	// finishes loading.
	SubSceneLoaded func(parent string, scene Scene)

	LoadSceneAsync     func(next LoadFunc, name string, mode LoadMode) AsyncOp
	UnloadScene        func(next UnloadFunc, name string) bool
	Progress           func(next ProgressFunc, op AsyncOp) float64
	SetAllowActivation func(next AllowActivationFunc, op AsyncOp, allow bool)
	TransitionEnter    func(next TransitionFunc, tp TransitionPoint, obj Object)
}

// Dispatcher holds installed hook tables for an adapter and builds the call
// chains. Tables installed later wrap tables installed earlier.
type Dispatcher struct {
	mu     sync.Mutex
	tables []*Hooks
}

// Install adds h and returns a func that removes it.
func (d *Dispatcher) Install(h *Hooks) func() {
	if d == nil || h == nil {
		return func() {}
	}
	d.mu.Lock()
	d.tables = append(d.tables, h)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, t := range d.tables {
				if t == h {
					d.tables = append(d.tables[:i], d.tables[i+1:]...)
					return
				}
			}
		})
	}
}

// Len reports the number of installed tables.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables)
}

func (d *Dispatcher) snapshot() []*Hooks {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Hooks, len(d.tables))
	copy(out, d.tables)
	return out
}

func (d *Dispatcher) LoadSceneAsync(base LoadFunc, name string, mode LoadMode) AsyncOp {
	next := base
	for _, h := range d.snapshot() {
		if h.LoadSceneAsync == nil {
			continue
		}
		hook, inner := h.LoadSceneAsync, next
		next = func(name string, mode LoadMode) AsyncOp { return hook(inner, name, mode) }
	}
	return next(name, mode)
}

func (d *Dispatcher) UnloadScene(base UnloadFunc, name string) bool {
	next := base
	for _, h := range d.snapshot() {
		if h.UnloadScene == nil {
			continue
		}
		hook, inner := h.UnloadScene, next
		next = func(name string) bool { return hook(inner, name) }
	}
	return next(name)
}

func (d *Dispatcher) Progress(base ProgressFunc, op AsyncOp) float64 {
	next := base
	for _, h := range d.snapshot() {
		if h.Progress == nil {
			continue
		}
		hook, inner := h.Progress, next
		next = func(op AsyncOp) float64 { return hook(inner, op) }
	}
	return next(op)
}

func (d *Dispatcher) SetAllowActivation(base AllowActivationFunc, op AsyncOp, allow bool) {
	next := base
	for _, h := range d.snapshot() {
		if h.SetAllowActivation == nil {
			continue
		}
		hook, inner := h.SetAllowActivation, next
		next = func(op AsyncOp, allow bool) { hook(inner, op, allow) }
	}
	next(op, allow)
}

func (d *Dispatcher) TransitionEnter(base TransitionFunc, tp TransitionPoint, obj Object) {
	next := base
	for _, h := range d.snapshot() {
		if h.TransitionEnter == nil {
			continue
		}
		hook, inner := h.TransitionEnter, next
		next = func(tp TransitionPoint, obj Object) { hook(inner, tp, obj) }
	}
	next(tp, obj)
}

func (d *Dispatcher) LoadBegin(target string) {
	for _, h := range d.snapshot() {
		if h.LoadBegin != nil {
			h.LoadBegin(target)
		}
	}
}

func (d *Dispatcher) ActivationComplete(target string) {
	for _, h := range d.snapshot() {
		if h.ActivationComplete != nil {
			h.ActivationComplete(target)
		}
	}
}

func (d *Dispatcher) ActiveSceneChanged(prev, next Scene) {
	for _, h := range d.snapshot() {
		if h.ActiveSceneChanged != nil {
			h.ActiveSceneChanged(prev, next)
		}
	}
}

func (d *Dispatcher) SubSceneLoaded(parent string, scene Scene) {
	for _, h := range d.snapshot() {
		if h.SubSceneLoaded != nil {
			h.SubSceneLoaded(parent, scene)
		}
	}
}
