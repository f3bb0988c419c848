package door

import "slices"

// Context describes where a notification is being delivered. Handlers that only produce cosmetic output
// (sounds, widgets, particles) should do nothing when Headless is set.
type Context struct {
	// Headless is set when the door runs without any presentation, such as on a dedicated server.
	Headless bool
	// Authority is set when the door is the authoritative copy.
	Authority bool
	// Replicated is set while a state received from the authority is being applied.
	Replicated bool
}

// Handler receives notifications about a door. All methods are called on the goroutine that drives the
// door and must not block.
type Handler interface {
	// HandleStateChanged is called after the discrete state or direction of the door changed.
	HandleStateChanged(ctx Context, d *Door, old, new State)
	// HandleAlphaChanged is called whenever alpha changes.
	HandleAlphaChanged(ctx Context, d *Door, old, new float32)
	// HandleNotify is called when a notify threshold is crossed.
	HandleNotify(ctx Context, d *Door, n Notify)
	// HandleStarted is called when the door starts opening or closing from rest.
	HandleStarted(ctx Context, d *Door, state State)
	// HandleFinished is called when the door comes to rest Open or Closed.
	HandleFinished(ctx Context, d *Door, state State)
	// HandleInterrupted is called when the door changes motion before coming to rest.
	HandleInterrupted(ctx Context, d *Door, old, new State)
	// HandlePolicyChanged is called when access, open direction or open motion changed.
	HandlePolicyChanged(ctx Context, d *Door, p PolicyKind)
	// HandleCooldownExpired is called when a cooldown window expires.
	HandleCooldownExpired(ctx Context, d *Door, w CooldownWindow)
	// HandleAvailable is called once both cooldown windows have expired.
	HandleAvailable(ctx Context, d *Door)
}

// NopHandler implements Handler and does nothing. Embed it to implement only the methods needed.
type NopHandler struct{}

func (NopHandler) HandleStateChanged(Context, *Door, State, State) {}
func (NopHandler) HandleAlphaChanged(Context, *Door, float32, float32) {}
func (NopHandler) HandleNotify(Context, *Door, Notify) {}
func (NopHandler) HandleStarted(Context, *Door, State) {}
func (NopHandler) HandleFinished(Context, *Door, State) {}
func (NopHandler) HandleInterrupted(Context, *Door, State, State) {}
func (NopHandler) HandlePolicyChanged(Context, *Door, PolicyKind) {}
func (NopHandler) HandleCooldownExpired(Context, *Door, CooldownWindow) {}
func (NopHandler) HandleAvailable(Context, *Door) {}

// handlerList is the observer list of a door. Entries are removed by pointer, so handlers of any
// type can be registered, including ones that are not comparable.
type handlerList struct {
	entries []*handlerEntry
}

type handlerEntry struct {
	h Handler
}

func (l *handlerList) add(h Handler) func() {
	e := &handlerEntry{h: h}
	l.entries = append(l.entries, e)
	return func() {
		if i := slices.Index(l.entries, e); i >= 0 {
			l.entries = slices.Delete(l.entries, i, i+1)
		}
	}
}

func (l *handlerList) each(f func(h Handler)) {
	for _, e := range l.entries {
		f(e.h)
	}
}

// Cosmetic wraps h so that it receives nothing while the door is headless.
func Cosmetic(h Handler) Handler {
	return cosmeticHandler{h: h}
}

type cosmeticHandler struct {
	h Handler
}

func (c cosmeticHandler) HandleStateChanged(ctx Context, d *Door, old, new State) {
	if !ctx.Headless {
		c.h.HandleStateChanged(ctx, d, old, new)
	}
}

func (c cosmeticHandler) HandleAlphaChanged(ctx Context, d *Door, old, new float32) {
	if !ctx.Headless {
		c.h.HandleAlphaChanged(ctx, d, old, new)
	}
}

func (c cosmeticHandler) HandleNotify(ctx Context, d *Door, n Notify) {
	if !ctx.Headless {
		c.h.HandleNotify(ctx, d, n)
	}
}

func (c cosmeticHandler) HandleStarted(ctx Context, d *Door, state State) {
	if !ctx.Headless {
		c.h.HandleStarted(ctx, d, state)
	}
}

func (c cosmeticHandler) HandleFinished(ctx Context, d *Door, state State) {
	if !ctx.Headless {
		c.h.HandleFinished(ctx, d, state)
	}
}

func (c cosmeticHandler) HandleInterrupted(ctx Context, d *Door, old, new State) {
	if !ctx.Headless {
		c.h.HandleInterrupted(ctx, d, old, new)
	}
}

func (c cosmeticHandler) HandlePolicyChanged(ctx Context, d *Door, p PolicyKind) {
	if !ctx.Headless {
		c.h.HandlePolicyChanged(ctx, d, p)
	}
}

func (c cosmeticHandler) HandleCooldownExpired(ctx Context, d *Door, w CooldownWindow) {
	if !ctx.Headless {
		c.h.HandleCooldownExpired(ctx, d, w)
	}
}

func (c cosmeticHandler) HandleAvailable(ctx Context, d *Door) {
	if !ctx.Headless {
		c.h.HandleAvailable(ctx, d)
	}
}
