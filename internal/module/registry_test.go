package module

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/notchd/internal/config"
	"github.com/jmylchreest/notchd/internal/render"
)

// stubModule is a scriptable Module for registry tests.
type stubModule struct {
	id           string
	configureErr error
	configPanic  bool
	tickPanic    bool
	drawPanic    bool
	inputResult  bool

	configured map[string]any
	ticks      int
	draws      int
	inputs     []InputEvent
	interval   time.Duration
	size       config.Size
	wantExpand bool
}

func (m *stubModule) ID() string { return m.id }

func (m *stubModule) Configure(settings map[string]any) error {
	if m.configPanic {
		panic("bad config blob")
	}
	m.configured = settings
	return m.configureErr
}

func (m *stubModule) Interval() time.Duration { return m.interval }

func (m *stubModule) Tick(now time.Time) bool {
	if m.tickPanic {
		panic("tick exploded")
	}
	m.ticks++
	return true
}

func (m *stubModule) HandleInput(ev InputEvent) bool {
	m.inputs = append(m.inputs, ev)
	return m.inputResult
}

func (m *stubModule) PreferredSize() config.Size { return m.size }

func (m *stubModule) DesiredSize() (config.Size, bool) {
	return m.size, m.wantExpand
}

func (m *stubModule) Draw(dc *DrawContext, bounds render.Rect) error {
	if m.drawPanic {
		panic("draw exploded")
	}
	m.draws++
	return nil
}

func cfgWith(enabled ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Modules.Enabled = enabled
	return cfg
}

func TestBuild_SkipsUnknownIDs(t *testing.T) {
	reg := NewRegistry()
	reg.Register("known", func() Module {
		return &stubModule{id: "known", size: config.Size{Width: 10, Height: 10}}
	})

	set := reg.Build(cfgWith("known", "mystery", "known2"), nil)

	assert.Equal(t, []string{"known"}, set.IDs())
}

func TestBuild_ConfigureFailureDisablesOnlyThatModule(t *testing.T) {
	reg := NewRegistry()
	reg.Register("bad", func() Module {
		return &stubModule{id: "bad", configureErr: errors.New("invalid settings")}
	})
	reg.Register("worse", func() Module {
		return &stubModule{id: "worse", configPanic: true}
	})
	reg.Register("good", func() Module {
		return &stubModule{id: "good"}
	})

	set := reg.Build(cfgWith("bad", "worse", "good"), nil)

	assert.Equal(t, []string{"good"}, set.IDs())
}

func TestBuild_PassesPrivateSettings(t *testing.T) {
	var got *stubModule
	reg := NewRegistry()
	reg.Register("clock", func() Module {
		got = &stubModule{id: "clock"}
		return got
	})

	cfg := cfgWith("clock")
	cfg.Modules.Settings = map[string]map[string]any{
		"clock": {"format": "15:04"},
	}
	reg.Build(cfg, nil)

	require.NotNil(t, got)
	assert.Equal(t, "15:04", got.configured["format"])
}

func TestTickDue_IsolatesPanics(t *testing.T) {
	reg := NewRegistry()
	bomb := &stubModule{id: "bomb", tickPanic: true, interval: time.Second}
	calm := &stubModule{id: "calm", interval: time.Second}
	reg.Register("bomb", func() Module { return bomb })
	reg.Register("calm", func() Module { return calm })

	set := reg.Build(cfgWith("bomb", "calm"), nil)
	dirty := set.TickDue(time.Now().Add(time.Minute))

	assert.True(t, dirty, "healthy module tick still reports dirty")
	assert.Equal(t, 1, calm.ticks)
	assert.Equal(t, []string{"calm"}, set.IDs(), "panicking module is disabled")

	// Later passes never call the disabled module again.
	set.TickDue(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 2, calm.ticks)
}

func TestDraw_FailingModuleDoesNotBlockOthers(t *testing.T) {
	reg := NewRegistry()
	bomb := &stubModule{id: "bomb", drawPanic: true}
	calm := &stubModule{id: "calm"}
	reg.Register("bomb", func() Module { return bomb })
	reg.Register("calm", func() Module { return calm })

	set := reg.Build(cfgWith("bomb", "calm"), nil)
	set.Layout(300, 40, 1)

	canvas := render.NewCanvas(make([]byte, 300*40*4), 300, 40, 300*4)
	dc := NewDrawContext(canvas, nil, 1, false, nil)
	set.Draw(dc)
	dc.Release()

	assert.Equal(t, 1, calm.draws)
}

func TestRoute_TopmostFirst(t *testing.T) {
	reg := NewRegistry()
	bottom := &stubModule{id: "bottom", inputResult: true, size: config.Size{Width: 100, Height: 30}}
	top := &stubModule{id: "top", inputResult: true, size: config.Size{Width: 100, Height: 30}}
	reg.Register("bottom", func() Module { return bottom })
	reg.Register("top", func() Module { return top })

	// Same placement: both centered, overlapping regions.
	set := reg.Build(cfgWith("bottom", "top"), nil)
	for _, m := range set.mods {
		m.area = render.Rect{X: 0, Y: 0, W: 100, H: 30}
	}

	handled := set.Route(InputEvent{Kind: PointerButton, Button: 1, Pressed: true, X: 50, Y: 15})

	assert.True(t, handled)
	assert.Len(t, top.inputs, 1, "topmost module gets the event")
	assert.Empty(t, bottom.inputs, "event must not propagate past a consumer")
}

func TestRoute_FallsThroughUnhandled(t *testing.T) {
	reg := NewRegistry()
	bottom := &stubModule{id: "bottom", inputResult: true}
	top := &stubModule{id: "top", inputResult: false}
	reg.Register("bottom", func() Module { return bottom })
	reg.Register("top", func() Module { return top })

	set := reg.Build(cfgWith("bottom", "top"), nil)
	for _, m := range set.mods {
		m.area = render.Rect{X: 0, Y: 0, W: 100, H: 30}
	}

	handled := set.Route(InputEvent{Kind: PointerButton, Button: 1, Pressed: true, X: 50, Y: 15})

	assert.True(t, handled)
	assert.Len(t, top.inputs, 1)
	assert.Len(t, bottom.inputs, 1)
}

func TestRoute_LeaveGoesToAllModules(t *testing.T) {
	reg := NewRegistry()
	a := &stubModule{id: "a"}
	b := &stubModule{id: "b"}
	reg.Register("a", func() Module { return a })
	reg.Register("b", func() Module { return b })

	set := reg.Build(cfgWith("a", "b"), nil)
	set.Route(InputEvent{Kind: PointerLeave})

	assert.Len(t, a.inputs, 1)
	assert.Len(t, b.inputs, 1)
}

func TestLayout_PlacementGroups(t *testing.T) {
	reg := NewRegistry()
	mk := func(id string) *stubModule {
		return &stubModule{id: id, size: config.Size{Width: 60, Height: 20}}
	}
	l, c, r := mk("l"), mk("c"), mk("r")
	reg.Register("l", func() Module { return l })
	reg.Register("c", func() Module { return c })
	reg.Register("r", func() Module { return r })

	cfg := cfgWith("l", "c", "r")
	cfg.Modules.Settings = map[string]map[string]any{
		"l": {"align": "left"},
		"r": {"align": "right"},
	}

	set := reg.Build(cfg, nil)
	set.Layout(300, 40, 1)

	areas := map[string]render.Rect{}
	for _, m := range set.mods {
		areas[m.mod.ID()] = m.area
	}

	assert.Equal(t, 0, areas["l"].X)
	assert.Equal(t, 240, areas["r"].X)
	assert.Equal(t, 120, areas["c"].X)
	// Vertically centered.
	assert.Equal(t, 10, areas["c"].Y)
}

func TestLayout_ScalesLogicalFootprints(t *testing.T) {
	reg := NewRegistry()
	mod := &stubModule{id: "m", size: config.Size{Width: 60, Height: 20}}
	reg.Register("m", func() Module { return mod })

	set := reg.Build(cfgWith("m"), nil)
	// An 800×40 logical surface at scale 2 paints into a 1600×80 buffer.
	set.Layout(1600, 80, 2)

	area := set.mods[0].area
	assert.Equal(t, 120, area.W, "width doubles at scale 2")
	assert.Equal(t, 40, area.H)
	assert.Equal(t, (1600-120)/2, area.X)
	assert.Equal(t, 20, area.Y, "vertically centered in buffer pixels")
}

func TestLayout_ScaledSpacing(t *testing.T) {
	reg := NewRegistry()
	a := &stubModule{id: "a", size: config.Size{Width: 50, Height: 20}}
	b := &stubModule{id: "b", size: config.Size{Width: 50, Height: 20}}
	reg.Register("a", func() Module { return a })
	reg.Register("b", func() Module { return b })

	cfg := cfgWith("a", "b")
	cfg.Modules.Settings = map[string]map[string]any{
		"a": {"align": "left"},
		"b": {"align": "left"},
	}

	set := reg.Build(cfg, nil)
	set.Layout(1600, 80, 2)

	areas := map[string]render.Rect{}
	for _, m := range set.mods {
		areas[m.mod.ID()] = m.area
	}
	assert.Equal(t, 0, areas["a"].X)
	assert.Equal(t, 100+2*moduleSpacing, areas["b"].X, "gap scales with the output")
}

func TestNextTick_EarliestDeadline(t *testing.T) {
	reg := NewRegistry()
	fast := &stubModule{id: "fast", interval: time.Second}
	slow := &stubModule{id: "slow", interval: 30 * time.Second}
	reg.Register("fast", func() Module { return fast })
	reg.Register("slow", func() Module { return slow })

	set := reg.Build(cfgWith("fast", "slow"), nil)
	now := time.Now().Add(time.Minute)
	set.TickDue(now)

	deadline, ok := set.NextTick()
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Second), deadline)
}

func TestDrawContext_ReleasedIsNoOp(t *testing.T) {
	canvas := render.NewCanvas(make([]byte, 10*10*4), 10, 10, 40)
	dc := NewDrawContext(canvas, nil, 1, false, nil)
	dc.Release()

	// Must not panic or write.
	dc.FillRect(render.Rect{W: 10, H: 10}, render.White)
	dc.DrawText(0, 0, "late", 12, render.White)
}
