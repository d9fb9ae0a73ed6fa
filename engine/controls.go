package engine

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/Carmen-Shannon/oxy-vk/engine/camera"
	"github.com/Carmen-Shannon/oxy-vk/engine/shadow"
	"github.com/Carmen-Shannon/oxy-vk/engine/window"
)

// cameraControls drives an orbit controller from window input.
// Middle-mouse drag orbits, the scroll wheel zooms, arrow keys orbit in steps, A/D and Q/E pan,
// W/S zoom. C and P toggle the cascade coloring and PCF filtering.
type cameraControls struct {
	mu sync.Mutex

	controller camera.CameraController
	shadow     shadow.Shadow

	held     map[uint32]bool
	dragging bool
	lastX    int32
	lastY    int32

	showCascade bool
	pcf         bool

	onKeyDown func(key uint32) // chained after the built-in bindings
}

func newCameraControls(ctrl camera.CameraController, sh shadow.Shadow) *cameraControls {
	return &cameraControls{
		controller: ctrl,
		shadow:     sh,
		held:       make(map[uint32]bool),
		pcf:        true,
	}
}

// bind registers the controls on the window's input callbacks.
func (c *cameraControls) bind(w window.Window) {
	w.SetKeyDownCallback(c.keyDown)
	w.SetKeyUpCallback(c.keyUp)
	w.SetMiddleMouseDownCallback(c.dragStart)
	w.SetMiddleMouseUpCallback(func(_, _ int32) { c.dragEnd() })
	w.SetMouseMoveCallback(c.mouseMove)
	w.SetScrollCallback(c.controller.Zoom)
}

func (c *cameraControls) keyDown(key uint32) {
	c.mu.Lock()
	c.held[key] = true
	if c.shadow != nil {
		switch key {
		case common.KeyC:
			c.showCascade = !c.showCascade
			c.shadow.SetShowCascade(c.showCascade)
		case common.KeyP:
			c.pcf = !c.pcf
			c.shadow.SetShowPCFFilter(c.pcf)
		}
	}
	next := c.onKeyDown
	c.mu.Unlock()

	if next != nil {
		next(key)
	}
}

func (c *cameraControls) keyUp(key uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
}

func (c *cameraControls) dragStart(x, y int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = true
	c.lastX, c.lastY = x, y
}

func (c *cameraControls) dragEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
}

func (c *cameraControls) mouseMove(x, y int32) {
	c.mu.Lock()
	if !c.dragging {
		c.mu.Unlock()
		return
	}
	dx, dy := x-c.lastX, y-c.lastY
	c.lastX, c.lastY = x, y
	c.mu.Unlock()

	c.controller.OrbitDrag(float64(dx), float64(dy))
}

// axis returns -1, 0 or 1 from a pair of held keys.
func (c *cameraControls) axis(negative, positive uint32) int {
	v := 0
	if c.held[negative] {
		v--
	}
	if c.held[positive] {
		v++
	}
	return v
}

// tick applies the held keys. Called once per engine tick.
func (c *cameraControls) tick() {
	c.mu.Lock()
	orbitH := c.axis(common.KeyLeft, common.KeyRight)
	orbitV := c.axis(common.KeyDown, common.KeyUp)
	panR := c.axis(common.KeyA, common.KeyD)
	panU := c.axis(common.KeyQ, common.KeyE)
	zoom := c.axis(common.KeyS, common.KeyW)
	c.mu.Unlock()

	if orbitH != 0 || orbitV != 0 {
		c.controller.OrbitStep(orbitH, orbitV)
	}
	if panR != 0 || panU != 0 {
		c.controller.Pan(float32(panR), float32(panU))
	}
	if zoom != 0 {
		c.controller.Zoom(float32(zoom))
	}
}
