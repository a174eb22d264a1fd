package core

import "sync"

type Button uint8

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	buttonCount
)

// KeyCode values follow the Windows virtual key table, so letters and
// digits are their ASCII codes.
type KeyCode uint8

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_DELETE    KeyCode = 0x2E
	KEY_0         KeyCode = '0'
)

const (
	KEY_LEFT KeyCode = 0x25 + iota
	KEY_UP
	KEY_RIGHT
	KEY_DOWN
)

const (
	KEY_A KeyCode = 'A' + iota
	KEY_B
	KEY_C
	KEY_D
	KEY_E
	KEY_F
	KEY_G
	KEY_H
	KEY_I
	KEY_J
	KEY_K
	KEY_L
	KEY_M
	KEY_N
	KEY_O
	KEY_P
	KEY_Q
	KEY_R
	KEY_S
	KEY_T
	KEY_U
	KEY_V
	KEY_W
	KEY_X
	KEY_Y
	KEY_Z
)

const (
	KEY_F1 KeyCode = 0x70 + iota
	KEY_F2
	KEY_F3
	KEY_F4
	KEY_F5
	KEY_F6
	KEY_F7
	KEY_F8
	KEY_F9
	KEY_F10
	KEY_F11
	KEY_F12
)

const (
	KEY_LSHIFT KeyCode = 0xA0 + iota
	KEY_RSHIFT
	KEY_LCONTROL
	KEY_RCONTROL
	KEY_LMENU
	KEY_RMENU
)

type inputFrame struct {
	keys    [256]bool
	buttons [buttonCount]bool
	mouseX  int32
	mouseY  int32
}

// The current frame is written by the window callbacks; previous is the
// snapshot taken by the last InputUpdate.
type inputState struct {
	mu       sync.RWMutex
	current  inputFrame
	previous inputFrame
}

var input *inputState

func InputInitialize() error {
	input = &inputState{}
	LogInfo("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	input = nil
	return nil
}

// InputUpdate snapshots the current state as the previous one. Call it
// once per frame after everything has read the input.
func InputUpdate() error {
	if input == nil {
		return nil
	}
	input.mu.Lock()
	input.previous = input.current
	input.mu.Unlock()
	return nil
}

func InputIsKeyDown(key KeyCode) bool {
	if input == nil {
		return false
	}
	input.mu.RLock()
	defer input.mu.RUnlock()
	return input.current.keys[key]
}

// InputProcessKey records a key transition and fires KEY_PRESSED or
// KEY_RELEASED. Repeats of the same state fire nothing.
func InputProcessKey(key KeyCode, pressed bool) error {
	if input == nil {
		return nil
	}
	input.mu.Lock()
	changed := input.current.keys[key] != pressed
	input.current.keys[key] = pressed
	input.mu.Unlock()
	if !changed {
		return nil
	}

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	// Fired outside the lock: listeners may read the input state.
	EventFire(EventContext{Type: code, Data: &KeyEvent{KeyCode: key}})
	return nil
}

func InputIsButtonDown(button Button) bool {
	if input == nil || button >= buttonCount {
		return false
	}
	input.mu.RLock()
	defer input.mu.RUnlock()
	return input.current.buttons[button]
}

func InputProcessButton(button Button, pressed bool) error {
	if input == nil || button >= buttonCount {
		return nil
	}
	input.mu.Lock()
	input.current.buttons[button] = pressed
	input.mu.Unlock()
	return nil
}

func InputGetMousePosition() (int32, int32) {
	if input == nil {
		return 0, 0
	}
	input.mu.RLock()
	defer input.mu.RUnlock()
	return input.current.mouseX, input.current.mouseY
}

func InputGetPreviousMousePosition() (int32, int32) {
	if input == nil {
		return 0, 0
	}
	input.mu.RLock()
	defer input.mu.RUnlock()
	return input.previous.mouseX, input.previous.mouseY
}

func InputProcessMouseMove(x, y int32) error {
	if input == nil {
		return nil
	}
	input.mu.Lock()
	input.current.mouseX, input.current.mouseY = x, y
	input.mu.Unlock()
	return nil
}
