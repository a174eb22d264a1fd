package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-xr/engine/core"
)

type FrameState int

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_RECORDING
	FRAME_STATE_IN_RENDER_PASS
)

func (s FrameState) String() string {
	switch s {
	case FRAME_STATE_IDLE:
		return "idle"
	case FRAME_STATE_RECORDING:
		return "recording"
	case FRAME_STATE_IN_RENDER_PASS:
		return "in_render_pass"
	}
	return "unknown"
}

type frameSource interface {
	Frame(index uint32) FrameContext
}

// FrameScheduler cycles through the frames in flight. Each slot is reused
// only after its fence reports that the GPU finished with it, so at most
// framesInFlight submissions are ever pending.
type FrameScheduler struct {
	frames         frameSource
	framesInFlight uint32
	current        uint32
	state          FrameState
	frameNumber    uint64
}

func NewFrameScheduler(frames frameSource, framesInFlight uint32) *FrameScheduler {
	return &FrameScheduler{
		frames:         frames,
		framesInFlight: framesInFlight,
	}
}

func (s *FrameScheduler) State() FrameState {
	return s.state
}

func (s *FrameScheduler) Current() uint32 {
	return s.current
}

func (s *FrameScheduler) FrameNumber() uint64 {
	return s.frameNumber
}

func (s *FrameScheduler) expect(op string, state FrameState) error {
	if s.state != state {
		return fmt.Errorf("%w: %s requires %s, frame is %s", core.ErrInvalidFrameState, op, state, s.state)
	}
	return nil
}

func (s *FrameScheduler) frame() FrameContext {
	return s.frames.Frame(s.current)
}

func (s *FrameScheduler) BeginRenderCommands() error {
	if err := s.expect("BeginRenderCommands", FRAME_STATE_IDLE); err != nil {
		return err
	}
	frame := s.frame()
	if err := frame.Wait(); err != nil {
		return err
	}
	if err := frame.Begin(); err != nil {
		return err
	}
	s.state = FRAME_STATE_RECORDING
	return nil
}

func (s *FrameScheduler) TransferUniformBufferData(size uint64) error {
	if err := s.expect("TransferUniformBufferData", FRAME_STATE_RECORDING); err != nil {
		return err
	}
	s.frame().TransferUniformData(0, size)
	return nil
}

func (s *FrameScheduler) TransferInstanceBufferData(offset, size uint64) error {
	if err := s.expect("TransferInstanceBufferData", FRAME_STATE_RECORDING); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	s.frame().TransferInstanceData(offset, size)
	return nil
}

func (s *FrameScheduler) BeginForwardRenderPass(imageIndex uint32) error {
	if err := s.expect("BeginForwardRenderPass", FRAME_STATE_RECORDING); err != nil {
		return err
	}
	if err := s.frame().BeginForwardRenderPass(imageIndex); err != nil {
		return err
	}
	s.state = FRAME_STATE_IN_RENDER_PASS
	return nil
}

// Recorder returns the command recorder of the current frame. Only valid
// inside the forward pass.
func (s *FrameScheduler) Recorder() (CommandRecorder, error) {
	if err := s.expect("Recorder", FRAME_STATE_IN_RENDER_PASS); err != nil {
		return nil, err
	}
	return s.frame(), nil
}

func (s *FrameScheduler) EndRenderPass() error {
	if err := s.expect("EndRenderPass", FRAME_STATE_IN_RENDER_PASS); err != nil {
		return err
	}
	s.frame().EndRenderPass()
	s.state = FRAME_STATE_RECORDING
	return nil
}

func (s *FrameScheduler) EndRenderCommands() error {
	if err := s.expect("EndRenderCommands", FRAME_STATE_RECORDING); err != nil {
		return err
	}
	s.state = FRAME_STATE_IDLE
	if err := s.frame().EndAndSubmit(); err != nil {
		return err
	}
	s.current = (s.current + 1) % s.framesInFlight
	s.frameNumber++
	return nil
}

// Abort drops the recording in progress. The slot is not advanced.
func (s *FrameScheduler) Abort() {
	if s.state == FRAME_STATE_IDLE {
		return
	}
	frame := s.frame()
	if s.state == FRAME_STATE_IN_RENDER_PASS {
		frame.EndRenderPass()
	}
	frame.Abort()
	s.state = FRAME_STATE_IDLE
}
