package cmd

import (
	"fmt"
	"log"

	"github.com/pkg/browser"
	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/datarecording"
	"github.com/sarchlab/cpfifo/gpu"
	"github.com/sarchlab/cpfifo/monitoring"
	"github.com/sarchlab/cpfifo/pi"
	"github.com/sarchlab/cpfifo/savestate"
	"github.com/sarchlab/cpfifo/timing"
	"github.com/sarchlab/cpfifo/tracing"
)

// A Session wires a producer, a controller, a consumer, and the platform
// interface onto one engine.
type Session struct {
	cfg Config

	Engine     *timing.SerialEngine
	Platform   *pi.ProcessorInterface
	Controller *cp.CommandProcessor
	Consumer   *gpu.Consumer
	Producer   *Producer
	States     *savestate.Manager

	backend  datarecording.DataRecorder
	recorder *tracing.Recorder
	monitor  *monitoring.Monitor
	progress *monitoring.ProgressBar
}

// NewSession builds a session and programs the FIFO.
func NewSession(cfg Config, logger *log.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg}

	s.Engine = timing.NewSerialEngine()
	s.Platform = pi.MakeBuilder().
		WithTimeTeller(s.Engine).
		Build("PI")
	s.Controller = cp.MakeBuilder().
		WithEngine(s.Engine).
		WithInterruptSink(s.Platform).
		WithBusMirror(s.Platform).
		WithTimelineMode(cfg.TimelineMode()).
		WithAddressWidth(cfg.AddressWidth()).
		WithLogger(logger).
		Build("CP")
	s.Consumer = gpu.MakeBuilder().
		WithEngine(s.Engine).
		WithController(s.Controller).
		WithTimelineMode(cfg.TimelineMode()).
		WithDeterministicTimeline(cfg.Deterministic).
		Build("GPU")
	s.Controller.SetConsumer(s.Consumer)
	s.Producer = NewProducer("Producer",
		s.Engine, s.Controller, cfg.Bursts, cfg.SliceBursts)

	s.States = savestate.NewManager()
	s.States.Register(s.Controller)
	s.States.Register(s.Platform)

	s.attachLoggers(logger)
	s.programFifo()

	return s, nil
}

func (s *Session) attachLoggers(logger *log.Logger) {
	if s.cfg.Log || s.cfg.LogRegisters {
		h := cp.NewLogHook(logger)
		h.Registers = s.cfg.LogRegisters
		s.Controller.AcceptHook(h)
	}

	if s.cfg.LogEvents {
		s.Engine.AcceptHook(timing.NewEventLogger(logger))
	}
}

func (s *Session) programFifo() {
	base := s.cfg.FifoBase
	end := base + s.cfg.FifoSize

	s.write32(cp.FifoBaseLo, base)
	s.write32(cp.FifoEndLo, end)
	s.write32(cp.FifoHiWatermarkLo, s.cfg.HiWatermark())
	s.write32(cp.FifoLoWatermarkLo, s.cfg.LoWatermark())
	s.write32(cp.FifoWritePointerLo, base)
	s.write32(cp.FifoReadPointerLo, base)
	s.write32(cp.FifoRWDistanceLo, 0)

	s.Controller.Write16(cp.CtrlRegister, cp.CtrlReg{
		ReadEnable:           true,
		LinkEnable:           true,
		HiWatermarkIntEnable: s.cfg.WatermarkInterrupts,
		LoWatermarkIntEnable: s.cfg.WatermarkInterrupts,
	}.Encode())
}

func (s *Session) write32(lo uint32, v uint32) {
	s.Controller.Write16(lo, uint16(v))
	s.Controller.Write16(lo+2, uint16(v>>16))
}

// EnableTracing records controller and platform activity into an SQLite
// database at path.
func (s *Session) EnableTracing(path string, registers bool) {
	s.backend = datarecording.New(path)
	s.recorder = tracing.NewRecorder(s.backend, registers)

	s.Controller.AcceptHook(s.recorder)
	s.Platform.AcceptHook(s.recorder)
}

// StartMonitor serves the session over HTTP. It returns the URL of the
// monitoring page.
func (s *Session) StartMonitor(port int) string {
	s.monitor = monitoring.NewMonitor().WithPortNumber(port)
	s.monitor.RegisterEngine(s.Engine)
	s.monitor.RegisterController(s.Controller)
	s.monitor.RegisterComponent(s.Platform)
	s.monitor.RegisterComponent(s.Consumer)
	s.monitor.RegisterComponent(s.Producer)

	s.progress = s.monitor.CreateProgressBar(
		"Bursts", uint64(s.Producer.Remaining()))
	s.Producer.SetProgressBar(s.progress)

	actualPort := s.monitor.StartServer()

	return fmt.Sprintf("http://localhost:%d", actualPort)
}

// OpenBrowser opens the monitoring page in the default browser.
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

// Run commits every burst and waits until the consumer has drained them
// and every deferred interrupt has been delivered.
func (s *Session) Run() error {
	if s.cfg.Dual {
		s.Consumer.Start()
		defer s.Consumer.Stop()
	}

	if s.Producer.Remaining() > 0 {
		s.Producer.TickLater()
	}

	if err := s.Engine.Run(); err != nil {
		return err
	}

	s.Consumer.RequestSync(cp.SyncReasonOther)

	if err := s.Engine.Run(); err != nil {
		return err
	}

	if s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress)
	}

	return nil
}

// Close flushes the trace and stops the controller.
func (s *Session) Close() error {
	s.Controller.Shutdown()

	if s.backend == nil {
		return nil
	}

	s.recorder.Terminate()

	return s.backend.Close()
}

// Summary describes what happened in the session.
type Summary struct {
	Cycles            timing.VTimeInCycle
	Committed         uint64
	Drained           uint64
	Stalls            uint64
	CutShort          uint64
	Distance          uint32
	InterruptAsserted bool
	Status            cp.StatusReg
}

// Summary collects the session counters.
func (s *Session) Summary() Summary {
	return Summary{
		Cycles:            s.Engine.CurrentTime(),
		Committed:         s.Producer.Committed,
		Drained:           s.Consumer.DrainedBytes() / uint64(cp.BurstSize),
		Stalls:            s.Producer.Stalls,
		CutShort:          s.Producer.CutShort,
		Distance:          s.Controller.Fifo().Distance.Load(),
		InterruptAsserted: s.Controller.InterruptAsserted(),
		Status:            s.Controller.Status(),
	}
}
