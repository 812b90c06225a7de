package monitoring

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/gpu"
	"github.com/sarchlab/cpfifo/pi"
	"github.com/sarchlab/cpfifo/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Monitor", func() {
	var (
		engine     *timing.SerialEngine
		controller *cp.CommandProcessor
		consumer   *gpu.Consumer
		monitor    *Monitor
		server     *httptest.Server
	)

	write32 := func(lo uint32, v uint32) {
		controller.Write16(lo, uint16(v))
		controller.Write16(lo+2, uint16(v>>16))
	}

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		monitor.Router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		platform := pi.MakeBuilder().WithTimeTeller(engine).Build("PI")
		controller = cp.MakeBuilder().
			WithEngine(engine).
			WithInterruptSink(platform).
			WithBusMirror(platform).
			WithLogger(log.New(GinkgoWriter, "", 0)).
			Build("CP")
		consumer = gpu.MakeBuilder().
			WithEngine(engine).
			WithController(controller).
			Build("GPU")
		controller.SetConsumer(consumer)

		write32(cp.FifoBaseLo, 0x1000)
		write32(cp.FifoEndLo, 0x2000)

		monitor = NewMonitor()
		monitor.RegisterEngine(engine)
		monitor.RegisterController(controller)
		monitor.RegisterComponent(consumer)
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	It("should reject privileged port numbers", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(Equal(0))
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should report the current time", func() {
		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":0}`))
	})

	It("should pause and continue the engine", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Expect(engine.Run()).To(Succeed())
	})

	It("should list components sorted by name", func() {
		rec := get("/api/list_components")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"CP", "GPU"}))
	})

	It("should list controllers", func() {
		rec := get("/api/list_controllers")

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"CP"}))
	})

	It("should dump the registers", func() {
		rec := get("/api/registers/CP")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var dump RegisterDump
		Expect(json.Unmarshal(rec.Body.Bytes(), &dump)).To(Succeed())
		Expect(dump.Name).To(Equal("CP"))
		Expect(dump.Ctrl).To(ContainSubstring("GPREAD"))
		Expect(dump.InterruptAsserted).To(BeFalse())

		values := map[string]uint16{}
		for _, r := range dump.Registers {
			values[r.Name] = r.Value
		}

		Expect(values).To(HaveKeyWithValue("FIFO_BASE_LO", uint16(0x1000)))
		Expect(values).To(HaveKeyWithValue("FIFO_END_LO", uint16(0x2000)))
	})

	It("should not fire hooks when dumping registers", func() {
		recorder := &countingHook{}
		controller.AcceptHook(recorder)

		get("/api/registers/CP")

		Expect(recorder.count).To(BeZero())
	})

	It("should return 404 for an unknown controller", func() {
		rec := get("/api/registers/XX")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should return 404 for an unknown component", func() {
		rec := get("/api/component/XX")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize the controller state", func() {
		rec := get("/api/controller/CP")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should reject malformed field requests", func() {
		rec := get("/api/field/" + url.PathEscape("{not json"))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should track progress bars", func() {
		bar := monitor.CreateProgressBar("bursts", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		rec := get("/api/progress")

		var bars []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("bursts"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 3))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))

		monitor.CompleteProgressBar(bar)

		rec = get("/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should serve the web page", func() {
		server = httptest.NewServer(monitor.Router())

		rsp, err := http.Get(server.URL + "/index.html")

		Expect(err).ToNot(HaveOccurred())
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		rsp.Body.Close()
	})
})

type countingHook struct {
	count int
}

func (h *countingHook) Func(_ timing.HookCtx) {
	h.count++
}
