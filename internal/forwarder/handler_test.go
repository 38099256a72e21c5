package forwarder_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kunal768/distributed-echo-system/internal/forwarder"
	"github.com/kunal768/distributed-echo-system/internal/upstream"
)

type forwardedBody struct {
	Msg          string `json:"msg"`
	EchoResponse struct {
		Echo string `json:"echo"`
	} `json:"echo_response"`
}

type failureBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

var _ = Describe("Handler", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	})

	newHandler := func(upstreamURL string, timeout time.Duration) *forwarder.Handler {
		client, err := upstream.New(upstreamURL, timeout)
		Expect(err).NotTo(HaveOccurred())
		return forwarder.NewHandler(log, client, nil)
	}

	callEcho := func(h *forwarder.Handler, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.CallEcho(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	Describe("CallEcho", func() {
		Context("when the upstream echoes", func() {
			var (
				srv  *httptest.Server
				hits int32
			)

			BeforeEach(func() {
				hits = 0
				srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&hits, 1)
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]string{"echo": r.URL.Query().Get("msg")})
				}))
			})

			AfterEach(func() {
				srv.Close()
			})

			It("should return 200 with the message and the echo response", func() {
				h := newHandler(srv.URL, 2*time.Second)

				rec := callEcho(h, "/call-echo?msg=test")

				Expect(rec.Code).To(Equal(http.StatusOK))

				var body forwardedBody
				Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Msg).To(Equal("test"))
				Expect(body.EchoResponse.Echo).To(Equal("test"))
			})

			It("should make exactly one upstream call per request", func() {
				h := newHandler(srv.URL, 2*time.Second)

				callEcho(h, "/call-echo?msg=once")

				Expect(atomic.LoadInt32(&hits)).To(Equal(int32(1)))
			})

			It("should round-trip URL-encoded special characters exactly", func() {
				h := newHandler(srv.URL, 2*time.Second)

				rec := callEcho(h, "/call-echo?msg=hello%20world%26x%3D1")

				Expect(rec.Code).To(Equal(http.StatusOK))

				var body forwardedBody
				Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Msg).To(Equal("hello world&x=1"))
				Expect(body.EchoResponse.Echo).To(Equal("hello world&x=1"))
			})

			It("should give the same answer for the same message every time", func() {
				h := newHandler(srv.URL, 2*time.Second)

				for i := 0; i < 3; i++ {
					rec := callEcho(h, "/call-echo?msg=stable")

					Expect(rec.Code).To(Equal(http.StatusOK))

					var body forwardedBody
					Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
					Expect(body.EchoResponse.Echo).To(Equal("stable"))
				}
			})

			It("should keep five concurrent messages apart", func() {
				h := newHandler(srv.URL, 2*time.Second)

				var wg sync.WaitGroup
				echoes := make([]string, 5)

				for i := 0; i < 5; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						defer GinkgoRecover()

						rec := callEcho(h, fmt.Sprintf("/call-echo?msg=msg-%d", i))
						Expect(rec.Code).To(Equal(http.StatusOK))

						var body forwardedBody
						Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
						echoes[i] = body.EchoResponse.Echo
					}(i)
				}
				wg.Wait()

				for i := 0; i < 5; i++ {
					Expect(echoes[i]).To(Equal(fmt.Sprintf("msg-%d", i)))
				}
			})
		})

		Context("when msg is missing", func() {
			var (
				srv  *httptest.Server
				hits int32
			)

			BeforeEach(func() {
				hits = 0
				srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&hits, 1)
				}))
			})

			AfterEach(func() {
				srv.Close()
			})

			It("should answer 400 without calling the upstream", func() {
				h := newHandler(srv.URL, time.Second)

				rec := callEcho(h, "/call-echo")

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(rec.Body.String()).To(ContainSubstring("Missing 'msg' parameter"))
				Expect(atomic.LoadInt32(&hits)).To(BeZero())
			})

			It("should treat an empty msg the same as an absent one", func() {
				h := newHandler(srv.URL, time.Second)

				rec := callEcho(h, "/call-echo?msg=")

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(atomic.LoadInt32(&hits)).To(BeZero())
			})
		})

		Context("when the upstream is down", func() {
			It("should answer 503 with a connection error", func() {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
				downURL := srv.URL
				srv.Close()

				h := newHandler(downURL, 2*time.Second)

				rec := callEcho(h, "/call-echo?msg=test")

				Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

				var body failureBody
				Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Error).To(Equal("Service A unavailable"))
				Expect(body.Details).To(HavePrefix("Connection error:"))
			})
		})

		Context("when the upstream is slow", func() {
			var (
				release chan struct{}
				srv     *httptest.Server
			)

			BeforeEach(func() {
				release = make(chan struct{})
				srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-release:
					case <-r.Context().Done():
					}
				}))
			})

			AfterEach(func() {
				close(release)
				srv.Close()
			})

			It("should answer 503 with a timeout shortly after the deadline", func() {
				h := newHandler(srv.URL, 150*time.Millisecond)

				start := time.Now()
				rec := callEcho(h, "/call-echo?msg=slow")
				elapsed := time.Since(start)

				Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

				var body failureBody
				Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Error).To(Equal("Service A unavailable"))
				Expect(body.Details).To(HavePrefix("Timeout:"))

				Expect(elapsed).To(BeNumerically(">=", 150*time.Millisecond))
				Expect(elapsed).To(BeNumerically("<", time.Second))
			})
		})

		Context("when the upstream misbehaves", func() {
			It("should answer 503 for a non-JSON body", func() {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("not json at all"))
				}))
				defer srv.Close()

				h := newHandler(srv.URL, time.Second)

				rec := callEcho(h, "/call-echo?msg=test")

				Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

				var body failureBody
				Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Error).To(Equal("Service A unavailable"))
				Expect(body.Details).To(HavePrefix("Request error:"))
			})

			It("should answer 503 for an unexpected status", func() {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
				defer srv.Close()

				h := newHandler(srv.URL, time.Second)

				rec := callEcho(h, "/call-echo?msg=test")

				Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

				var body failureBody
				Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Details).To(ContainSubstring("unexpected status 500"))
			})
		})
	})

	Describe("Health", func() {
		It("should answer 200 without touching the upstream", func() {
			// Port 9 is discard; nothing should ever connect to it.
			h := newHandler("http://127.0.0.1:9", time.Second)

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": "ok"}`))
		})
	})

	Describe("Status", func() {
		It("should report the cached upstream view without calling it", func() {
			client, err := upstream.New("http://127.0.0.1:9", time.Second)
			Expect(err).NotTo(HaveOccurred())
			client.SetHealthy(false)

			h := forwarder.NewHandler(log, client, nil)

			rec := httptest.NewRecorder()
			h.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Status   string `json:"status"`
				Upstream struct {
					URL     string `json:"url"`
					Healthy bool   `json:"healthy"`
				} `json:"upstream"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Status).To(Equal("ok"))
			Expect(body.Upstream.URL).To(Equal("http://127.0.0.1:9"))
			Expect(body.Upstream.Healthy).To(BeFalse())
		})
	})
})

var _ = Describe("Result", func() {
	It("should map outcomes to statuses", func() {
		Expect(forwarder.Success("m", upstream.EchoResponse{Echo: "m"}).HTTPStatus()).To(Equal(http.StatusOK))
		Expect(forwarder.InvalidRequest().HTTPStatus()).To(Equal(http.StatusBadRequest))
		Expect(forwarder.UpstreamTimeout("Timeout: x").HTTPStatus()).To(Equal(http.StatusServiceUnavailable))
		Expect(forwarder.UpstreamUnavailable("Connection error: x").HTTPStatus()).To(Equal(http.StatusServiceUnavailable))
	})

	It("should name outcomes for metrics labels", func() {
		Expect(forwarder.OutcomeSuccess.String()).To(Equal("success"))
		Expect(forwarder.OutcomeInvalidRequest.String()).To(Equal("invalid_request"))
		Expect(forwarder.OutcomeTimeout.String()).To(Equal("timeout"))
		Expect(forwarder.OutcomeUnavailable.String()).To(Equal("unavailable"))
	})

	It("should carry failure details into the body", func() {
		res := forwarder.UpstreamTimeout("Timeout: deadline exceeded")

		raw, err := json.Marshal(res.Body())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{"error": "Service A unavailable", "details": "Timeout: deadline exceeded"}`))
	})

	It("should omit details for an invalid request", func() {
		raw, err := json.Marshal(forwarder.InvalidRequest().Body())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{"error": "Missing 'msg' parameter"}`))
	})
})
