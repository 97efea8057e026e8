package receipt

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/scansheet/scansheet/internal/capture"
)

var _ = Describe("Server", func() {
	var (
		slot        *memSlot
		scanner     *mockScanner
		relay       *capture.Relay
		service     *Service
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server := NewServerWithMux(service, relay, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(".*"), server.Handler().ServeHTTP)
		}
	}

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	decode := func(resp *http.Response, v any) {
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed(), string(body))
	}

	getState := func() State {
		var st State
		decode(do(http.MethodGet, "/api/state", nil, ""), &st)
		return st
	}

	uploadFile := func(name string, content []byte) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())
		return do(http.MethodPost, "/api/uploads", &buf, w.FormDataContentType())
	}

	waitForEditing := func() {
		Eventually(func() View {
			return getState().ActiveView
		}).WithTimeout(2 * time.Second).Should(Equal(ViewEditing))
	}

	BeforeEach(func() {
		slot = &memSlot{}
		scanner = newMockScanner()
		scanner.result = extracted("Blue Bottle", "2024-03-09", "14.25", "Food & Dining")
		relay = capture.NewRelay(true)
		service = NewService(NewStore(slot), scanner, relay)
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
			ghttpServer = nil
		}
	})

	Describe("handleIndex", func() {
		It("should serve the HTML interface", func() {
			resp := do(http.MethodGet, "/", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/html"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("ScanSheet"))
		})

		It("should serve the script", func() {
			resp := do(http.MethodGet, "/static/app.js", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("application/javascript"))
		})

		When("request method is not GET", func() {
			It("should return status Method Not Allowed", func() {
				resp := do(http.MethodPost, "/", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
			})
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "secret"}
			setupServer()
		})

		It("should reject requests without credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/state", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should reject wrong credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/state", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "wrong")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			resp := do(http.MethodGet, "/api/state", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do(http.MethodOptions, "/api/uploads", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("handleState", func() {
		It("should start on the listing", func() {
			resp := do(http.MethodGet, "/api/state", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

			var st State
			decode(resp, &st)
			Expect(st.ActiveView).To(Equal(ViewListing))
			Expect(st.IsProcessing).To(BeFalse())
		})
	})

	Describe("handleUpload", func() {
		It("should accept an image and open the draft once extraction finishes", func() {
			resp := uploadFile("receipt.png", pngBytes())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			waitForEditing()
			st := getState()
			Expect(st.Draft).NotTo(BeNil())
			Expect(st.Draft.Merchant).To(Equal("Blue Bottle"))
			Expect(st.Draft.Total.String()).To(Equal("14.25"))
		})

		It("should reject a file that is not an image", func() {
			resp := uploadFile("notes.txt", []byte("just some notes"))
			Expect(resp.StatusCode).To(Equal(http.StatusUnsupportedMediaType))

			var body map[string]string
			decode(resp, &body)
			Expect(body["error"]).To(ContainSubstring("not an image file"))
			Expect(getState().Notice).To(Equal(noticeInvalidFileType))
			Expect(scanner.Calls()).To(Equal(0))
		})

		It("should require a file", func() {
			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			Expect(w.WriteField("other", "value")).To(Succeed())
			Expect(w.Close()).To(Succeed())

			resp := do(http.MethodPost, "/api/uploads", &buf, w.FormDataContentType())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject a second upload while processing", func() {
			scanner.release = make(chan struct{})
			defer close(scanner.release)

			Expect(uploadFile("one.png", pngBytes()).StatusCode).To(Equal(http.StatusAccepted))
			Expect(uploadFile("two.png", pngBytes()).StatusCode).To(Equal(http.StatusConflict))
			Expect(getState().IsProcessing).To(BeTrue())
		})
	})

	Describe("handleCommitDraft", func() {
		BeforeEach(func() {
			Expect(uploadFile("receipt.png", pngBytes()).StatusCode).To(Equal(http.StatusAccepted))
			waitForEditing()
		})

		It("should save the edited receipt", func() {
			resp := do(http.MethodPost, "/api/draft",
				strings.NewReader(`{"merchant":"Blue Bottle Coffee","total":12.5,"category":"shopping"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var saved map[string]any
			decode(resp, &saved)
			Expect(saved).To(HaveKeyWithValue("merchant", "Blue Bottle Coffee"))
			Expect(saved).To(HaveKeyWithValue("total", 12.5))
			Expect(saved).To(HaveKeyWithValue("category", "Shopping"))
			Expect(saved).To(HaveKeyWithValue("date", "2024-03-09"))

			Expect(getState().ActiveView).To(Equal(ViewListing))

			var summary map[string]any
			decode(do(http.MethodGet, "/api/receipts", nil, ""), &summary)
			Expect(summary).To(HaveKeyWithValue("count", 1.0))
			Expect(summary).To(HaveKeyWithValue("total", 12.5))
		})

		It("should keep the draft when the date is malformed", func() {
			resp := do(http.MethodPost, "/api/draft", strings.NewReader(`{"date":"tomorrow"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(getState().ActiveView).To(Equal(ViewEditing))
		})

		It("should reject an unknown category", func() {
			resp := do(http.MethodPost, "/api/draft", strings.NewReader(`{"category":"Spaceships"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject a malformed body", func() {
			resp := do(http.MethodPost, "/api/draft", strings.NewReader(`{"total":`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should discard the draft on cancel", func() {
			resp := do(http.MethodDelete, "/api/draft", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			st := getState()
			Expect(st.ActiveView).To(Equal(ViewListing))
			Expect(st.Draft).To(BeNil())
		})
	})

	Describe("handleCommitDraft without a draft", func() {
		It("should return status Conflict", func() {
			resp := do(http.MethodPost, "/api/draft", strings.NewReader(`{}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})
	})

	Describe("receipts", func() {
		var saved Receipt

		BeforeEach(func() {
			saved = sampleReceipt("r-1", "Blue Bottle", "37.49")
			Expect(service.store.Append(saved)).To(Succeed())
		})

		It("should list receipts with the aggregate", func() {
			var summary Summary
			decode(do(http.MethodGet, "/api/receipts", nil, ""), &summary)
			Expect(summary.Count).To(Equal(1))
			Expect(summary.Total.String()).To(Equal("37.49"))
			Expect(summary.Receipts[0].ID).To(Equal("r-1"))
		})

		It("should serve the receipt image", func() {
			resp := do(http.MethodGet, "/api/receipts/r-1/image", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			expected, _, err := saved.ImageURL.Decode()
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal(expected))
		})

		It("should return Not Found for an unknown image", func() {
			resp := do(http.MethodGet, "/api/receipts/missing/image", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should delete a receipt", func() {
			resp := do(http.MethodDelete, "/api/receipts/r-1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(service.Summary().Count).To(Equal(0))
		})

		It("should accept deleting an unknown receipt", func() {
			resp := do(http.MethodDelete, "/api/receipts/missing", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(service.Summary().Count).To(Equal(1))
		})

		It("should export a workbook", func() {
			resp := do(http.MethodGet, "/api/export.xlsx", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("scansheet.xlsx"))
		})
	})

	Describe("scanner", func() {
		It("should open and cancel the capture screen", func() {
			resp := do(http.MethodPost, "/api/scanner", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(relay.Active()).To(BeTrue())
			Expect(getState().ActiveView).To(Equal(ViewCapturing))

			resp = do(http.MethodDelete, "/api/scanner", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(relay.Active()).To(BeFalse())
			Expect(getState().ActiveView).To(Equal(ViewListing))
		})

		It("should extract a shutter frame", func() {
			Expect(do(http.MethodPost, "/api/scanner", nil, "").StatusCode).To(Equal(http.StatusOK))

			resp := do(http.MethodPost, "/api/scanner/frame", bytes.NewReader(pngBytes()), "image/png")
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			waitForEditing()
			Expect(relay.Active()).To(BeFalse())
		})

		It("should refuse a frame when the scanner is closed", func() {
			resp := do(http.MethodPost, "/api/scanner/frame", bytes.NewReader(pngBytes()), "image/png")
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should return to the listing when the browser reports a camera failure", func() {
			Expect(do(http.MethodPost, "/api/scanner", nil, "").StatusCode).To(Equal(http.StatusOK))

			resp := do(http.MethodPost, "/api/scanner/failure", strings.NewReader(`{"error":"NotAllowedError"}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			st := getState()
			Expect(st.ActiveView).To(Equal(ViewListing))
			Expect(st.Notice).To(Equal(noticeDeviceUnavailable))
			Expect(relay.Active()).To(BeFalse())
		})

		When("the camera is disabled", func() {
			BeforeEach(func() {
				relay = capture.NewRelay(false)
				service = NewService(NewStore(slot), scanner, relay)
				setupServer()
			})

			It("should return status Service Unavailable", func() {
				resp := do(http.MethodPost, "/api/scanner", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
				Expect(getState().Notice).To(Equal(noticeDeviceUnavailable))
			})
		})
	})

	Describe("handleDismissNotice", func() {
		It("should clear the notice", func() {
			uploadFile("notes.txt", []byte("just some notes"))
			Expect(getState().Notice).NotTo(BeEmpty())

			resp := do(http.MethodDelete, "/api/notice", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(getState().Notice).To(BeEmpty())
		})
	})
})
