package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/trigger/internal/gitlabclient"
	"basegraph.app/trigger/internal/http/handler"
	"basegraph.app/trigger/internal/model"
	"basegraph.app/trigger/internal/service"
	"basegraph.app/trigger/internal/trigger"
)

var _ = Describe("JobHandler", func() {
	var (
		router *gin.Engine
		svc    *mockJobService
	)

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockJobService{}
		h := handler.NewJobHandler(svc)

		router.GET("/jobs/:job", h.Get)
		router.PUT("/jobs/:job", h.Save)
		router.GET("/jobs/:job/branches", h.Branches)
		router.PUT("/jobs/:job/policy", h.UpdatePolicy)
	})

	It("returns the job with its webhook url", func() {
		svc.getFn = func(_ context.Context, name string) (*service.JobDetails, error) {
			return details(name), nil
		}

		w := do(http.MethodGet, "/jobs/app", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["id"]).To(Equal("7"))
		Expect(resp["webhook_url"]).To(Equal("https://ci.example.com/project/app"))
		Expect(resp["settings"]).To(HaveKeyWithValue("trigger_on_push", true))
	})

	It("returns 404 for an unknown job", func() {
		w := do(http.MethodGet, "/jobs/ghost", nil)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("returns 500 when the store fails", func() {
		svc.getFn = func(context.Context, string) (*service.JobDetails, error) {
			return nil, errors.New("connection refused")
		}

		w := do(http.MethodGet, "/jobs/app", nil)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).NotTo(ContainSubstring("connection refused"))
	})

	Describe("Save", func() {
		It("saves with default settings when none are given", func() {
			var saved *model.Job
			svc.saveFn = func(_ context.Context, job *model.Job) (*service.JobDetails, error) {
				saved = job
				return &service.JobDetails{Job: job}, nil
			}

			w := do(http.MethodPut, "/jobs/app", map[string]any{
				"repo_url":             "git@gitlab.example.com:group/app.git",
				"quiet_period_seconds": 10,
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(saved.Name).To(Equal("app"))
			Expect(saved.QuietPeriodSeconds).To(Equal(int32(10)))
			Expect(saved.Settings).To(Equal(trigger.DefaultSettings()))
		})

		It("rejects a job without repository", func() {
			w := do(http.MethodPut, "/jobs/app", map[string]any{"scm": "git"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an unknown scm", func() {
			w := do(http.MethodPut, "/jobs/app", map[string]any{"scm": "cvs", "repo_url": "x"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("surfaces configuration errors as 400", func() {
			svc.saveFn = func(context.Context, *model.Job) (*service.JobDetails, error) {
				return nil, fmt.Errorf("%w: job name is required", trigger.ErrConfiguration)
			}

			w := do(http.MethodPut, "/jobs/app", map[string]any{"repo_url": "x"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	It("lists branches", func() {
		svc.branchesFn = func(context.Context, string) ([]string, error) {
			return []string{"main", "develop"}, nil
		}

		w := do(http.MethodGet, "/jobs/app/branches", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"branches":["main","develop"]}`))
	})

	It("serializes an empty branch list as an array", func() {
		w := do(http.MethodGet, "/jobs/app/branches", nil)

		Expect(w.Body.String()).To(MatchJSON(`{"branches":[]}`))
	})

	Describe("UpdatePolicy", func() {
		It("passes the flattened settings through", func() {
			var got trigger.Settings
			svc.updatePolicyFn = func(_ context.Context, name string, s trigger.Settings) (*service.JobDetails, error) {
				got = s
				d := details(name)
				d.Job.Settings = s
				return d, nil
			}

			w := do(http.MethodPut, "/jobs/app/policy", map[string]any{
				"trigger_on_push":               true,
				"allowed_branches":              []string{"main"},
				"filter_requests":               true,
				"commit_message_filter_strings": "[ci skip]\nWIP",
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got.TriggerOnPush).To(BeTrue())
			Expect(got.TriggerOnMergeRequest).To(BeFalse())
			Expect(got.AllowedBranches).To(Equal([]string{"main"}))
			Expect(got.CommitMessageFilterStrings).To(Equal("[ci skip]\nWIP"))
		})

		It("returns 404 for an unknown job", func() {
			w := do(http.MethodPut, "/jobs/ghost/policy", map[string]any{"trigger_on_push": true})

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects malformed json", func() {
			req := httptest.NewRequest(http.MethodPut, "/jobs/app/policy", bytes.NewBufferString(`{"trigger_on_push":"yes"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})

var _ = Describe("GitLabHandler", func() {
	var (
		router *gin.Engine
		svc    *mockJobService
	)

	post := func(body any) *httptest.ResponseRecorder {
		data, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/gitlab/test-connection", bytes.NewBuffer(data))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockJobService{}
		router.POST("/gitlab/test-connection", handler.NewGitLabHandler(svc).TestConnection)
	})

	It("returns the token's user", func() {
		var got gitlabclient.Config
		svc.testFn = func(_ context.Context, cfg gitlabclient.Config) (string, error) {
			got = cfg
			return "ci-bot", nil
		}

		w := post(map[string]any{"host_url": "https://gitlab.example.com", "api_token": "glpat-long-enough"})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"username":"ci-bot"}`))
		Expect(got.HostURL).To(Equal("https://gitlab.example.com"))
	})

	It("returns 502 when gitlab rejects the token", func() {
		svc.testFn = func(context.Context, gitlabclient.Config) (string, error) {
			return "", errors.New("401 Unauthorized")
		}

		w := post(map[string]any{"host_url": "https://gitlab.example.com", "api_token": "glpat-long-enough"})

		Expect(w.Code).To(Equal(http.StatusBadGateway))
	})

	It("validates the request", func() {
		w := post(map[string]any{"host_url": "not a url", "api_token": "short"})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
