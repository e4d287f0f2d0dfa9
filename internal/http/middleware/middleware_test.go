package middleware_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"regwatch.co/sentinel/internal/http/middleware"
)

var _ = Describe("RequireAPIKey", func() {
	newRouter := func(key string) *gin.Engine {
		router := gin.New()
		router.POST("/admin", middleware.RequireAPIKey(key), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return router
	}

	request := func(router *gin.Engine, header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/admin", nil)
		if header != "" {
			req.Header.Set("X-API-Key", header)
		}
		router.ServeHTTP(w, req)
		return w
	}

	It("admits the configured key", func() {
		Expect(request(newRouter("secret"), "secret").Code).To(Equal(http.StatusNoContent))
	})

	It("rejects a wrong or missing key", func() {
		router := newRouter("secret")
		Expect(request(router, "wrong").Code).To(Equal(http.StatusUnauthorized))
		Expect(request(router, "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects everything when no key is configured", func() {
		Expect(request(newRouter(""), "").Code).To(Equal(http.StatusUnauthorized))
	})
})

var _ = Describe("Recovery", func() {
	It("converts a handler panic into a 500", func() {
		router := gin.New()
		router.Use(middleware.Recovery())
		router.GET("/boom", func(*gin.Context) {
			panic("unexpected")
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
