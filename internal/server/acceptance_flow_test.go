package server_test

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sitetree/engine/internal/common/httputil"
	"github.com/sitetree/engine/internal/content"
)

func seedSmallSite() {
	testEnv.store.LastModified = "2025-05-01 09:00:00"
	testEnv.store.AddPost(content.Post{ID: 1, Name: "about", Type: "page", Modified: "2025-04-01 08:00:00"})
}

func seedMultiFileSite() {
	seedSmallSite()
	testEnv.store.AddPost(content.Post{ID: 2, Name: "contact", Type: "page", Modified: "2025-04-02 08:00:00"})
	testEnv.store.AddPost(content.Post{ID: 3, Name: "one", Type: "post", Modified: "2025-04-03 08:00:00"})
	testEnv.store.AddPost(content.Post{ID: 4, Name: "two", Type: "post", Modified: "2025-04-04 08:00:00"})
	testEnv.store.AddPost(content.Post{ID: 5, Name: "three", Type: "post", Modified: "2025-04-05 08:00:00"})
}

var _ = Describe("Sitemap delivery", func() {
	It("serves a single-file site directly under the bare slug", func() {
		seedSmallSite()

		status, body := testEnv.get("/sitemap.xml")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("<urlset"))
		Expect(body).To(ContainSubstring("<loc>https://example.com/</loc>"))
		Expect(body).To(ContainSubstring("<loc>https://example.com/about/</loc>"))
		Expect(body).ToNot(ContainSubstring("<sitemapindex"))
	})

	It("serves an index document once the site spans multiple files", func() {
		seedMultiFileSite()

		status, body := testEnv.get("/sitemap.xml")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("<sitemapindex"))
		Expect(body).To(ContainSubstring("https://example.com/sitemap-page.xml"))
		Expect(body).To(ContainSubstring("https://example.com/sitemap-post.xml"))
		Expect(body).To(ContainSubstring("https://example.com/sitemap-post-2.xml"))

		By("serving each listed file")
		status, body = testEnv.get("/sitemap-post-2.xml")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("<loc>https://example.com/three/</loc>"))

		By("rejecting a file number past the index")
		status, _ = testEnv.get("/sitemap-post-3.xml")
		Expect(status).To(Equal(http.StatusNotFound))
	})

	It("answers repeat index requests from the cached index", func() {
		seedMultiFileSite()

		testEnv.get("/sitemap.xml")
		queriesAfterBuild := testEnv.store.NumQueries()

		testEnv.get("/sitemap.xml")
		Expect(testEnv.store.NumQueries()).To(Equal(queriesAfterBuild))
	})

	It("serves the news sitemap with publication metadata", func() {
		testEnv.store.AddPost(content.Post{
			ID: 10, Name: "breaking", Type: "post", Title: "Breaking story",
			Date: "2025-08-28 06:00:00", Modified: "2025-08-28 07:00:00",
		})

		status, body := testEnv.get("/newsmap.xml")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("<news:name>Example News</news:name>"))
		Expect(body).To(ContainSubstring("<news:title>Breaking story</news:title>"))
	})
})

var _ = Describe("Cache invalidation", func() {
	It("rebuilds the index after an invalidation", func() {
		seedSmallSite()

		status, body := testEnv.get("/sitemap.xml")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).ToNot(ContainSubstring("/fresh-page/"))

		By("publishing new content and flushing the cache")
		testEnv.store.AddPost(content.Post{ID: 6, Name: "fresh-page", Type: "page", Modified: "2025-06-01 08:00:00"})

		status, _ = testEnv.post("/invalidate?slug=sitemap")
		Expect(status).To(Equal(http.StatusOK))

		status, body = testEnv.get("/sitemap.xml")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("<loc>https://example.com/fresh-page/</loc>"))
	})

	It("flushes every slug when no slug is named", func() {
		seedSmallSite()
		testEnv.get("/sitemap.xml")

		status, body := testEnv.post("/invalidate")
		Expect(status).To(Equal(http.StatusOK))

		var resp httputil.APIResponse
		Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
		Expect(resp.Success).To(BeTrue())
	})

	It("rejects an unknown slug", func() {
		status, _ := testEnv.post("/invalidate?slug=bogus")
		Expect(status).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("Ping control endpoint", func() {
	It("reports an unsent round while pinging is disabled", func() {
		status, body := testEnv.post("/ping?slug=sitemap")
		Expect(status).To(Equal(http.StatusOK))

		var resp httputil.APIResponse
		Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
		Expect(resp.Success).To(BeTrue())

		data, ok := resp.Data.(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(data["sent"]).To(BeFalse())
	})

	It("rejects the site tree slug", func() {
		status, _ := testEnv.post("/ping?slug=site_tree")
		Expect(status).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("Site tree", func() {
	It("serves the hyperlink listing as HTML", func() {
		seedSmallSite()

		status, body := testEnv.get("/site-tree")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`<div class="sitetree">`))
		Expect(body).To(ContainSubstring(`<a href="https://example.com/about/">`))
	})

	It("404s a page past the listing", func() {
		seedSmallSite()

		status, _ := testEnv.get("/site-tree?page=42")
		Expect(status).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("Stylesheets", func() {
	It("serves the urlset and index variants", func() {
		status, body := testEnv.get("/sitemap-template.xsl")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("xsl:stylesheet"))

		status, body = testEnv.get("/sitemap-index-template.xsl")
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("sitemapindex"))
	})
})
