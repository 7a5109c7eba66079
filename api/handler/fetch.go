package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagegrab/models"
	"github.com/use-agent/pagegrab/scraper"
	"github.com/use-agent/pagegrab/store"
)

// Fetch returns a handler for POST /api/v1/fetch.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults from server config.
//  2. Scraper.Fetch → raw page            (records fetch_ms)
//  3. store.Save    → file, unless save=false (records save_ms)
//  4. Fill Timing, return 200.
func Fetch(sc *scraper.Scraper, defaults scraper.FetchOptions, namer store.Namer) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.FetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.FetchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults(defaults.RetryCount, int(defaults.BaseDelay/time.Millisecond))

		opts := scraper.FetchOptions{
			RetryCount: req.RetryCount,
			BaseDelay:  time.Duration(*req.DelayMs) * time.Millisecond,
		}

		// ── 2. Fetch ────────────────────────────────────────────────
		fetchStart := time.Now()
		page, err := sc.Fetch(c.Request.Context(), req.URL, opts)
		fetchMs := time.Since(fetchStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
				FetchMs: fetchMs,
			})
			return
		}

		resp := models.FetchResponse{
			Success:    true,
			URL:        page.URL,
			FinalURL:   page.FinalURL,
			StatusCode: page.StatusCode,
			Title:      page.Title,
			Attempts:   page.Attempts,
			Bytes:      len(page.Content),
		}

		// ── 3. Save ─────────────────────────────────────────────────
		var saveMs int64
		if *req.Save {
			saveStart := time.Now()
			path := namer.Path()
			err := store.Save(page.Content, path)
			saveMs = time.Since(saveStart).Milliseconds()
			if err != nil {
				respondError(c, err, models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
					FetchMs: fetchMs,
					SaveMs:  saveMs,
				})
				return
			}
			resp.Path = path
		} else {
			resp.Content, resp.ContentEncoding = models.EncodeContent(page.Content)
		}

		// ── 4. Timing and respond ───────────────────────────────────
		resp.Timing = models.TimingInfo{
			TotalMs: time.Since(totalStart).Milliseconds(),
			FetchMs: fetchMs,
			SaveMs:  saveMs,
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps an error to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	code := models.Code(err)
	c.JSON(mapErrorToStatus(code), models.FetchResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
		Timing: timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeHTTPStatus, models.ErrCodeNetwork, models.ErrCodeFetchFailed, models.ErrCodeBodyTooLarge:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}
