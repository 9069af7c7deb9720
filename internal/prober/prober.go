package prober

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Mirror_Rank_Go/internal/config"
	"Mirror_Rank_Go/pkg/model"

	"github.com/VividCortex/ewma"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "mirrorrank/1.0"

// Prober performs a single reachability check plus timed transfer against
// one mirror. It never retries; a failed probe is final for the run.
type Prober struct {
	ReachabilityTimeout time.Duration
	TransferTimeout     time.Duration
	RateLimitMB         float64 // download cap in MB/s, 0 disables
	ReferencePath       string  // relative path of the reference object
	UserAgent           string
}

// New builds a Prober from the run configuration.
func New(cfg *config.Config) *Prober {
	return &Prober{
		ReachabilityTimeout: cfg.ReachabilityTimeout(),
		TransferTimeout:     cfg.TransferTimeout(),
		RateLimitMB:         cfg.RateLimitMB,
		ReferencePath:       cfg.ReferencePath,
		UserAgent:           defaultUserAgent,
	}
}

// Probe measures one endpoint: a header-only reachability check first, then
// one timed download of the reference object. Endpoints that fail the
// reachability check are reported Unreachable without spending the transfer
// budget.
func (p *Prober) Probe(ctx context.Context, ep model.Endpoint) model.ProbeOutcome {
	target := p.referenceURL(ep)

	if reason, ok := p.checkReachability(ctx, target); !ok {
		return model.ProbeOutcome{
			Endpoint: ep,
			Status:   model.StatusUnreachable,
			Reason:   reason,
		}
	}

	out := p.timedTransfer(ctx, target)
	out.Endpoint = ep
	return out
}

func (p *Prober) referenceURL(ep model.Endpoint) string {
	return strings.TrimSuffix(ep.URL, "/") + "/" + strings.TrimPrefix(p.ReferencePath, "/")
}

// checkReachability issues a HEAD request under its own short timeout. Any
// HTTP response counts as reachable; only transport failures do not.
func (p *Prober) checkReachability(ctx context.Context, target string) (string, bool) {
	hc := http.Client{
		Timeout: p.ReachabilityTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return fmt.Sprintf("invalid probe URL: %v", err), false
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Sprintf("no response: %v", err), false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return "", true
}

// timedTransfer downloads the reference object once, discarding the body
// while sampling throughput over fixed time slices with a moving average.
// All metrics of the probe derive from this single attempt.
func (p *Prober) timedTransfer(ctx context.Context, target string) model.ProbeOutcome {
	client := &http.Client{
		Timeout: p.TransferTimeout + p.ReachabilityTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return model.ProbeOutcome{Status: model.StatusUnreachable, Reason: fmt.Sprintf("invalid probe URL: %v", err)}
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		// Never got a response: the connection died between the
		// reachability check and the transfer.
		return model.ProbeOutcome{Status: model.StatusUnreachable, Reason: fmt.Sprintf("transfer request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return model.ProbeOutcome{
			Status:     model.StatusHTTPError,
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("unexpected status %s", resp.Status),
		}
	}

	var limiter *rate.Limiter
	if p.RateLimitMB > 0 {
		limit := rate.Limit(p.RateLimitMB * 1024 * 1024)
		limiter = rate.NewLimiter(limit, int(p.RateLimitMB*1024*1024))
	}

	var (
		timeStart     = time.Now()
		timeSlice     = p.TransferTimeout / 100
		nextSlice     = timeStart.Add(timeSlice)
		contentLength = resp.ContentLength
		buffer        = make([]byte, 8192)

		contentRead int64
		lastRead    int64
		truncated   bool
	)
	avg := ewma.NewMovingAverage()

	for {
		now := time.Now()
		for now.After(nextSlice) {
			avg.Add(float64(contentRead-lastRead) / timeSlice.Seconds())
			lastRead = contentRead
			nextSlice = nextSlice.Add(timeSlice)
		}
		if now.Sub(timeStart) > p.TransferTimeout {
			truncated = true
			break
		}

		if limiter != nil {
			if err := limiter.WaitN(ctx, len(buffer)); err != nil {
				truncated = true
				break
			}
		}

		n, err := resp.Body.Read(buffer)
		contentRead += int64(n)
		if err == io.EOF {
			// A known-length body that ends early was cut off by
			// the server.
			truncated = contentLength > 0 && contentRead < contentLength
			break
		}
		if err != nil {
			truncated = true
			break
		}
		if contentLength > 0 && contentRead >= contentLength {
			break
		}
	}
	elapsed := time.Since(timeStart)

	if contentRead == 0 || truncated {
		return model.ProbeOutcome{
			Status:           model.StatusIncompleteTransfer,
			StatusCode:       resp.StatusCode,
			BytesTransferred: contentRead,
			ElapsedSeconds:   elapsed.Seconds(),
			Reason:           fmt.Sprintf("transfer incomplete: %d of %d bytes", contentRead, contentLength),
		}
	}

	// The moving average needs several slices to warm up; a reference
	// object that downloads faster than that falls back to bytes/elapsed.
	speed := avg.Value()
	if speed <= 0 && elapsed > 0 {
		speed = float64(contentRead) / elapsed.Seconds()
	}

	return model.ProbeOutcome{
		Status:           model.StatusSuccess,
		StatusCode:       resp.StatusCode,
		BytesTransferred: contentRead,
		ElapsedSeconds:   elapsed.Seconds(),
		SpeedBps:         speed,
	}
}
