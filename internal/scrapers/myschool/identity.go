package myschool

import (
	"math/rand"
	"sync"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
}

// identity is the header set a single request presents itself with.
type identity struct {
	userAgent string
	referer   string
}

func (i identity) headers() map[string]string {
	return map[string]string{
		"User-Agent":                i.userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "same-origin",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
		"Referer":                   i.referer,
	}
}

// lockedRand is a math/rand source that is safe to share between batch workers.
type lockedRand struct {
	mutex sync.Mutex
	rand  *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{rand: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.rand.Intn(n)
}

func (r *lockedRand) Int63n(n int64) int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.rand.Int63n(n)
}
