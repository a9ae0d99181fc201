package credential

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// Jar is a cookie jar bound to the API origin that can expire the auth
// cookies or be reset wholesale on logout.
type Jar struct {
	mu     sync.RWMutex
	origin *url.URL
	jar    *cookiejar.Jar
}

// NewJar creates an empty jar for the given API base URL.
func NewJar(baseURL string) (*Jar, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	inner, err := newInnerJar()
	if err != nil {
		return nil, err
	}
	return &Jar{origin: origin, jar: inner}, nil
}

func newInnerJar() (*cookiejar.Jar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return j, nil
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Expire deletes the named cookies for the API origin.
func (j *Jar) Expire(names ...string) {
	expired := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		expired = append(expired, &http.Cookie{Name: name, Path: "/", MaxAge: -1})
	}
	j.SetCookies(j.origin, expired)
}

// Reset drops every cookie.
func (j *Jar) Reset() {
	inner, err := newInnerJar()
	if err != nil {
		// cookiejar.New only fails on invalid options
		return
	}
	j.mu.Lock()
	j.jar = inner
	j.mu.Unlock()
}
