// Package mock provides recording test doubles for the driver collaborators
// so providers and page objects can be tested without a browser, a device,
// or an Appium server.
package mock

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/devicelab-dev/driverkit/pkg/driver/appium"
)

const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// Request is one request received by AppiumServer.
type Request struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// Rect is an element position and size.
type Rect struct {
	X, Y, Width, Height int
}

type w3cError struct {
	status  int
	code    string
	message string
}

type element struct {
	id   string
	rect Rect
}

// AppiumServer is a fake W3C endpoint that accepts one session at a time.
type AppiumServer struct {
	*httptest.Server

	mu        sync.Mutex
	sessionID string
	requests  []Request
	createErr *w3cError
	deleteErr *w3cError
	elements  map[string][]element
	rects     map[string]Rect
	hidden    map[string]bool
}

// NewAppiumServer starts a fake server. Close it when done.
func NewAppiumServer() *AppiumServer {
	s := &AppiumServer{
		sessionID: "mock-session",
		elements:  make(map[string][]element),
		rects:     make(map[string]Rect),
		hidden:    make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailCreate makes POST /session answer with the given W3C error code.
func (s *AppiumServer) FailCreate(code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = &w3cError{status: http.StatusInternalServerError, code: code, message: message}
}

// FailDelete makes DELETE /session/{id} answer with the given W3C error code.
func (s *AppiumServer) FailDelete(code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = &w3cError{status: http.StatusInternalServerError, code: code, message: message}
}

// AddElement registers an element found by the given locator.
func (s *AppiumServer) AddElement(using, value, id string, rect Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := using + "=" + value
	s.elements[key] = append(s.elements[key], element{id: id, rect: rect})
	s.rects[id] = rect
}

// Hide makes the element with id report itself as not displayed.
func (s *AppiumServer) Hide(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden[id] = true
}

// SessionID returns the id handed out for new sessions.
func (s *AppiumServer) SessionID() string {
	return s.sessionID
}

// Requests returns a copy of every request received so far.
func (s *AppiumServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request whose path ends with suffix.
func (s *AppiumServer) Last(method, suffix string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			return r, true
		}
	}
	return Request{}, false
}

// Count returns how many requests matched method and path suffix.
func (s *AppiumServer) Count(method, suffix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			n++
		}
	}
	return n
}

func (s *AppiumServer) handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})

	if r.URL.Path == "/session" && r.Method == http.MethodPost {
		s.createSession(w, body)
		return
	}

	prefix := "/session/" + s.sessionID
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, &w3cError{status: http.StatusNotFound, code: "invalid session id", message: "unknown session"})
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case rest == "" && r.Method == http.MethodDelete:
		if s.deleteErr != nil {
			writeError(w, s.deleteErr)
			return
		}
		writeValue(w, nil)
	case rest == "/window/rect":
		writeValue(w, map[string]interface{}{"x": 0, "y": 0, "width": 1080, "height": 2400})
	case rest == "/element" && r.Method == http.MethodPost:
		found := s.elements[locator(body)]
		if len(found) == 0 {
			writeError(w, &w3cError{status: http.StatusNotFound, code: "no such element", message: "element not found: " + locator(body)})
			return
		}
		writeValue(w, map[string]interface{}{w3cElementKey: found[0].id})
	case rest == "/elements" && r.Method == http.MethodPost:
		refs := []interface{}{}
		for _, e := range s.elements[locator(body)] {
			refs = append(refs, map[string]interface{}{w3cElementKey: e.id})
		}
		writeValue(w, refs)
	case strings.HasPrefix(rest, "/element/"):
		s.elementCommand(w, strings.TrimPrefix(rest, "/element/"))
	case rest == "/actions", rest == "/execute/sync", rest == "/timeouts":
		writeValue(w, nil)
	case rest == "/source":
		writeValue(w, "<hierarchy/>")
	case rest == "/screenshot":
		writeValue(w, base64.StdEncoding.EncodeToString([]byte("png")))
	default:
		writeError(w, &w3cError{status: http.StatusNotFound, code: "unknown command", message: r.Method + " " + rest})
	}
}

func (s *AppiumServer) createSession(w http.ResponseWriter, body map[string]interface{}) {
	if s.createErr != nil {
		writeError(w, s.createErr)
		return
	}
	platform := appium.PlatformAndroid
	if caps, ok := body["capabilities"].(map[string]interface{}); ok {
		if always, ok := caps["alwaysMatch"].(map[string]interface{}); ok {
			if p, ok := always["platformName"].(string); ok {
				platform = p
			}
		}
	}
	writeValue(w, map[string]interface{}{
		"sessionId":    s.sessionID,
		"capabilities": map[string]interface{}{"platformName": platform},
	})
}

func (s *AppiumServer) elementCommand(w http.ResponseWriter, rest string) {
	id, command, _ := strings.Cut(rest, "/")
	rect, ok := s.rects[id]
	if !ok {
		writeError(w, &w3cError{status: http.StatusNotFound, code: "stale element reference", message: id})
		return
	}
	switch command {
	case "rect":
		writeValue(w, map[string]interface{}{"x": rect.X, "y": rect.Y, "width": rect.Width, "height": rect.Height})
	case "displayed":
		writeValue(w, !s.hidden[id])
	default:
		writeValue(w, nil)
	}
}

func locator(body map[string]interface{}) string {
	using, _ := body["using"].(string)
	value, _ := body["value"].(string)
	return using + "=" + value
}

func writeValue(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": v})
}

func writeError(w http.ResponseWriter, e *w3cError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"value": map[string]interface{}{"error": e.code, "message": e.message},
	})
}

// OpenCall records one Opener.Open invocation.
type OpenCall struct {
	ServerURL string
	Caps      appium.Capabilities
}

// Opener records session requests. With Err set it fails every call;
// otherwise it connects to Server, or to the requested URL when Server is
// nil.
type Opener struct {
	Server *AppiumServer
	Err    error
	Calls  []OpenCall
}

// Open implements appium.SessionOpener.
func (o *Opener) Open(serverURL string, caps appium.Capabilities) (*appium.Client, error) {
	o.Calls = append(o.Calls, OpenCall{ServerURL: serverURL, Caps: caps})
	if o.Err != nil {
		return nil, o.Err
	}
	target := serverURL
	if o.Server != nil {
		target = o.Server.URL
	}
	c := appium.NewClient(target)
	if err := c.Connect(caps); err != nil {
		return nil, err
	}
	return c, nil
}
