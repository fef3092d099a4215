package appium

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// writeJSON encodes data as JSON to the response writer.
func writeJSON(w http.ResponseWriter, data interface{}) {
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// readJSON decodes a request body.
func readJSON(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return body
}

func TestClient_Connect(t *testing.T) {
	var sent map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" && r.Method == "POST" {
			sent = readJSON(t, r)
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"sessionId": "test-session-123",
					"capabilities": map[string]interface{}{
						"platformName":    "Android",
						"platformVersion": "14",
					},
				},
			})
			return
		}
		if r.URL.Path == "/session/test-session-123/window/rect" {
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"width":  1080.0,
					"height": 1920.0,
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	err := client.Connect(Capabilities{
		"platformName": "Android",
	})

	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if client.SessionID() != "test-session-123" {
		t.Errorf("Expected sessionID 'test-session-123', got '%s'", client.SessionID())
	}

	if client.Platform() != "android" {
		t.Errorf("Expected platform 'android', got '%s'", client.Platform())
	}

	w, h := client.ScreenSize()
	if w != 1080 || h != 1920 {
		t.Errorf("Expected screen size 1080x1920, got %dx%d", w, h)
	}

	caps, _ := sent["capabilities"].(map[string]interface{})
	always, _ := caps["alwaysMatch"].(map[string]interface{})
	if always["platformName"] != "Android" {
		t.Errorf("Expected alwaysMatch.platformName 'Android', got %v", always["platformName"])
	}
}

func TestClient_ConnectSessionNotCreated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{
				"error":   "session not created",
				"message": "Could not find a connected Android device",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Connect(Capabilities{"platformName": "Android"})

	var wdErr *Error
	if !errors.As(err, &wdErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if wdErr.Code != "session not created" {
		t.Errorf("Expected code 'session not created', got '%s'", wdErr.Code)
	}
	if wdErr.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("Expected HTTP 500, got %d", wdErr.HTTPStatus)
	}
	if client.SessionID() != "" {
		t.Error("sessionID should stay empty after a failed connect")
	}
}

func TestClient_ConnectMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not appium</html>"))
	}))
	defer server.Close()

	err := NewClient(server.URL).Connect(Capabilities{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestClient_ConnectNoSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"value": map[string]interface{}{}})
	}))
	defer server.Close()

	err := NewClient(server.URL).Connect(Capabilities{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestClient_Quit(t *testing.T) {
	deleteCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session" && r.Method == "DELETE" {
			deleteCalled = true
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	err := client.Quit()
	if err != nil {
		t.Fatalf("Quit failed: %v", err)
	}

	if !deleteCalled {
		t.Error("DELETE /session was not called")
	}

	if client.sessionID != "" {
		t.Error("sessionID should be cleared after quit")
	}
}

func TestClient_QuitWithoutSession(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	if err := NewClient(server.URL).Quit(); err != nil {
		t.Fatalf("Quit failed: %v", err)
	}
	if called {
		t.Error("Quit without a session should not reach the server")
	}
}

func TestClient_QuitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{"error": "invalid session id", "message": "gone"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	var wdErr *Error
	if err := client.Quit(); !errors.As(err, &wdErr) || wdErr.Code != "invalid session id" {
		t.Errorf("Expected invalid session id error, got %v", err)
	}
	if client.sessionID != "" {
		t.Error("sessionID should be cleared even when the server rejects quit")
	}
}

func TestClient_FindElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/element" && r.Method == "POST" {
			body := readJSON(t, r)
			if body["using"] != "accessibility id" || body["value"] != "myButton" {
				t.Errorf("unexpected locator %v", body)
			}
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"element-6066-11e4-a52e-4f735466cecf": "elem-123",
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	elemID, err := client.FindElement("accessibility id", "myButton")
	if err != nil {
		t.Fatalf("FindElement failed: %v", err)
	}

	if elemID != "elem-123" {
		t.Errorf("Expected element ID 'elem-123', got '%s'", elemID)
	}
}

func TestClient_FindElementNoReference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"value": nil})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	if _, err := client.FindElement("id", "missing"); !errors.Is(err, ErrNoSuchElement) {
		t.Errorf("Expected ErrNoSuchElement, got %v", err)
	}
}

func TestClient_FindElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/elements" && r.Method == "POST" {
			writeJSON(w, map[string]interface{}{
				"value": []interface{}{
					map[string]interface{}{"element-6066-11e4-a52e-4f735466cecf": "elem-1"},
					map[string]interface{}{"ELEMENT": "elem-2"},
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	ids, err := client.FindElements("class name", "android.widget.Button")
	if err != nil {
		t.Fatalf("FindElements failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "elem-1" || ids[1] != "elem-2" {
		t.Errorf("Expected [elem-1 elem-2], got %v", ids)
	}
}

func TestClient_DoubleTapElement(t *testing.T) {
	var actions []interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/actions" && r.Method == "POST" {
			body := readJSON(t, r)
			seqs, _ := body["actions"].([]interface{})
			if len(seqs) == 1 {
				seq, _ := seqs[0].(map[string]interface{})
				actions, _ = seq["actions"].([]interface{})
			}
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	if err := client.DoubleTapElement("elem-1"); err != nil {
		t.Fatalf("DoubleTapElement failed: %v", err)
	}

	downs := 0
	for _, a := range actions {
		if m, _ := a.(map[string]interface{}); m["type"] == "pointerDown" {
			downs++
		}
	}
	if downs != 2 {
		t.Errorf("Expected 2 pointerDown actions, got %d", downs)
	}
	first, _ := actions[0].(map[string]interface{})
	origin, _ := first["origin"].(map[string]interface{})
	if origin[w3cElementKey] != "elem-1" {
		t.Errorf("Expected move origin elem-1, got %v", first["origin"])
	}
}

func TestClient_Drag(t *testing.T) {
	var actions []interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/actions" && r.Method == "POST" {
			body := readJSON(t, r)
			seqs, _ := body["actions"].([]interface{})
			seq, _ := seqs[0].(map[string]interface{})
			actions, _ = seq["actions"].([]interface{})
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	if err := client.Drag(100, 200, 300, 400, 600); err != nil {
		t.Fatalf("Drag failed: %v", err)
	}
	if len(actions) != 5 {
		t.Fatalf("Expected 5 actions, got %d", len(actions))
	}
	end, _ := actions[3].(map[string]interface{})
	if end["x"] != 300.0 || end["y"] != 400.0 || end["duration"] != 600.0 {
		t.Errorf("Unexpected end move %v", end)
	}
}

func TestClient_Screenshot(t *testing.T) {
	pngData := []byte{0x89, 0x50, 0x4E, 0x47}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/screenshot" {
			writeJSON(w, map[string]interface{}{
				"value": base64.StdEncoding.EncodeToString(pngData),
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	data, err := client.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}

	if len(data) != len(pngData) {
		t.Errorf("Expected %d bytes, got %d", len(pngData), len(data))
	}
}

func TestClient_Source(t *testing.T) {
	expectedSource := "<hierarchy><node/></hierarchy>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/source" {
			writeJSON(w, map[string]interface{}{
				"value": expectedSource,
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	source, err := client.Source()
	if err != nil {
		t.Fatalf("Source failed: %v", err)
	}

	if source != expectedSource {
		t.Errorf("Expected source %q, got %q", expectedSource, source)
	}
}

func TestClient_GetElementRect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/element/elem-1/rect" {
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"x":      100.0,
					"y":      200.0,
					"width":  300.0,
					"height": 50.0,
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	x, y, width, height, err := client.GetElementRect("elem-1")
	if err != nil {
		t.Fatalf("GetElementRect failed: %v", err)
	}

	if x != 100 || y != 200 || width != 300 || height != 50 {
		t.Errorf("Expected rect (100,200,300,50), got (%d,%d,%d,%d)", x, y, width, height)
	}
}

func TestClient_IsElementDisplayed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/test-session/element/shown/displayed":
			writeJSON(w, map[string]interface{}{"value": true})
		case "/session/test-session/element/hidden/displayed":
			writeJSON(w, map[string]interface{}{"value": false})
		default:
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"error": "stale element reference", "message": "gone"},
			})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	shown, err := client.IsElementDisplayed("shown")
	if err != nil || !shown {
		t.Errorf("IsElementDisplayed(shown) = %v, %v; want true, nil", shown, err)
	}
	shown, err = client.IsElementDisplayed("hidden")
	if err != nil || shown {
		t.Errorf("IsElementDisplayed(hidden) = %v, %v; want false, nil", shown, err)
	}
	if _, err := client.IsElementDisplayed("gone"); err == nil {
		t.Error("expected error for stale element")
	}
}

func TestClient_ClickElement(t *testing.T) {
	clicked := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/element/elem-1/click" && r.Method == "POST" {
			clicked = true
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	if err := client.ClickElement("elem-1"); err != nil {
		t.Fatalf("ClickElement failed: %v", err)
	}

	if !clicked {
		t.Error("Click endpoint was not called")
	}
}

func TestClient_SetImplicitWait(t *testing.T) {
	var implicit interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/timeouts" && r.Method == "POST" {
			implicit = readJSON(t, r)["implicit"]
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	if err := client.SetImplicitWait(5 * time.Second); err != nil {
		t.Fatalf("SetImplicitWait failed: %v", err)
	}
	if implicit != 5000.0 {
		t.Errorf("Expected implicit 5000, got %v", implicit)
	}
}

func TestClient_ExecuteMobile(t *testing.T) {
	var script interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/execute/sync" && r.Method == "POST" {
			script = readJSON(t, r)["script"]
			writeJSON(w, map[string]interface{}{"value": true})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	v, err := client.ExecuteMobile("doubleClickGesture", map[string]interface{}{"x": 10, "y": 20})
	if err != nil {
		t.Fatalf("ExecuteMobile failed: %v", err)
	}
	if script != "mobile: doubleClickGesture" {
		t.Errorf("Expected script 'mobile: doubleClickGesture', got %v", script)
	}
	if v != true {
		t.Errorf("Expected value true, got %v", v)
	}
}

func TestClient_HTTPErrorWithoutPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		writeJSON(w, map[string]interface{}{"value": nil})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.sessionID = "test-session"

	var wdErr *Error
	if _, err := client.Source(); !errors.As(err, &wdErr) || wdErr.HTTPStatus != http.StatusBadGateway {
		t.Errorf("Expected HTTP 502 *Error, got %v", err)
	}
}

func TestExtractElementID(t *testing.T) {
	tests := []struct {
		name     string
		value    map[string]interface{}
		expected string
	}{
		{
			name:     "W3C format",
			value:    map[string]interface{}{"element-6066-11e4-a52e-4f735466cecf": "w3c-id"},
			expected: "w3c-id",
		},
		{
			name:     "Legacy format",
			value:    map[string]interface{}{"ELEMENT": "legacy-id"},
			expected: "legacy-id",
		},
		{
			name:     "Empty",
			value:    map[string]interface{}{},
			expected: "",
		},
		{
			name:     "Nil",
			value:    nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractElementID(tt.value)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}
