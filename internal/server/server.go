package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"Mirror_Rank_Go/internal/config"
	"Mirror_Rank_Go/internal/engine"

	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"
)

//go:embed web
var embeddedFS embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, any origin is fine
	},
}

// Start runs the web UI: static page, config read/write API and the
// websocket endpoint that runs a benchmark while streaming progress.
func Start(port int, cfgPath, mirrorsPath string) error {
	staticFS, err := fs.Sub(embeddedFS, "web")
	if err != nil {
		return fmt.Errorf("embedded web assets: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/api/config", handleConfig(cfgPath))
	mux.HandleFunc("/ws/run", handleRun(cfgPath, mirrorsPath))

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("serving on http://%s", addr)
	return http.ListenAndServe(addr, mux)
}

func handleConfig(cfgPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				http.Error(w, "failed to load config", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(cfg)
		case http.MethodPost:
			var newValues map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&newValues); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := saveConfigWithComments(cfgPath, newValues); err != nil {
				http.Error(w, fmt.Sprintf("failed to save config: %v", err), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// wsMessage is one frame sent to the browser.
type wsMessage struct {
	Type    string      `json:"type"` // "log", "result" or "error"
	Payload interface{} `json:"payload"`
}

func handleRun(cfgPath, mirrorsPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// The first client frame carries config overrides; fields the
		// client omits keep their file values.
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("websocket config read failed: %v", err)
			return
		}
		runCfg, err := config.LoadConfig(cfgPath)
		if err != nil {
			conn.WriteJSON(wsMessage{Type: "error", Payload: fmt.Sprintf("failed to load config: %v", err)})
			return
		}
		if err := json.Unmarshal(msg, runCfg); err != nil {
			conn.WriteJSON(wsMessage{Type: "error", Payload: fmt.Sprintf("invalid config frame: %v", err)})
			return
		}
		runCfg.Normalize()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// A disconnecting client cancels the run; dispatched probes are
		// abandoned and already-persisted outcomes stay valid.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Single dedicated writer goroutine; everything else goes
		// through the channel.
		writeCh := make(chan wsMessage, 64)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for m := range writeCh {
				if err := conn.WriteJSON(m); err != nil {
					log.Printf("websocket write error: %v", err)
					return
				}
			}
		}()

		progress := func(message string) {
			select {
			case <-ctx.Done():
			case writeCh <- wsMessage{Type: "log", Payload: message}:
			}
		}

		res, err := engine.RunBenchmark(ctx, runCfg, mirrorsPath, progress)
		switch {
		case err != nil:
			writeCh <- wsMessage{Type: "error", Payload: err.Error()}
		case res.Summary.Succeeded == 0:
			writeCh <- wsMessage{Type: "error", Payload: "no mirror completed the timed transfer, artifacts skipped"}
		default:
			writeCh <- wsMessage{Type: "result", Payload: resultPayload(res)}
		}

		close(writeCh)
		select {
		case <-writerDone:
		case <-time.After(time.Second):
		}
	}
}

// resultPayload flattens a run result for the browser.
func resultPayload(res *engine.RunResult) map[string]interface{} {
	type entry struct {
		URL       string  `json:"url"`
		Region    string  `json:"region"`
		SpeedMbps float64 `json:"speed_mbps"`
		ElapsedS  float64 `json:"elapsed_s"`
	}
	entries := make([]entry, 0, len(res.Ranked))
	for _, o := range res.Ranked {
		entries = append(entries, entry{
			URL:       o.Endpoint.URL,
			Region:    o.Endpoint.Region,
			SpeedMbps: o.SpeedMbps(),
			ElapsedS:  o.ElapsedSeconds,
		})
	}
	return map[string]interface{}{
		"ranked": entries,
		"summary": map[string]interface{}{
			"probed":             res.Summary.Probed,
			"succeeded":          res.Summary.Succeeded,
			"failed":             res.Summary.Failed,
			"best_mbps":          res.Summary.BestMbps(),
			"mean_mbps":          res.Summary.MeanMbps(),
			"quality":            res.Summary.Quality,
			"parallel_downloads": res.Summary.ParallelHint,
		},
	}
}

// saveConfigWithComments rewrites config.yaml in place while keeping the
// file's comments, by editing the parsed yaml node tree instead of
// re-marshalling a struct.
func saveConfigWithComments(cfgPath string, newValues map[string]interface{}) error {
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if len(root.Content) == 0 {
		return fmt.Errorf("empty config document")
	}
	docNode := root.Content[0]

	for i := 0; i+1 < len(docNode.Content); i += 2 {
		keyNode := docNode.Content[i]
		valNode := docNode.Content[i+1]
		if newValue, ok := newValues[keyNode.Value]; ok {
			setNodeValue(valNode, newValue)
		}
	}

	out, err := yaml.Marshal(&root)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, out, 0644)
}

// setNodeValue updates a yaml.Node scalar or sequence from a decoded JSON
// value.
func setNodeValue(node *yaml.Node, value interface{}) {
	if slice, isSlice := value.([]interface{}); isSlice {
		node.Kind = yaml.SequenceNode
		node.Tag = "!!seq"
		node.Content = nil
		for _, item := range slice {
			itemNode := &yaml.Node{}
			setNodeValue(itemNode, item)
			node.Content = append(node.Content, itemNode)
		}
		return
	}

	s := fmt.Sprintf("%v", value)
	node.Value = s
	node.Kind = yaml.ScalarNode
	switch {
	case s == "true" || s == "false":
		node.Tag = "!!bool"
	case isJSONInt(s):
		node.Tag = "!!int"
	case isJSONFloat(s):
		node.Tag = "!!float"
	default:
		node.Tag = "!!str"
	}
}

func isJSONFloat(s string) bool {
	var f float64
	return json.Unmarshal([]byte(s), &f) == nil
}

func isJSONInt(s string) bool {
	var i int
	return json.Unmarshal([]byte(s), &i) == nil
}
